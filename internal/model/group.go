package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Default color tags used when the backend omits one.
const (
	DefaultParticipantColor = "bg-gray-300"
	DefaultGroupColor       = "bg-blue-300"
	DefaultProfileColor     = "bg-green-300"
)

// Participant is a canonical group member.
type Participant struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ColorTag string `json:"colorTag"`
}

// GroupMission is a shared challenge of at most MaxParticipants members.
type GroupMission struct {
	// ID is the backend identifier of the group.
	ID int `json:"id"`

	// Name is the group's display name.
	Name string `json:"name"`

	// ColorTag is the presentation color token of the group.
	ColorTag string `json:"colorTag"`

	// Participants holds the normalized member list.
	Participants []Participant `json:"participants"`

	// Checked is the caller's completion for the requested date, when the
	// listing was made for a specific date.
	Checked *bool `json:"checked,omitempty"`

	// TotalScore is the group's accumulated score.
	TotalScore int `json:"totalScore"`

	// MemberCount is the backend's member count, which may lag Participants.
	MemberCount int `json:"memberCount"`
}

// RawParticipantKind tags the shape a participant arrived in.
type RawParticipantKind int

const (
	RawNull RawParticipantKind = iota
	RawString
	RawPartial
)

// RawParticipant is a participant as served by the backend: a bare name,
// a partial object, or null.
type RawParticipant struct {
	Kind  RawParticipantKind
	Name  string
	ID    *int
	Color string
}

type rawParticipantObject struct {
	ID           json.RawMessage `json:"id"`
	Name         json.RawMessage `json:"name"`
	ProfileColor string          `json:"profile_color"`
	Color        string          `json:"color"`
}

// UnmarshalJSON decodes any of the three accepted participant shapes.
func (p *RawParticipant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*p = RawParticipant{Kind: RawNull}
		return nil
	case data[0] == '"':
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*p = RawParticipant{Kind: RawString, Name: name}
		return nil
	case data[0] == '{':
		var obj rawParticipantObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		color := obj.ProfileColor
		if color == "" {
			color = obj.Color
		}
		*p = RawParticipant{Kind: RawPartial, Name: looseString(obj.Name), ID: looseInt(obj.ID), Color: color}
		return nil
	default:
		return fmt.Errorf("unsupported participant shape: %s", string(data))
	}
}

// looseString returns raw as a string, or "" when it is not one.
func looseString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// looseInt reads an id that may be encoded as a number or a numeric string.
func looseInt(raw json.RawMessage) *int {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil
		}
		n = json.Number(s)
	}
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return nil
		}
		v = int64(f)
	}
	out := int(v)
	return &out
}

// NormalizeParticipants converts a raw participants payload into canonical
// members. Anything that is not an array yields an empty list, null and blank
// name entries are dropped, and missing fields are filled from the entry's
// position.
func NormalizeParticipants(raw json.RawMessage) []Participant {
	out := []Participant{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return out
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}

	for i, item := range items {
		var p RawParticipant
		if err := json.Unmarshal(item, &p); err != nil {
			continue
		}
		switch p.Kind {
		case RawNull:
			continue
		case RawString:
			if strings.TrimSpace(p.Name) == "" {
				continue
			}
			out = append(out, Participant{ID: i, Name: p.Name, ColorTag: DefaultParticipantColor})
		case RawPartial:
			member := Participant{ID: i, Name: p.Name, ColorTag: p.Color}
			if p.ID != nil {
				member.ID = *p.ID
			}
			if strings.TrimSpace(member.Name) == "" {
				member.Name = fmt.Sprintf("그룹원 %d", i+1)
			}
			if member.ColorTag == "" {
				member.ColorTag = DefaultParticipantColor
			}
			out = append(out, member)
		}
	}

	if len(out) > MaxParticipants {
		out = out[:MaxParticipants]
	}
	return out
}
