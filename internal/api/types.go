package api

import (
	"encoding/json"
	"strconv"

	"github.com/nhle/ecomission/internal/model"
)

// missionRef is the catalog mission embedded in a day record.
type missionRef struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Submissions []string `json:"submissions"`
}

// dayMission is a per-day mission record as served by /days/{date}/missions.
type dayMission struct {
	ID              int        `json:"id"`
	Mission         missionRef `json:"mission"`
	SubMission      string     `json:"sub_mission"`
	Completed       bool       `json:"completed"`
	CreatedAt       string     `json:"created_at"`
	IsWeeklyRoutine bool       `json:"is_weekly_routine"`
	RoutineID       *int       `json:"routine_id"`
}

// label resolves the display label: sub mission, mission name, first
// submission, category, then a synthesized name.
func (d dayMission) label() string {
	switch {
	case d.SubMission != "":
		return d.SubMission
	case d.Mission.Name != "":
		return d.Mission.Name
	case len(d.Mission.Submissions) > 0 && d.Mission.Submissions[0] != "":
		return d.Mission.Submissions[0]
	case d.Mission.Category != "":
		return d.Mission.Category
	default:
		return "미션-" + strconv.Itoa(d.Mission.ID)
	}
}

func (d dayMission) toEntry() model.MissionEntry {
	entry := model.MissionEntry{
		MissionCatalogID: d.Mission.ID,
		SubmissionLabel:  d.label(),
		IsWeeklyRoutine:  d.IsWeeklyRoutine,
		Completed:        d.Completed,
	}
	if d.RoutineID != nil && *d.RoutineID != 0 {
		id := *d.RoutineID
		entry.RoutineID = &id
	}
	if d.ID != 0 {
		id := d.ID
		entry.ServerRecordID = &id
	}
	return entry
}

// groupMission is a group as served by the /group-missions endpoints.
type groupMission struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Color        string          `json:"color"`
	Participants json.RawMessage `json:"participants"`
	Checked      *bool           `json:"checked"`
	TotalScore   int             `json:"total_score"`
	MemberCount  int             `json:"member_count"`
}

func (g groupMission) toModel() model.GroupMission {
	color := g.Color
	if color == "" {
		color = model.DefaultGroupColor
	}
	return model.GroupMission{
		ID:           g.ID,
		Name:         g.Name,
		ColorTag:     color,
		Participants: model.NormalizeParticipants(g.Participants),
		Checked:      g.Checked,
		TotalScore:   g.TotalScore,
		MemberCount:  g.MemberCount,
	}
}

func toGroups(raw []groupMission) []model.GroupMission {
	out := make([]model.GroupMission, 0, len(raw))
	for _, g := range raw {
		out = append(out, g.toModel())
	}
	return out
}

// Routine is a server-side personal weekly routine.
type Routine struct {
	ID         int                `json:"id"`
	MissionID  int                `json:"mission_id"`
	Submission string             `json:"submission"`
	StartDate  model.CalendarDate `json:"date"`
}

type routineRequest struct {
	MissionID  int                `json:"mission_id"`
	Date       model.CalendarDate `json:"date"`
	Submission string             `json:"submission,omitempty"`
}

type addDayMissionRequest struct {
	MissionID  int    `json:"mission_id"`
	Submission string `json:"submission"`
}

type completeRequest struct {
	Completed bool `json:"completed"`
}

type groupCheckRequest struct {
	Date      model.CalendarDate `json:"date"`
	Completed bool               `json:"completed"`
}

type createGroupRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type inviteRequest struct {
	FriendIDs []int `json:"friend_ids"`
}

type groupRanking struct {
	Rank         int             `json:"rank"`
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Color        string          `json:"color"`
	TotalScore   int             `json:"total_score"`
	Participants json.RawMessage `json:"participants"`
}
