package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nhle/ecomission/internal/api"
	"github.com/nhle/ecomission/internal/model"
	"github.com/nhle/ecomission/internal/store"
)

// fallbackCatalog is offered when neither the server nor the device has a
// catalog.
func fallbackCatalog() []model.CatalogMission {
	items := []struct {
		id       int
		name     string
		category string
	}{
		{101, "텀블러 사용하기", "일상"},
		{102, "리필스테이션 이용", "일상"},
		{103, "대중교통 이용하기", "모빌리티"},
		{104, "에코백 사용하기", "일상"},
		{105, "분리수거 철저히 하기", "분리배출"},
		{106, "플라스틱 프리 챌린지", "캠페인"},
		{107, "비닐봉투 거절하기", "일상"},
		{108, "리유저블 식기 사용", "일상"},
		{109, "잔반 남기지 않기", "식생활"},
	}
	out := make([]model.CatalogMission, len(items))
	for i, it := range items {
		out[i] = model.CatalogMission{ID: it.id, Name: it.name, Category: it.category, Submissions: []string{it.name}}
	}
	return out
}

// LoadCatalog loads the mission catalog from the server, then the device
// copy, then the built-in list, and keeps the result on the device.
func (s *Session) LoadCatalog(ctx context.Context) ([]model.CatalogMission, error) {
	list, err := s.backend.Catalog(ctx)
	if err != nil {
		if s.handleAuth(err) {
			s.notify(model.NoticeError, msgAuthExpired)
			return nil, err
		}
		s.log.Warn().Err(err).Msg("catalog unavailable, using device copy")
		var cached []model.CatalogMission
		if s.local.LoadValue(ctx, store.KeyAvailableMissions, &cached) && cached != nil {
			list = cached
		} else {
			list = fallbackCatalog()
		}
	}

	s.mu.Lock()
	s.catalog = append([]model.CatalogMission(nil), list...)
	s.mu.Unlock()
	s.local.SaveValue(ctx, store.KeyAvailableMissions, list)
	return list, nil
}

// Catalog returns the loaded catalog.
func (s *Session) Catalog() []model.CatalogMission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CatalogMission(nil), s.catalog...)
}

// catalogHas reports whether id is a catalog mission, loading the catalog
// first when none is known.
func (s *Session) catalogHas(ctx context.Context, id int) bool {
	list := s.Catalog()
	if len(list) == 0 {
		var err error
		if list, err = s.LoadCatalog(ctx); err != nil {
			s.notify(model.NoticeError, msgCatalogFailed)
			return false
		}
	}
	for _, m := range list {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Profile returns the last known profile.
func (s *Session) Profile() model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *Session) storeProfile(ctx context.Context, u model.User) {
	s.mu.Lock()
	s.profile = u
	s.mu.Unlock()
	s.local.SaveValue(ctx, store.KeyUserName, u.Name)
	s.local.SaveValue(ctx, store.KeyProfileColor, u.ProfileColor)
	s.local.SaveValue(ctx, store.KeyUserBio, u.Bio)
}

// LoadProfile fetches the caller's profile. When the server is unreachable
// the device copy is returned.
func (s *Session) LoadProfile(ctx context.Context) (model.User, error) {
	u, err := s.backend.Me(ctx)
	if err != nil {
		if api.IsNetworkError(err) {
			s.log.Warn().Err(err).Msg("profile unavailable, using device copy")
			s.restoreProfile(ctx)
			return s.Profile(), nil
		}
		s.handleAuth(err)
		return model.User{}, err
	}
	if u.ProfileColor == "" {
		u.ProfileColor = model.DefaultProfileColor
	}
	s.storeProfile(ctx, u)
	return u, nil
}

// SaveProfile updates the caller's profile.
func (s *Session) SaveProfile(ctx context.Context, p model.ProfileUpdate) (model.User, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return model.User{}, &model.ValidationError{Field: "name", Message: "name must not be blank"}
	}
	if p.ProfileColor == "" {
		p.ProfileColor = model.DefaultProfileColor
	}

	u, err := s.backend.UpdateMe(ctx, p)
	if err != nil {
		return model.User{}, s.fail(err, msgProfileSaveFailed)
	}
	// Older backends answer with an empty body.
	if u.Name == "" {
		u = s.Profile()
		u.Name, u.ProfileColor, u.Bio = p.Name, p.ProfileColor, p.Bio
	}
	s.storeProfile(ctx, u)
	s.notify(model.NoticeSuccess, msgProfileSaved)
	return u, nil
}

func (s *Session) restoreProfile(ctx context.Context) {
	s.mu.Lock()
	u := s.profile
	s.mu.Unlock()

	var v string
	if s.local.LoadValue(ctx, store.KeyUserName, &v) {
		u.Name = v
	}
	if s.local.LoadValue(ctx, store.KeyProfileColor, &v) {
		u.ProfileColor = v
	}
	if s.local.LoadValue(ctx, store.KeyUserBio, &v) {
		u.Bio = v
	}

	s.mu.Lock()
	s.profile = u
	s.mu.Unlock()
}

// storedGroup is a device copy of a group; participants are normalized
// again on the way in.
type storedGroup struct {
	model.GroupMission
	Participants json.RawMessage `json:"participants"`
}

// Restore loads the device snapshot: profile, missions, groups and catalog.
// Nothing is fetched and no cache is filled.
func (s *Session) Restore(ctx context.Context) error {
	s.restoreProfile(ctx)

	var restoreErr error
	if raw, ok := s.local.LoadRaw(ctx, store.KeyMissions); ok {
		missions, err := DecodeMissionSnapshot(raw)
		if err != nil {
			s.notify(model.NoticeError, msgRestoreFailed)
			restoreErr = err
		} else {
			s.mu.Lock()
			for d, list := range missions {
				s.missions[d] = list
			}
			s.mu.Unlock()
		}
	}

	var stored []storedGroup
	if s.local.LoadValue(ctx, store.KeyMyGroupMissions, &stored) {
		groups := make([]model.GroupMission, 0, len(stored))
		for _, sg := range stored {
			g := sg.GroupMission
			g.Participants = model.NormalizeParticipants(sg.Participants)
			if g.ColorTag == "" {
				g.ColorTag = model.DefaultGroupColor
			}
			groups = append(groups, g)
		}
		s.mu.Lock()
		s.groupLists[baseGroupKey] = groups
		s.mu.Unlock()
	}

	var catalog []model.CatalogMission
	if s.local.LoadValue(ctx, store.KeyAvailableMissions, &catalog) {
		s.mu.Lock()
		s.catalog = catalog
		s.mu.Unlock()
	}
	return restoreErr
}

// DecodeMissionSnapshot decodes a stored mission map. Besides the current
// entry shape it accepts bare catalog ids and objects using older field
// names; values that are not lists become empty days.
func DecodeMissionSnapshot(raw []byte) (model.MissionsByDate, error) {
	var days map[string]json.RawMessage
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, fmt.Errorf("decoding mission snapshot: %w", err)
	}

	out := make(model.MissionsByDate, len(days))
	for d, v := range days {
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err != nil {
			out[model.CalendarDate(d)] = []model.MissionEntry{}
			continue
		}
		list := make([]model.MissionEntry, 0, len(items))
		for _, item := range items {
			if e, ok := decodeSnapshotEntry(item); ok {
				list = append(list, e)
			}
		}
		out[model.CalendarDate(d)] = list
	}
	return out, nil
}

func decodeSnapshotEntry(raw json.RawMessage) (model.MissionEntry, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return model.MissionEntry{}, false
	}

	switch raw[0] {
	case '{':
	case '"', 'n', 't', 'f', '[':
		return model.MissionEntry{}, false
	default:
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return model.MissionEntry{}, false
		}
		id := int(n)
		return model.MissionEntry{MissionCatalogID: id, SubmissionLabel: "legacy-" + strconv.Itoa(id)}, true
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return model.MissionEntry{}, false
	}

	id := looseNumber(firstPresent(fields, "missionId", "mission_id", "id"))
	label := looseString(firstPresent(fields, "submission", "sub_mission", "name", "title"))
	if label == "" {
		label = "legacy-" + strconv.Itoa(id)
	}

	e := model.MissionEntry{MissionCatalogID: id, SubmissionLabel: label}
	_ = json.Unmarshal(fields["completed"], &e.Completed)
	_ = json.Unmarshal(fields["isWeeklyRoutine"], &e.IsWeeklyRoutine)
	if v, ok := fields["routineId"]; ok {
		if n := looseNumber(v); n != 0 {
			e.RoutineID = &n
		}
	}
	if v, ok := fields["serverRecordId"]; ok {
		if n := looseNumber(v); n != 0 {
			e.ServerRecordID = &n
		}
	}
	return e, true
}

// firstPresent returns the first field that exists and is not null.
func firstPresent(fields map[string]json.RawMessage, names ...string) json.RawMessage {
	for _, n := range names {
		v, ok := fields[n]
		if ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return v
		}
	}
	return nil
}

// looseNumber reads a JSON number or numeric string; anything else is 0.
func looseNumber(raw json.RawMessage) int {
	if raw == nil {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			return int(f)
		}
	}
	return 0
}

// looseString reads a JSON string, or the literal text of any other value.
func looseString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return string(bytes.TrimSpace(raw))
}
