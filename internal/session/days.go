package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nhle/ecomission/internal/api"
	"github.com/nhle/ecomission/internal/dates"
	"github.com/nhle/ecomission/internal/model"
	"github.com/nhle/ecomission/internal/store"
)

// applyDay replaces date's list and rebuilds its (catalog id, label) to
// server record index.
func (s *Session) applyDay(date model.CalendarDate, entries []model.MissionEntry) {
	list := cloneEntries(entries)
	index := make(map[model.MissionKey]int, len(list))
	for _, e := range list {
		if e.ServerRecordID != nil {
			index[e.Key()] = *e.ServerRecordID
		}
	}

	s.mu.Lock()
	s.missions[date] = list
	s.records[date] = index
	s.mu.Unlock()
}

func (s *Session) fetchDay(date model.CalendarDate) func(context.Context) ([]model.MissionEntry, error) {
	return func(ctx context.Context) ([]model.MissionEntry, error) {
		entries, err := s.backend.DayMissions(ctx, date)
		if err != nil {
			return nil, err
		}
		return model.DedupeMissions(entries), nil
	}
}

// LoadDay brings date's missions up to date. A fresh cached list is applied
// without a network call, and a caller arriving while date is being fetched
// joins that fetch. With force set the cached list is discarded first.
// Failures raise a notice; a network failure shows the device snapshot
// merged with local routines instead of an empty day. A caller whose ctx
// ends stops waiting without touching the day.
func (s *Session) LoadDay(ctx context.Context, date model.CalendarDate, force bool) error {
	if err := s.loadDay(ctx, date, force); err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return err
		}
		if api.IsAuthExpired(err) {
			s.notify(model.NoticeError, msgAuthExpired)
		} else {
			s.notify(model.NoticeError, msgLoadDayFailed)
		}
		return err
	}
	return nil
}

func (s *Session) loadDay(ctx context.Context, date model.CalendarDate, force bool) error {
	if _, err := dates.Parse(string(date)); err != nil {
		return err
	}

	if !force {
		if entries, ok := s.days.Fresh(date); ok {
			s.applyDay(date, entries)
			return nil
		}
	}
	// A stale list stays on screen while it is refetched; with nothing
	// cached the day is blanked so another date's missions never show.
	if _, cached := s.days.Peek(date); force || !cached {
		s.applyDay(date, nil)
	}

	if _, err := s.days.GetOrFetch(ctx, date, s.fetchDay(date), force); err != nil {
		return s.dayFailed(ctx, date, err)
	}
	s.persistDay(ctx, date)
	return nil
}

func (s *Session) dayFailed(ctx context.Context, date model.CalendarDate, err error) error {
	// A newer fetch already replaced the result this one would have set.
	if _, ok := s.days.Fresh(date); ok {
		return err
	}
	// The caller gave up; the fetch keeps running and applies its own result.
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	if s.handleAuth(err) {
		return err
	}

	var fallback []model.MissionEntry
	if api.IsNetworkError(err) {
		fallback = s.offlineDay(ctx, date)
	}
	s.applyDay(date, fallback)
	s.log.Warn().Err(err).Str("date", string(date)).Int("offline_entries", len(fallback)).Msg("loading day failed")
	return err
}

// offlineDay merges the device snapshot of date with the routines expanded
// for it.
func (s *Session) offlineDay(ctx context.Context, date model.CalendarDate) []model.MissionEntry {
	entries := s.local.LoadDayMissions(ctx, date)
	routines, err := s.local.ExpandRoutinesForDate(ctx, date)
	if err != nil {
		s.log.Warn().Err(err).Str("date", string(date)).Msg("expanding routines")
	}
	return model.DedupeMissions(append(entries, routines...))
}

// persistDay writes date's current list and the full mission map to the
// device.
func (s *Session) persistDay(ctx context.Context, date model.CalendarDate) {
	s.mu.Lock()
	list := cloneEntries(s.missions[date])
	all := s.missions.Clone()
	s.mu.Unlock()

	s.local.SaveDayMissions(ctx, date, list)
	s.local.SaveValue(ctx, store.KeyMissions, all)
}

// reloadWeek force-reloads every day of date's week and drops the week's
// summary. Individual failures are logged.
func (s *Session) reloadWeek(ctx context.Context, date model.CalendarDate) {
	week, err := dates.WeekDates(date)
	if err != nil {
		s.log.Warn().Err(err).Str("date", string(date)).Msg("reloading week")
		return
	}
	for _, d := range week {
		if err := s.loadDay(ctx, d, true); err != nil {
			s.log.Warn().Err(err).Str("date", string(d)).Msg("reloading day")
		}
	}
	s.weeks.Delete(week[0])
}

// checkNewMission validates a catalog id and a set of labels.
func (s *Session) checkNewMission(ctx context.Context, catalogID int, labels []string) error {
	if !s.catalogHas(ctx, catalogID) {
		s.notify(model.NoticeError, msgUnknownMission)
		return fmt.Errorf("mission %d: %w", catalogID, ErrUnknownCatalogMission)
	}
	if len(labels) == 0 {
		s.notify(model.NoticeError, msgBlankSubmission)
		return &model.ValidationError{Field: "submission", Message: "at least one submission is required"}
	}
	for _, l := range labels {
		if strings.TrimSpace(l) == "" {
			s.notify(model.NoticeError, msgBlankSubmission)
			return &model.ValidationError{Field: "submission", Value: l, Message: "submission must not be blank"}
		}
	}
	return nil
}

// AddPersonalMission creates one weekly routine per label, running from
// date to the end of its week, and returns how many were created. Failed
// labels do not stop the rest. Every day of the week is reloaded afterwards.
func (s *Session) AddPersonalMission(
	ctx context.Context,
	date model.CalendarDate,
	catalogID int,
	labels []string,
) (int, error) {
	weekStart, _, err := dates.WeekWindow(date)
	if err != nil {
		return 0, err
	}
	if err := s.checkNewMission(ctx, catalogID, labels); err != nil {
		return 0, err
	}

	created := 0
	var lastErr error
	for _, raw := range labels {
		label := strings.TrimSpace(raw)
		if _, err := s.backend.CreateRoutine(ctx, catalogID, date, label); err != nil {
			lastErr = err
			if s.handleAuth(err) {
				s.notify(model.NoticeError, msgAuthExpired)
				return created, err
			}
			s.notify(model.NoticeError, routineFailureMessage(err))
			s.log.Warn().Err(err).Int("mission_id", catalogID).Str("submission", label).Msg("creating routine")
			continue
		}
		created++
		s.local.SaveWeeklyRoutine(ctx, weekStart, model.WeeklyRoutineDefinition{
			MissionCatalogID:   catalogID,
			SubmissionLabel:    label,
			WeekStartDate:      weekStart,
			EffectiveStartDate: date,
		})
	}

	if created > 0 {
		s.notify(model.NoticeSuccess, msgRoutineAdded)
	}
	s.reloadWeek(ctx, date)

	if created == 0 {
		return 0, lastErr
	}
	return created, nil
}

func routineFailureMessage(err error) string {
	switch api.StatusOf(err) {
	case http.StatusBadRequest:
		return messageOr(err, msgRoutineFailed)
	case http.StatusConflict:
		return msgRoutineDuplicate
	default:
		return msgRoutineFailed
	}
}

// AddDailyMission records a one-off mission on date only.
func (s *Session) AddDailyMission(
	ctx context.Context,
	date model.CalendarDate,
	catalogID int,
	label string,
) (model.MissionEntry, error) {
	if _, err := dates.Parse(string(date)); err != nil {
		return model.MissionEntry{}, err
	}
	if err := s.checkNewMission(ctx, catalogID, []string{label}); err != nil {
		return model.MissionEntry{}, err
	}
	label = strings.TrimSpace(label)
	key := model.MissionKey{CatalogID: catalogID, Label: label}

	s.mu.Lock()
	dup := indexOf(s.missions[date], key) >= 0
	s.mu.Unlock()
	if dup {
		s.notify(model.NoticeError, msgMissionDuplicate)
		return model.MissionEntry{}, ErrDuplicateMission
	}

	entry, err := s.backend.AddDayMission(ctx, date, catalogID, label)
	if err != nil {
		return model.MissionEntry{}, s.fail(err, messageOr(err, msgMissionAddFailed))
	}

	s.mu.Lock()
	list := model.DedupeMissions(append(cloneEntries(s.missions[date]), entry))
	s.mu.Unlock()
	s.commitDay(ctx, date, list)
	s.notify(model.NoticeSuccess, msgMissionAdded)
	return entry, nil
}

// commitDay applies a locally edited list to state, the day cache and the
// device, and drops the owning week's summary.
func (s *Session) commitDay(ctx context.Context, date model.CalendarDate, list []model.MissionEntry) {
	s.applyDay(date, list)
	s.days.Set(date, cloneEntries(list))
	s.persistDay(ctx, date)
	if monday, _, err := dates.WeekWindow(date); err == nil {
		s.weeks.Delete(monday)
	}
}

func indexOf(list []model.MissionEntry, key model.MissionKey) int {
	for i, e := range list {
		if e.Key() == key {
			return i
		}
	}
	return -1
}

// target returns the selected date and its entry at index.
func (s *Session) target(index int) (model.CalendarDate, model.MissionEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.missions[s.selected]
	if index < 0 || index >= len(list) {
		return s.selected, model.MissionEntry{}, 0, fmt.Errorf("%w: %d", ErrNoSuchMission, index)
	}
	e := list[index]
	id, ok := s.records[s.selected][e.Key()]
	if !ok && e.ServerRecordID != nil {
		id = *e.ServerRecordID
	}
	return s.selected, e, id, nil
}

// DeleteMission removes the entry at index of the selected date. Deleting
// a routine entry deletes the routine and reloads its whole week; deleting
// a daily entry updates the list immediately.
func (s *Session) DeleteMission(ctx context.Context, index int) error {
	date, entry, recordID, err := s.target(index)
	if err != nil {
		return err
	}

	if entry.IsWeeklyRoutine && entry.RoutineID != nil {
		if err := s.backend.DeleteRoutine(ctx, *entry.RoutineID); err != nil {
			return s.fail(err, msgDeleteFailed)
		}
		if weekStart, _, err := dates.WeekWindow(date); err == nil {
			s.local.DeleteWeeklyRoutine(ctx, weekStart, entry.MissionCatalogID, entry.SubmissionLabel)
		}
		s.reloadWeek(ctx, date)
		return nil
	}

	if recordID != 0 {
		if err := s.backend.DeleteDayMission(ctx, date, recordID); err != nil {
			return s.fail(err, msgDeleteFailed)
		}
	}

	key := entry.Key()
	s.mu.Lock()
	current := s.missions[date]
	list := make([]model.MissionEntry, 0, len(current))
	for _, e := range current {
		if e.Key() != key {
			list = append(list, e)
		}
	}
	s.mu.Unlock()
	s.commitDay(ctx, date, list)
	return nil
}

// ToggleComplete flips the completion of the entry at index of the selected
// date. Entries without a server record cannot be toggled.
func (s *Session) ToggleComplete(ctx context.Context, index int) (model.MissionEntry, error) {
	date, entry, recordID, err := s.target(index)
	if err != nil {
		return model.MissionEntry{}, err
	}
	if recordID == 0 {
		s.notify(model.NoticeError, msgToggleFailed)
		return model.MissionEntry{}, ErrNotSynced
	}

	updated, err := s.backend.SetDayMissionCompleted(ctx, date, recordID, !entry.Completed)
	if err != nil {
		return model.MissionEntry{}, s.fail(err, messageOr(err, msgToggleFailed))
	}
	entry.Completed = updated.Completed

	s.mu.Lock()
	list := cloneEntries(s.missions[date])
	if i := indexOf(list, entry.Key()); i >= 0 {
		list[i].Completed = entry.Completed
	}
	s.mu.Unlock()
	s.commitDay(ctx, date, list)
	return entry, nil
}
