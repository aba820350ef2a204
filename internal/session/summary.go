package session

import (
	"context"

	"github.com/nhle/ecomission/internal/dates"
	"github.com/nhle/ecomission/internal/model"
	"github.com/nhle/ecomission/internal/scoring"
)

func (s *Session) applySummaries(summaries []model.DayCompletionSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sum := range summaries {
		s.summaries[sum.Date] = sum
	}
}

// RefreshWeekSummary loads the completion summary of date's week, keyed by
// its Monday. When the summary cannot be fetched, every day of the week
// shows as having no completions; that placeholder is not cached.
func (s *Session) RefreshWeekSummary(ctx context.Context, date model.CalendarDate, force bool) ([]model.DayCompletionSummary, error) {
	monday, _, err := dates.WeekWindow(date)
	if err != nil {
		return nil, err
	}

	summaries, err := s.weeks.GetOrFetch(ctx, monday, func(ctx context.Context) ([]model.DayCompletionSummary, error) {
		return s.backend.WeekSummary(ctx, monday)
	}, force)
	if err == nil {
		return append([]model.DayCompletionSummary(nil), summaries...), nil
	}

	s.handleAuth(err)
	s.log.Warn().Err(err).Str("week", string(monday)).Msg("week summary unavailable")
	empty, err := emptyWeek(monday)
	if err != nil {
		return nil, err
	}
	s.applySummaries(empty)
	return empty, nil
}

func emptyWeek(monday model.CalendarDate) ([]model.DayCompletionSummary, error) {
	week, err := dates.WeekDates(monday)
	if err != nil {
		return nil, err
	}
	out := make([]model.DayCompletionSummary, len(week))
	for i, d := range week {
		out[i] = model.DayCompletionSummary{Date: d}
	}
	return out, nil
}

// Summaries returns the known summaries of date's week, Monday first. Days
// without one read as empty.
func (s *Session) Summaries(date model.CalendarDate) ([]model.DayCompletionSummary, error) {
	week, err := dates.WeekDates(date)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.DayCompletionSummary, len(week))
	for i, d := range week {
		sum, ok := s.summaries[d]
		if !ok {
			sum = model.DayCompletionSummary{Date: d}
		}
		out[i] = sum
	}
	return out, nil
}

// WeekScore totals the day scores of date's week from the state loaded so
// far. A group counts as completed by the caller on a day when that day's
// group listing has it checked.
func (s *Session) WeekScore(date model.CalendarDate) (int, error) {
	week, err := dates.WeekDates(date)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	missions := s.missions.Clone()
	groups := cloneGroups(s.groupLists[baseGroupKey])
	name := s.profile.Name
	completions := make(map[model.CalendarDate]scoring.GroupCompletions, len(week))
	for _, d := range week {
		byGroup := make(scoring.GroupCompletions)
		for _, g := range s.groupLists[groupKeyFor(d)] {
			if g.Checked != nil && *g.Checked {
				byGroup[g.ID] = []string{name}
			}
		}
		completions[d] = byGroup
	}
	s.mu.Unlock()

	return scoring.TotalScore(missions, groups, completions, week)
}
