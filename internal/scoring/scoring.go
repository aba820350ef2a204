// Package scoring computes streaks and daily scores from mission and group state.
package scoring

import (
	"github.com/nhle/ecomission/internal/dates"
	"github.com/nhle/ecomission/internal/model"
)

// Points awarded per day.
const (
	maxPersonalPoints  = 3
	groupPoints        = 2
	fullGroupPoints    = 4
	fullGroupThreshold = model.MaxParticipants
)

// GroupCompletions records, per group id, the participant names that
// completed the group's mission on a given date.
type GroupCompletions map[int][]string

// StreakLength counts consecutive dates ending at today whose mission list
// is non-empty. It probes backward one day at a time.
func StreakLength(missions model.MissionsByDate, today model.CalendarDate) (int, error) {
	streak := 0
	d := today
	for len(missions[d]) > 0 {
		streak++
		prev, err := dates.AddDays(d, -1)
		if err != nil {
			return 0, err
		}
		d = prev
	}
	if streak == 0 {
		if _, err := dates.Parse(string(today)); err != nil {
			return 0, err
		}
	}
	return streak, nil
}

// TotalMissionCount sums list lengths across all dates.
func TotalMissionCount(missions model.MissionsByDate) int {
	total := 0
	for _, list := range missions {
		total += len(list)
	}
	return total
}

// PersonalDailyScore awards one point per mission on date, capped at three.
func PersonalDailyScore(missions model.MissionsByDate, date model.CalendarDate) int {
	return min(len(missions[date]), maxPersonalPoints)
}

// GroupDailyScore scores one group for a day: 2 points when anyone completed
// it, 4 when a full three-member group completed it together.
func GroupDailyScore(group model.GroupMission, completed []string) int {
	if len(completed) == 0 {
		return 0
	}
	if len(group.Participants) == fullGroupThreshold {
		done := make(map[string]struct{}, len(completed))
		for _, name := range completed {
			done[name] = struct{}{}
		}
		all := true
		for _, p := range group.Participants {
			if _, ok := done[p.Name]; !ok {
				all = false
				break
			}
		}
		if all {
			return fullGroupPoints
		}
	}
	return groupPoints
}

// DayScore adds the personal score to the best single group score of the day.
func DayScore(
	missions model.MissionsByDate,
	groups []model.GroupMission,
	completions map[model.CalendarDate]GroupCompletions,
	date model.CalendarDate,
) int {
	best := 0
	byGroup := completions[date]
	for _, g := range groups {
		if s := GroupDailyScore(g, byGroup[g.ID]); s > best {
			best = s
		}
	}
	return PersonalDailyScore(missions, date) + best
}

// TotalScore sums DayScore over every date in the range.
func TotalScore(
	missions model.MissionsByDate,
	groups []model.GroupMission,
	completions map[model.CalendarDate]GroupCompletions,
	dateRange []model.CalendarDate,
) (int, error) {
	total := 0
	for _, d := range dateRange {
		if _, err := dates.Parse(string(d)); err != nil {
			return 0, err
		}
		total += DayScore(missions, groups, completions, d)
	}
	return total, nil
}
