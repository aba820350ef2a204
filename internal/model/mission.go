package model

import "strconv"

// CalendarDate is a civil date formatted as YYYY-MM-DD in the fixed UTC+9 offset.
type CalendarDate string

func (d CalendarDate) String() string { return string(d) }

// Server-enforced limits mirrored on the client.
const (
	MaxParticipants  = 3
	MaxGroupsPerUser = 2
)

// MissionEntry is one mission shown on a given day.
type MissionEntry struct {
	// MissionCatalogID references the catalog mission this entry belongs to.
	MissionCatalogID int `json:"missionId"`

	// SubmissionLabel is the concrete action the user committed to.
	SubmissionLabel string `json:"submission"`

	// IsWeeklyRoutine marks entries generated from a weekly routine.
	IsWeeklyRoutine bool `json:"isWeeklyRoutine,omitempty"`

	// RoutineID identifies the routine this entry was generated from.
	RoutineID *int `json:"routineId,omitempty"`

	// Completed reports whether the user finished the mission that day.
	Completed bool `json:"completed"`

	// ServerRecordID is the backend's per-day record id, when known.
	ServerRecordID *int `json:"serverRecordId,omitempty"`
}

// Key returns the (catalog id, label) pair that identifies an entry within a day.
func (m MissionEntry) Key() MissionKey {
	return MissionKey{CatalogID: m.MissionCatalogID, Label: m.SubmissionLabel}
}

// MissionKey is the uniqueness key of a mission within one date.
type MissionKey struct {
	CatalogID int
	Label     string
}

func (k MissionKey) String() string {
	return strconv.Itoa(k.CatalogID) + "::" + k.Label
}

// MissionsByDate maps each date to its ordered mission list.
type MissionsByDate map[CalendarDate][]MissionEntry

// Clone returns a deep copy of the map and its lists.
func (m MissionsByDate) Clone() MissionsByDate {
	out := make(MissionsByDate, len(m))
	for d, list := range m {
		cp := make([]MissionEntry, len(list))
		copy(cp, list)
		out[d] = cp
	}
	return out
}

// DedupeMissions drops later entries that repeat an earlier (catalog id, label) pair.
func DedupeMissions(list []MissionEntry) []MissionEntry {
	seen := make(map[MissionKey]struct{}, len(list))
	out := make([]MissionEntry, 0, len(list))
	for _, m := range list {
		k := m.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, m)
	}
	return out
}

// WeeklyRoutineDefinition is a routine stored on the device for one week.
type WeeklyRoutineDefinition struct {
	MissionCatalogID   int          `json:"missionId"`
	SubmissionLabel    string       `json:"submission"`
	WeekStartDate      CalendarDate `json:"weekStart,omitempty"`
	EffectiveStartDate CalendarDate `json:"startDate"`
}

// CatalogMission is a mission template offered by the backend.
type CatalogMission struct {
	ID          int      `json:"id"`
	Name        string   `json:"name,omitempty"`
	Category    string   `json:"category"`
	Submissions []string `json:"submissions"`
	Icon        string   `json:"icon,omitempty"`
}

// DisplayName returns the name, falling back to the category.
func (c CatalogMission) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Category
}

// DayCompletionSummary is the per-day aggregate served by the week summary endpoint.
type DayCompletionSummary struct {
	Date                   CalendarDate `json:"date"`
	TotalMissions          int          `json:"total_missions"`
	CompletedMissions      int          `json:"completed_missions"`
	CompletionRate         float64      `json:"completion_rate"`
	IsDayPerfectlyComplete bool         `json:"is_day_perfectly_complete"`
}
