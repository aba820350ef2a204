package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/nhle/ecomission/internal/dates"
	"github.com/nhle/ecomission/internal/model"
)

const (
	dayMissionsPrefix    = "personal_missions:"
	weeklyRoutinesPrefix = "weekly_routines:"
)

// Keys of persisted local state outside the per-date namespaces.
const (
	KeyUserName          = "userName"
	KeyProfileColor      = "profileColor"
	KeyUserBio           = "userBio"
	KeyMissions          = "missions"
	KeyMyGroupMissions   = "myGroupMissions"
	KeyAvailableMissions = "availableMissions"
)

// Local is the device-local fallback for day missions, weekly routines and
// profile state. Storage failures are logged and swallowed: reads degrade to
// empty results and writes become no-ops.
type Local struct {
	kv  Store
	log zerolog.Logger
}

// NewLocal wraps a key-value store.
func NewLocal(kv Store, log zerolog.Logger) *Local {
	return &Local{kv: kv, log: log.With().Str("component", "local_store").Logger()}
}

func (l *Local) report(err *StorageError) {
	l.log.Warn().Err(err.Err).Str("op", err.Op).Str("key", err.Key).Msg("device storage failure")
}

// exists reports whether key holds a value. Read failures count as present.
func (l *Local) exists(ctx context.Context, key string) bool {
	_, err := l.kv.Get(ctx, key)
	return !errors.Is(err, ErrNotFound)
}

// readArray loads key and decodes it as a JSON array into dst. It reports
// false when the key is absent, unreadable, or not an array.
func (l *Local) readArray(ctx context.Context, key string, dst any) bool {
	raw, err := l.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		l.report(&StorageError{Op: "read", Key: key, Err: err})
		return false
	}
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		l.report(&StorageError{Op: "decode", Key: key, Err: errors.New("stored value is not an array")})
		return false
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		l.report(&StorageError{Op: "decode", Key: key, Err: err})
		return false
	}
	return true
}

// SaveValue stores v as JSON under key.
func (l *Local) SaveValue(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		l.report(&StorageError{Op: "encode", Key: key, Err: err})
		return
	}
	if err := l.kv.Set(ctx, key, string(data)); err != nil {
		l.report(&StorageError{Op: "write", Key: key, Err: err})
	}
}

// LoadValue decodes the JSON stored under key into dst and reports whether
// anything was loaded.
func (l *Local) LoadValue(ctx context.Context, key string, dst any) bool {
	raw, err := l.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		l.report(&StorageError{Op: "read", Key: key, Err: err})
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		l.report(&StorageError{Op: "decode", Key: key, Err: err})
		return false
	}
	return true
}

// LoadRaw returns the undecoded value under key.
func (l *Local) LoadRaw(ctx context.Context, key string) ([]byte, bool) {
	raw, err := l.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false
	}
	if err != nil {
		l.report(&StorageError{Op: "read", Key: key, Err: err})
		return nil, false
	}
	return []byte(raw), true
}

// SaveDayMissions overwrites the snapshot of date's mission list.
func (l *Local) SaveDayMissions(ctx context.Context, date model.CalendarDate, entries []model.MissionEntry) {
	if entries == nil {
		entries = []model.MissionEntry{}
	}
	l.SaveValue(ctx, dayMissionsPrefix+string(date), entries)
}

// LoadDayMissions returns the snapshot for date, or an empty list when none
// exists or the stored value is not an array.
func (l *Local) LoadDayMissions(ctx context.Context, date model.CalendarDate) []model.MissionEntry {
	var entries []model.MissionEntry
	if !l.readArray(ctx, dayMissionsPrefix+string(date), &entries) {
		return []model.MissionEntry{}
	}
	return entries
}

// LoadWeeklyRoutines returns the definitions stored for weekStart.
func (l *Local) LoadWeeklyRoutines(ctx context.Context, weekStart model.CalendarDate) []model.WeeklyRoutineDefinition {
	var defs []model.WeeklyRoutineDefinition
	if !l.readArray(ctx, weeklyRoutinesPrefix+string(weekStart), &defs) {
		return []model.WeeklyRoutineDefinition{}
	}
	for i := range defs {
		defs[i].WeekStartDate = weekStart
	}
	return defs
}

// SaveWeeklyRoutine appends def to weekStart's list unless an entry with the
// same (catalog id, label) already exists.
// A stored list that cannot be decoded is replaced.
func (l *Local) SaveWeeklyRoutine(ctx context.Context, weekStart model.CalendarDate, def model.WeeklyRoutineDefinition) {
	key := weeklyRoutinesPrefix + string(weekStart)
	var defs []model.WeeklyRoutineDefinition
	if !l.readArray(ctx, key, &defs) {
		if l.exists(ctx, key) {
			l.log.Warn().Str("key", key).Msg("overwriting unreadable weekly routines")
		}
		defs = nil
	}
	for _, d := range defs {
		if d.MissionCatalogID == def.MissionCatalogID && d.SubmissionLabel == def.SubmissionLabel {
			return
		}
	}
	for i := range defs {
		defs[i].WeekStartDate = weekStart
	}
	def.WeekStartDate = weekStart
	defs = append(defs, def)
	l.SaveValue(ctx, key, defs)
}

// DeleteWeeklyRoutine removes the (catalog id, label) definition from weekStart.
func (l *Local) DeleteWeeklyRoutine(ctx context.Context, weekStart model.CalendarDate, catalogID int, label string) {
	defs := l.LoadWeeklyRoutines(ctx, weekStart)
	kept := defs[:0]
	for _, d := range defs {
		if d.MissionCatalogID == catalogID && d.SubmissionLabel == label {
			continue
		}
		kept = append(kept, d)
	}
	if len(kept) == len(defs) {
		return
	}
	l.SaveValue(ctx, weeklyRoutinesPrefix+string(weekStart), kept)
}

// ExpandRoutinesForDate materializes the routines of date's week that are
// in effect on date.
func (l *Local) ExpandRoutinesForDate(ctx context.Context, date model.CalendarDate) ([]model.MissionEntry, error) {
	weekStart, _, err := dates.WeekWindow(date)
	if err != nil {
		return nil, err
	}
	defs := l.LoadWeeklyRoutines(ctx, weekStart)
	out := make([]model.MissionEntry, 0, len(defs))
	for i, d := range defs {
		// Lexical order equals chronological order for YYYY-MM-DD.
		if d.EffectiveStartDate > date {
			continue
		}
		id := RoutineID(weekStart, d.MissionCatalogID, d.SubmissionLabel, i)
		out = append(out, model.MissionEntry{
			MissionCatalogID: d.MissionCatalogID,
			SubmissionLabel:  d.SubmissionLabel,
			IsWeeklyRoutine:  true,
			RoutineID:        &id,
			Completed:        false,
		})
	}
	return out, nil
}

// RoutineID derives a stable positive id from the routine's identity using
// 32-bit FNV-1a. The position fallback covers a zero hash.
func RoutineID(weekStart model.CalendarDate, catalogID int, label string, index int) int {
	h := fnv.New32a()
	h.Write([]byte(string(weekStart) + "-" + strconv.Itoa(catalogID) + "-" + label))
	id := int(h.Sum32() & 0x7fffffff)
	if id == 0 {
		return index + 1
	}
	return id
}
