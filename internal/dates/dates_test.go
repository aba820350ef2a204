package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ecomission/internal/model"
)

func TestTodayAt_ShiftsToUTCPlus9(t *testing.T) {
	cases := []struct {
		instant time.Time
		want    model.CalendarDate
	}{
		{time.Date(2024, 6, 2, 14, 59, 0, 0, time.UTC), "2024-06-02"},
		{time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC), "2024-06-03"},
		{time.Date(2024, 12, 31, 20, 0, 0, 0, time.UTC), "2025-01-01"},
		// Host zone must not matter.
		{time.Date(2024, 6, 2, 23, 30, 0, 0, time.FixedZone("PDT", -7*3600)), "2024-06-03"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TodayAt(tc.instant), tc.instant.String())
	}
}

func TestParse(t *testing.T) {
	d, err := Parse("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, model.CalendarDate("2024-02-29"), d)

	for _, bad := range []string{"2023-02-29", "2024-2-01", "20240201", "", "2024-13-01", "2024-01-01T00:00"} {
		_, err := Parse(bad)
		assert.True(t, model.IsValidationError(err), bad)
	}
}

func TestWeekWindow(t *testing.T) {
	cases := []struct {
		in             model.CalendarDate
		monday, sunday model.CalendarDate
	}{
		{"2024-06-05", "2024-06-03", "2024-06-09"}, // Wednesday
		{"2024-06-03", "2024-06-03", "2024-06-09"}, // Monday
		{"2024-06-09", "2024-06-03", "2024-06-09"}, // Sunday belongs to the preceding Monday
		{"2024-01-01", "2024-01-01", "2024-01-07"},
		{"2025-01-01", "2024-12-30", "2025-01-05"}, // spans a year boundary
	}
	for _, tc := range cases {
		mon, sun, err := WeekWindow(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.monday, mon, tc.in)
		assert.Equal(t, tc.sunday, sun, tc.in)

		isMon, err := IsMonday(mon)
		require.NoError(t, err)
		assert.True(t, isMon)
	}

	_, _, err := WeekWindow("bad")
	assert.True(t, model.IsValidationError(err))
}

func TestEnumerateWeek(t *testing.T) {
	week, err := EnumerateWeek("2024-06-05", "2024-06-07")
	require.NoError(t, err)
	require.Len(t, week, 7)

	assert.Equal(t, model.CalendarDate("2024-06-03"), week[0].Date)
	assert.Equal(t, "MON", week[0].Day)
	assert.Equal(t, 3, week[0].Number)
	assert.Equal(t, "SUN", week[6].Day)
	assert.Equal(t, 9, week[6].Number)

	for i, d := range week {
		assert.Equal(t, i == 4, d.IsToday, d.Date)
	}
}

func TestFormatLabel(t *testing.T) {
	got, err := FormatLabel("2024-06-05")
	require.NoError(t, err)
	assert.Equal(t, "2024년 6월 5일", got)

	_, err = FormatLabel("06/05/2024")
	assert.Error(t, err)
}

func TestBetweenAndAddDays(t *testing.T) {
	got, err := Between("2024-02-27", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, []model.CalendarDate{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"}, got)

	empty, err := Between("2024-03-01", "2024-02-27")
	require.NoError(t, err)
	assert.Empty(t, empty)

	prev, err := AddDays("2024-03-01", -1)
	require.NoError(t, err)
	assert.Equal(t, model.CalendarDate("2024-02-29"), prev)
}
