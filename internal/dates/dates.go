// Package dates implements calendar arithmetic on YYYY-MM-DD strings in the
// fixed UTC+9 offset the backend keys all daily data by.
package dates

import (
	"fmt"
	"regexp"
	"time"

	"github.com/nhle/ecomission/internal/model"
)

const layout = "2006-01-02"

// Offset is the fixed zone every CalendarDate is expressed in.
var Offset = time.FixedZone("UTC+9", 9*60*60)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var weekdayAbbrev = [...]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// WeekDay is one cell of a Monday-first week strip.
type WeekDay struct {
	Date    model.CalendarDate
	Day     string
	Number  int
	IsToday bool
}

// Today returns the current date in the UTC+9 offset.
func Today() model.CalendarDate {
	return TodayAt(time.Now())
}

// TodayAt returns the UTC+9 date at instant t, independent of the host zone.
func TodayAt(t time.Time) model.CalendarDate {
	return model.CalendarDate(t.In(Offset).Format(layout))
}

// Parse validates s and returns it as a CalendarDate.
func Parse(s string) (model.CalendarDate, error) {
	if _, err := toTime(model.CalendarDate(s)); err != nil {
		return "", err
	}
	return model.CalendarDate(s), nil
}

// toTime interprets d as midnight UTC of that civil date, so arithmetic never
// sees the host's local zone.
func toTime(d model.CalendarDate) (time.Time, error) {
	if !datePattern.MatchString(string(d)) {
		return time.Time{}, &model.ValidationError{Field: "date", Value: string(d), Message: "expected YYYY-MM-DD"}
	}
	t, err := time.ParseInLocation(layout, string(d), time.UTC)
	if err != nil {
		return time.Time{}, &model.ValidationError{Field: "date", Value: string(d), Message: "not a calendar date"}
	}
	return t, nil
}

func fromTime(t time.Time) model.CalendarDate {
	return model.CalendarDate(t.Format(layout))
}

// AddDays shifts d by n days.
func AddDays(d model.CalendarDate, n int) (model.CalendarDate, error) {
	t, err := toTime(d)
	if err != nil {
		return "", err
	}
	return fromTime(t.AddDate(0, 0, n)), nil
}

// WeekWindow returns the Monday and Sunday of the week containing d.
func WeekWindow(d model.CalendarDate) (monday, sunday model.CalendarDate, err error) {
	t, err := toTime(d)
	if err != nil {
		return "", "", err
	}
	dow := int(t.Weekday())
	offset := 1 - dow
	if dow == 0 {
		offset = -6
	}
	start := t.AddDate(0, 0, offset)
	return fromTime(start), fromTime(start.AddDate(0, 0, 6)), nil
}

// WeekDates returns the seven dates Monday..Sunday of the week containing d.
func WeekDates(d model.CalendarDate) ([]model.CalendarDate, error) {
	monday, sunday, err := WeekWindow(d)
	if err != nil {
		return nil, err
	}
	return Between(monday, sunday)
}

// Between returns every date from `from` through `to` inclusive. An empty
// slice is returned when to precedes from.
func Between(from, to model.CalendarDate) ([]model.CalendarDate, error) {
	start, err := toTime(from)
	if err != nil {
		return nil, err
	}
	end, err := toTime(to)
	if err != nil {
		return nil, err
	}
	var out []model.CalendarDate
	for t := start; !t.After(end); t = t.AddDate(0, 0, 1) {
		out = append(out, fromTime(t))
	}
	return out, nil
}

// EnumerateWeek lists the week containing d, flagging the entry equal to today.
func EnumerateWeek(d, today model.CalendarDate) ([]WeekDay, error) {
	monday, _, err := WeekWindow(d)
	if err != nil {
		return nil, err
	}
	start, _ := toTime(monday)

	week := make([]WeekDay, 0, 7)
	for i := 0; i < 7; i++ {
		t := start.AddDate(0, 0, i)
		date := fromTime(t)
		week = append(week, WeekDay{
			Date:    date,
			Day:     weekdayAbbrev[t.Weekday()],
			Number:  t.Day(),
			IsToday: date == today,
		})
	}
	return week, nil
}

// FormatLabel renders d as "Y년 M월 D일".
func FormatLabel(d model.CalendarDate) (string, error) {
	t, err := toTime(d)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d년 %d월 %d일", t.Year(), int(t.Month()), t.Day()), nil
}

// IsMonday reports whether d falls on a Monday.
func IsMonday(d model.CalendarDate) (bool, error) {
	t, err := toTime(d)
	if err != nil {
		return false, err
	}
	return t.Weekday() == time.Monday, nil
}
