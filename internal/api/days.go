package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nhle/ecomission/internal/model"
)

// DayMissions lists the missions recorded for date. Backends that predate
// the /missions sub-resource are served by the legacy /days/{date} route.
func (c *Client) DayMissions(ctx context.Context, date model.CalendarDate) ([]model.MissionEntry, error) {
	var raw json.RawMessage
	err := c.Get(ctx, fmt.Sprintf("/days/%s/missions", date), &raw)
	if StatusOf(err) == http.StatusNotFound {
		raw = nil
		err = c.Get(ctx, fmt.Sprintf("/days/%s", date), &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching missions for %s: %w", date, err)
	}

	records, err := decodeList[dayMission](raw)
	if err != nil {
		return nil, fmt.Errorf("decoding missions for %s: %w", date, err)
	}

	entries := make([]model.MissionEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, r.toEntry())
	}
	return entries, nil
}

// AddDayMission records a one-off mission on date.
func (c *Client) AddDayMission(
	ctx context.Context,
	date model.CalendarDate,
	catalogID int,
	label string,
) (model.MissionEntry, error) {
	var created dayMission
	err := c.Post(ctx, fmt.Sprintf("/days/%s/missions", date),
		addDayMissionRequest{MissionID: catalogID, Submission: label}, &created)
	if err != nil {
		return model.MissionEntry{}, fmt.Errorf("adding mission on %s: %w", date, err)
	}
	return created.toEntry(), nil
}

// DeleteDayMission removes the per-day record id from date.
func (c *Client) DeleteDayMission(ctx context.Context, date model.CalendarDate, id int) error {
	if err := c.Delete(ctx, fmt.Sprintf("/days/%s/missions/%d", date, id)); err != nil {
		return fmt.Errorf("deleting mission %d on %s: %w", id, date, err)
	}
	return nil
}

// SetDayMissionCompleted marks the per-day record id done or not done.
func (c *Client) SetDayMissionCompleted(
	ctx context.Context,
	date model.CalendarDate,
	id int,
	completed bool,
) (model.MissionEntry, error) {
	var updated dayMission
	err := c.Request(ctx, http.MethodPatch, fmt.Sprintf("/days/%s/missions/%d/complete", date, id),
		completeRequest{Completed: completed}, &updated)
	if err != nil {
		return model.MissionEntry{}, fmt.Errorf("updating mission %d on %s: %w", id, date, err)
	}
	return updated.toEntry(), nil
}

// WeekSummary returns the seven per-day aggregates of the week containing date.
func (c *Client) WeekSummary(ctx context.Context, date model.CalendarDate) ([]model.DayCompletionSummary, error) {
	var raw json.RawMessage
	q := url.Values{"date": {string(date)}}
	if err := c.Get(ctx, "/days/week-summary?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("fetching week summary for %s: %w", date, err)
	}
	return decodeList[model.DayCompletionSummary](raw)
}

// CreateRoutine registers a weekly routine starting on date. An empty label
// lets the backend pick the catalog default.
func (c *Client) CreateRoutine(
	ctx context.Context,
	catalogID int,
	date model.CalendarDate,
	label string,
) (Routine, error) {
	var created Routine
	err := c.Post(ctx, "/personal-routines",
		routineRequest{MissionID: catalogID, Date: date, Submission: label}, &created)
	if err != nil {
		return Routine{}, fmt.Errorf("creating routine: %w", err)
	}
	return created, nil
}

// DeleteRoutine removes the weekly routine id.
func (c *Client) DeleteRoutine(ctx context.Context, id int) error {
	if err := c.Delete(ctx, fmt.Sprintf("/personal-routines/%d", id)); err != nil {
		return fmt.Errorf("deleting routine %d: %w", id, err)
	}
	return nil
}
