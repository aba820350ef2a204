package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/ecomission/internal/model"
)

// dayLoadedMsg is sent after a day has been loaded.
type dayLoadedMsg struct {
	date model.CalendarDate
	err  error
}

// weekLoadedMsg carries the completion summaries of the selected week.
type weekLoadedMsg struct {
	summaries []model.DayCompletionSummary
}

// missionChangedMsg is sent after a toggle or delete.
type missionChangedMsg struct{ err error }

// noticeMsg carries a notice raised by the session.
type noticeMsg struct{ notice model.Notice }

// noticeExpiredMsg dismisses the notice with the given ID.
type noticeExpiredMsg struct{ id string }

func (m Model) loadDay(date model.CalendarDate, force bool) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		err := ctrl.LoadDay(context.Background(), date, force)
		return dayLoadedMsg{date: date, err: err}
	}
}

func (m Model) loadWeek(date model.CalendarDate, force bool) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		summaries, err := ctrl.RefreshWeekSummary(context.Background(), date, force)
		if err != nil {
			return nil
		}
		return weekLoadedMsg{summaries: summaries}
	}
}

func (m Model) toggle(index int) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		_, err := ctrl.ToggleComplete(context.Background(), index)
		return missionChangedMsg{err: err}
	}
}

func (m Model) remove(index int) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return missionChangedMsg{err: ctrl.DeleteMission(context.Background(), index)}
	}
}

// waitForNotice blocks until the session raises the next notice.
func (m Model) waitForNotice() tea.Cmd {
	ch := m.ctrl.Notices()
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg{notice: n}
	}
}
