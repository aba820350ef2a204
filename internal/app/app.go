// Package app is the interactive week view: a Bubble Tea program that
// browses days, toggles and deletes missions, and shows session notices.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ecomission/internal/dates"
	"github.com/nhle/ecomission/internal/keys"
	"github.com/nhle/ecomission/internal/model"
	"github.com/nhle/ecomission/internal/theme"
)

// Controller is the part of the session the week view drives.
type Controller interface {
	Today() model.CalendarDate
	Selected() (model.CalendarDate, bool)
	SelectDate(date model.CalendarDate) error
	LoadDay(ctx context.Context, date model.CalendarDate, force bool) error
	CurrentMissions() []model.MissionEntry
	ToggleComplete(ctx context.Context, index int) (model.MissionEntry, error)
	DeleteMission(ctx context.Context, index int) error
	RefreshWeekSummary(ctx context.Context, date model.CalendarDate, force bool) ([]model.DayCompletionSummary, error)
	Streak() (int, error)
	Catalog() []model.CatalogMission
	Notices() <-chan model.Notice
}

// Model is the root Bubble Tea model of the week view.
type Model struct {
	ctrl      Controller
	keys      *keys.KeyMap
	help      help.Model
	spinner   spinner.Model
	layout    Layout
	ready     bool
	loading   bool
	cursor    int
	missions  []model.MissionEntry
	summaries []model.DayCompletionSummary
	notice    *model.Notice
	now       func() time.Time
}

// New creates the week view over ctrl.
func New(ctrl Controller) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctrl:     ctrl,
		keys:     keys.DefaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		layout:   NewLayout(80, 24),
		loading:  true,
		missions: ctrl.CurrentMissions(),
		now:      time.Now,
	}
}

// Init loads the selected day and its week, and starts listening for
// notices.
func (m Model) Init() tea.Cmd {
	date, _ := m.ctrl.Selected()
	return tea.Batch(
		m.spinner.Tick,
		m.loadDay(date, false),
		m.loadWeek(date, false),
		m.waitForNotice(),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = NewLayout(msg.Width, msg.Height)
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case dayLoadedMsg:
		if selected, _ := m.ctrl.Selected(); msg.date != selected {
			return m, nil
		}
		m.loading = false
		m.setMissions(m.ctrl.CurrentMissions())
		return m, nil

	case weekLoadedMsg:
		m.summaries = msg.summaries
		return m, nil

	case missionChangedMsg:
		m.setMissions(m.ctrl.CurrentMissions())
		if msg.err != nil {
			return m, nil
		}
		date, _ := m.ctrl.Selected()
		return m, m.loadWeek(date, false)

	case noticeMsg:
		n := msg.notice
		m.notice = &n
		wait := n.ExpiresAt.Sub(m.now())
		return m, tea.Batch(
			m.waitForNotice(),
			tea.Tick(wait, func(time.Time) tea.Msg { return noticeExpiredMsg{id: n.ID} }),
		)

	case noticeExpiredMsg:
		if m.notice != nil && m.notice.ID == msg.id {
			m.notice = nil
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.PrevDay):
		return m.step(-1)

	case key.Matches(msg, m.keys.NextDay):
		return m.step(1)

	case key.Matches(msg, m.keys.Today):
		return m.selectDate(m.ctrl.Today())

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.missions)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if len(m.missions) == 0 {
			return m, nil
		}
		return m, m.toggle(m.cursor)

	case key.Matches(msg, m.keys.Delete):
		if len(m.missions) == 0 {
			return m, nil
		}
		return m, m.remove(m.cursor)

	case key.Matches(msg, m.keys.Refresh):
		date, _ := m.ctrl.Selected()
		m.loading = true
		return m, tea.Batch(m.loadDay(date, true), m.loadWeek(date, true))
	}
	return m, nil
}

// step moves the selection by n days.
func (m Model) step(n int) (tea.Model, tea.Cmd) {
	date, _ := m.ctrl.Selected()
	next, err := dates.AddDays(date, n)
	if err != nil {
		return m, nil
	}
	return m.selectDate(next)
}

func (m Model) selectDate(date model.CalendarDate) (tea.Model, tea.Cmd) {
	if err := m.ctrl.SelectDate(date); err != nil {
		return m, nil
	}
	m.loading = true
	m.cursor = 0
	m.missions = m.ctrl.CurrentMissions()
	return m, tea.Batch(m.loadDay(date, false), m.loadWeek(date, false))
}

func (m *Model) setMissions(list []model.MissionEntry) {
	m.missions = list
	if m.cursor >= len(list) {
		m.cursor = len(list) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View renders the week view.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	date, _ := m.ctrl.Selected()
	title, err := dates.FormatLabel(date)
	if err != nil {
		title = string(date)
	}
	header := m.layout.RenderHeader("에코미션 · "+title, m.status())

	week, err := dates.EnumerateWeek(date, m.ctrl.Today())
	var strip string
	if err == nil {
		strip = theme.RenderWeekStrip(week, date, m.summaries)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, strip, m.renderMissions())
	content = lipgloss.NewStyle().Height(m.layout.ContentHeight()).Render(content)

	var bar string
	if m.notice != nil {
		bar = m.layout.RenderStatusBar(m.notice.Message, theme.NoticeStyle(m.notice.Level))
	} else {
		bar = m.layout.RenderStatusBar(m.help.View(m.keys), theme.StatusBarStyle)
	}
	return m.layout.RenderWithFrame(header, content, bar)
}

func (m Model) status() string {
	if m.loading {
		return m.spinner.View() + " 불러오는 중"
	}
	streak, err := m.ctrl.Streak()
	if err != nil || streak == 0 {
		return ""
	}
	return fmt.Sprintf("연속 %d일", streak)
}

func (m Model) renderMissions() string {
	if len(m.missions) == 0 {
		return theme.HelpStyle.Render("  이 날의 미션이 없어요")
	}

	names := make(map[int]string)
	for _, c := range m.ctrl.Catalog() {
		names[c.ID] = c.Name
	}

	lines := make([]string, len(m.missions))
	for i, e := range m.missions {
		lines[i] = theme.RenderMission(e, names[e.MissionCatalogID], i == m.cursor)
	}
	return theme.PanelStyle.Render(strings.Join(lines, "\n"))
}
