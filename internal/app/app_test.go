package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ecomission/internal/dates"
	"github.com/nhle/ecomission/internal/model"
)

type fakeController struct {
	mu        sync.Mutex
	today     model.CalendarDate
	selected  model.CalendarDate
	days      model.MissionsByDate
	loads     []model.CalendarDate
	forced    []bool
	toggled   []int
	deleted   []int
	weekCalls int
	notices   chan model.Notice
	toggleErr error
}

func newFakeController() *fakeController {
	return &fakeController{
		today:    "2024-06-05",
		selected: "2024-06-05",
		days: model.MissionsByDate{
			"2024-06-05": {
				{MissionCatalogID: 101, SubmissionLabel: "아침 텀블러"},
				{MissionCatalogID: 103, SubmissionLabel: "버스 출근", Completed: true},
			},
		},
		notices: make(chan model.Notice, 4),
	}
}

func (f *fakeController) Today() model.CalendarDate { return f.today }

func (f *fakeController) Selected() (model.CalendarDate, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected, f.selected == f.today
}

func (f *fakeController) SelectDate(date model.CalendarDate) error {
	if _, err := dates.Parse(string(date)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = date
	return nil
}

func (f *fakeController) LoadDay(_ context.Context, date model.CalendarDate, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, date)
	f.forced = append(f.forced, force)
	return nil
}

func (f *fakeController) CurrentMissions() []model.MissionEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.MissionEntry(nil), f.days[f.selected]...)
}

func (f *fakeController) ToggleComplete(_ context.Context, index int) (model.MissionEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggled = append(f.toggled, index)
	if f.toggleErr != nil {
		return model.MissionEntry{}, f.toggleErr
	}
	list := f.days[f.selected]
	list[index].Completed = !list[index].Completed
	return list[index], nil
}

func (f *fakeController) DeleteMission(_ context.Context, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, index)
	list := f.days[f.selected]
	f.days[f.selected] = append(list[:index:index], list[index+1:]...)
	return nil
}

func (f *fakeController) RefreshWeekSummary(_ context.Context, date model.CalendarDate, _ bool) ([]model.DayCompletionSummary, error) {
	f.mu.Lock()
	f.weekCalls++
	f.mu.Unlock()
	week, err := dates.WeekDates(date)
	if err != nil {
		return nil, err
	}
	out := make([]model.DayCompletionSummary, len(week))
	for i, d := range week {
		out[i] = model.DayCompletionSummary{Date: d}
	}
	return out, nil
}

func (f *fakeController) Streak() (int, error) { return 3, nil }

func (f *fakeController) Catalog() []model.CatalogMission {
	return []model.CatalogMission{{ID: 101, Name: "텀블러 사용하기"}}
}

func (f *fakeController) Notices() <-chan model.Notice { return f.notices }

// runCmd executes cmd and any batched commands, collecting their messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

// feed runs cmd and passes every resulting message back into the model,
// following up on the commands those produce.
func feed(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range runCmd(cmd) {
		var next tea.Cmd
		m, next = update(t, m, msg)
		m = feed(t, m, next)
	}
	return m
}

func TestNextDayLoadsSelection(t *testing.T) {
	f := newFakeController()
	m := New(f)

	m, cmd := update(t, m, keyMsg("l"))
	assert.True(t, m.loading)
	sel, _ := f.Selected()
	assert.Equal(t, model.CalendarDate("2024-06-06"), sel)

	m = feed(t, m, cmd)
	assert.False(t, m.loading)
	assert.Equal(t, []model.CalendarDate{"2024-06-06"}, f.loads)
	assert.Equal(t, []bool{false}, f.forced)
	assert.Empty(t, m.missions)
	assert.Len(t, m.summaries, 7)
}

func TestPrevDayAndToday(t *testing.T) {
	f := newFakeController()
	m := New(f)

	m, _ = update(t, m, keyMsg("h"))
	sel, follows := f.Selected()
	assert.Equal(t, model.CalendarDate("2024-06-04"), sel)
	assert.False(t, follows)

	m, _ = update(t, m, keyMsg("t"))
	sel, follows = f.Selected()
	assert.Equal(t, model.CalendarDate("2024-06-05"), sel)
	assert.True(t, follows)
	assert.Len(t, m.missions, 2)
}

func TestStaleDayLoadIgnored(t *testing.T) {
	f := newFakeController()
	m := New(f)
	m.loading = true

	m, _ = update(t, m, dayLoadedMsg{date: "2024-06-01"})
	assert.True(t, m.loading)

	m, _ = update(t, m, dayLoadedMsg{date: "2024-06-05"})
	assert.False(t, m.loading)
}

func TestRefreshForcesReload(t *testing.T) {
	f := newFakeController()
	m := New(f)

	m, cmd := update(t, m, keyMsg("r"))
	_ = feed(t, m, cmd)
	assert.Equal(t, []bool{true}, f.forced)
	assert.Equal(t, 1, f.weekCalls)
}

func TestToggleAndDeleteUseCursor(t *testing.T) {
	f := newFakeController()
	m := New(f)

	m, _ = update(t, m, keyMsg("down"))
	assert.Equal(t, 1, m.cursor)

	m, cmd := update(t, m, keyMsg(" "))
	m = feed(t, m, cmd)
	assert.Equal(t, []int{1}, f.toggled)
	assert.False(t, m.missions[1].Completed)
	assert.Equal(t, 1, f.weekCalls)

	m, cmd = update(t, m, keyMsg("d"))
	m = feed(t, m, cmd)
	assert.Equal(t, []int{1}, f.deleted)
	require.Len(t, m.missions, 1)
	assert.Equal(t, 0, m.cursor)
}

func TestFailedToggleSkipsWeekReload(t *testing.T) {
	f := newFakeController()
	f.toggleErr = errors.New("not synced")
	m := New(f)

	m, cmd := update(t, m, keyMsg(" "))
	m = feed(t, m, cmd)
	assert.Equal(t, []int{0}, f.toggled)
	assert.Zero(t, f.weekCalls)
	assert.False(t, m.missions[0].Completed)
}

func TestEmptyDayIgnoresActions(t *testing.T) {
	f := newFakeController()
	f.days = model.MissionsByDate{}
	m := New(f)

	_, cmd := update(t, m, keyMsg(" "))
	assert.Nil(t, cmd)
	_, cmd = update(t, m, keyMsg("d"))
	assert.Nil(t, cmd)
}

func TestNoticeShownUntilExpired(t *testing.T) {
	f := newFakeController()
	m := New(f)
	now := time.Date(2024, 6, 5, 3, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	n := model.NewNotice(model.NoticeSuccess, "루틴이 추가됐어요", now)
	m, _ = update(t, m, noticeMsg{notice: n})
	require.NotNil(t, m.notice)
	assert.Equal(t, n.ID, m.notice.ID)

	m, _ = update(t, m, noticeExpiredMsg{id: "other"})
	assert.NotNil(t, m.notice)

	m, _ = update(t, m, noticeExpiredMsg{id: n.ID})
	assert.Nil(t, m.notice)
}

func TestWaitForNoticeReadsChannel(t *testing.T) {
	f := newFakeController()
	m := New(f)

	n := model.NewNotice(model.NoticeError, "실패", time.Now())
	f.notices <- n
	msg := m.waitForNotice()()
	assert.Equal(t, noticeMsg{notice: n}, msg)

	close(f.notices)
	assert.Nil(t, m.waitForNotice()())
}

func TestViewRendersDayAndMissions(t *testing.T) {
	f := newFakeController()
	m := New(f)
	assert.Equal(t, "Loading...", m.View())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m.loading = false

	view := m.View()
	assert.Contains(t, view, "2024년 6월 5일")
	assert.Contains(t, view, "아침 텀블러")
	assert.Contains(t, view, "텀블러 사용하기")
	assert.Contains(t, view, "연속 3일")
}

func TestQuit(t *testing.T) {
	m := New(newFakeController())
	_, cmd := update(t, m, keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, validateEmail("user@example.com"))
	assert.Error(t, validateEmail(""))
	assert.Error(t, validateEmail("not-an-email"))
	assert.Error(t, validateRequired("비밀번호")("  "))
	assert.NoError(t, validateRequired("비밀번호")("secret"))
}

func TestPromptLoginSkipsFormWhenComplete(t *testing.T) {
	c, err := PromptLogin(Credentials{Email: "a@b.co", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", c.Email)
}
