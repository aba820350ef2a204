package theme

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ecomission/internal/dates"
	"github.com/nhle/ecomission/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorPink   = lipgloss.AdaptiveColor{Dark: "#F783AC", Light: "#B83280"}
	ColorPurple = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorGreen).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps the mission list.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the focused mission.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorGreen).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorGreen)

// DimmedStyle renders completed missions and empty states.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Strikethrough(true)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// RoutineBadgeStyle marks entries generated from a weekly routine.
var RoutineBadgeStyle = lipgloss.NewStyle().
	Foreground(ColorPurple).
	Bold(true)

// dayCell is the base of every cell in the week strip.
var dayCell = lipgloss.NewStyle().
	Width(6).
	Align(lipgloss.Center).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// DayStyle styles one cell of the week strip.
func DayStyle(selected, today, perfect bool) lipgloss.Style {
	s := dayCell
	switch {
	case selected:
		s = s.BorderForeground(ColorGreen).Bold(true)
	case today:
		s = s.BorderForeground(ColorBlue)
	}
	if perfect {
		s = s.Foreground(ColorGreen)
	}
	return s
}

// NoticeStyle returns the status bar style for a notice level.
func NoticeStyle(level model.NoticeLevel) lipgloss.Style {
	base := StatusBarStyle.Bold(true)
	switch level {
	case model.NoticeError:
		return base.Background(ColorRed)
	case model.NoticeSuccess:
		return base.Background(ColorGreen)
	default:
		return base.Background(ColorBlue)
	}
}

// TagColor maps a presentation color tag such as "bg-green-300" to a
// terminal color. Unknown tags fall back to gray.
func TagColor(tag string) lipgloss.TerminalColor {
	hue := strings.TrimPrefix(tag, "bg-")
	if i := strings.IndexByte(hue, '-'); i >= 0 {
		hue = hue[:i]
	}
	switch hue {
	case "green", "emerald", "lime":
		return ColorGreen
	case "blue", "sky", "cyan":
		return ColorBlue
	case "yellow", "amber", "orange":
		return ColorYellow
	case "red", "rose":
		return ColorRed
	case "pink":
		return ColorPink
	case "purple", "violet", "indigo":
		return ColorPurple
	default:
		return ColorGray
	}
}

// RenderWeekStrip renders the seven days of a week side by side, marking
// the selected day, today, and days with every mission completed.
func RenderWeekStrip(week []dates.WeekDay, selected model.CalendarDate, summaries []model.DayCompletionSummary) string {
	perfect := make(map[model.CalendarDate]bool, len(summaries))
	for _, s := range summaries {
		perfect[s.Date] = s.IsDayPerfectlyComplete
	}

	cells := make([]string, 0, len(week))
	for _, d := range week {
		label := d.Day + "\n" + strconv.Itoa(d.Number)
		if perfect[d.Date] {
			label += " ✓"
		}
		cells = append(cells, DayStyle(d.Date == selected, d.IsToday, perfect[d.Date]).Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

// RenderMission renders one mission line. name is the catalog name of the
// mission, if known.
func RenderMission(e model.MissionEntry, name string, focused bool) string {
	box := "[ ]"
	if e.Completed {
		box = "[x]"
	}
	text := e.SubmissionLabel
	if name != "" && name != e.SubmissionLabel {
		text += " · " + name
	}
	if e.Completed {
		text = DimmedStyle.Render(text)
	}
	line := box + " " + text
	if e.IsWeeklyRoutine {
		line += " " + RoutineBadgeStyle.Render("주간")
	}

	if focused {
		return SelectedItemStyle.Render(line)
	}
	return ListItemStyle.Render(line)
}
