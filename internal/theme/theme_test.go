package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/ecomission/internal/dates"
	"github.com/nhle/ecomission/internal/model"
)

func TestTagColor(t *testing.T) {
	assert.Equal(t, ColorBlue, TagColor(model.DefaultGroupColor))
	assert.Equal(t, ColorGreen, TagColor(model.DefaultProfileColor))
	assert.Equal(t, ColorBlue, TagColor("bg-sky-300"))
	assert.Equal(t, ColorPurple, TagColor("purple"))
	assert.Equal(t, ColorGray, TagColor("bg-unknown-300"))
	assert.Equal(t, ColorGray, TagColor(""))
}

func TestRenderWeekStrip(t *testing.T) {
	week, err := dates.EnumerateWeek("2024-06-05", "2024-06-05")
	assert.NoError(t, err)

	out := RenderWeekStrip(week, "2024-06-05", []model.DayCompletionSummary{
		{Date: "2024-06-03", IsDayPerfectlyComplete: true},
	})
	assert.Contains(t, out, "✓")
	for _, d := range week {
		assert.Contains(t, out, d.Day)
	}
}

func TestRenderMission(t *testing.T) {
	line := RenderMission(model.MissionEntry{
		MissionCatalogID: 101,
		SubmissionLabel:  "아침 텀블러",
		IsWeeklyRoutine:  true,
	}, "텀블러 사용하기", false)
	assert.Contains(t, line, "[ ]")
	assert.Contains(t, line, "아침 텀블러 · 텀블러 사용하기")
	assert.Contains(t, line, "주간")

	done := RenderMission(model.MissionEntry{SubmissionLabel: "x", Completed: true}, "x", true)
	assert.Contains(t, done, "[x]")
}
