package sync

import (
	gosync "sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ecomission/internal/model"
)

type dateSource struct {
	mu gosync.Mutex
	d  model.CalendarDate
}

func (s *dateSource) Today() model.CalendarDate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d
}

func (s *dateSource) Set(d model.CalendarDate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d = d
}

func TestPoller_CheckFiresOnChangeOnly(t *testing.T) {
	src := &dateSource{d: "2024-06-05"}
	type change struct{ prev, next model.CalendarDate }
	var changes []change

	p := New(time.Hour, src.Today, func(prev, next model.CalendarDate) {
		changes = append(changes, change{prev, next})
	}, zerolog.Nop())

	assert.False(t, p.Check())
	src.Set("2024-06-06")
	assert.True(t, p.Check())
	assert.False(t, p.Check())

	assert.Equal(t, []change{{"2024-06-05", "2024-06-06"}}, changes)
}

func TestPoller_StartStop(t *testing.T) {
	src := &dateSource{d: "2024-06-05"}
	fired := make(chan model.CalendarDate, 1)

	p := New(5*time.Millisecond, src.Today, func(_, next model.CalendarDate) {
		select {
		case fired <- next:
		default:
		}
	}, zerolog.Nop())

	p.Start()
	p.Start()
	require.True(t, p.Running())

	src.Set("2024-06-06")
	select {
	case d := <-fired:
		assert.Equal(t, model.CalendarDate("2024-06-06"), d)
	case <-time.After(time.Second):
		t.Fatal("rollover not observed")
	}

	p.Stop()
	p.Stop()
	assert.False(t, p.Running())
}
