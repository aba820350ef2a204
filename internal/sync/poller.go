// Package sync runs the background day-rollover poller.
package sync

import (
	gosync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/ecomission/internal/model"
)

// DefaultInterval is how often the poller compares today against the last
// observed date.
const DefaultInterval = 60 * time.Second

// RolloverFunc is invoked when the observed date changes.
type RolloverFunc func(prev, next model.CalendarDate)

// Poller watches the calendar date and reports day changes. It is started
// once and must be stopped explicitly.
type Poller struct {
	interval   time.Duration
	today      func() model.CalendarDate
	onRollover RolloverFunc
	log        zerolog.Logger

	mu      gosync.Mutex
	last    model.CalendarDate
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New creates a Poller that reads the date from today.
func New(interval time.Duration, today func() model.CalendarDate, onRollover RolloverFunc, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		interval:   interval,
		today:      today,
		onRollover: onRollover,
		log:        log.With().Str("component", "rollover").Logger(),
		last:       today(),
	}
}

// Start launches the polling goroutine. Starting a running poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.loop(stopCh, doneCh)
}

// Stop halts the polling goroutine and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	doneCh := p.doneCh
	p.mu.Unlock()

	<-doneCh
}

// Running reports whether the polling goroutine is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.Check()
		}
	}
}

// Check compares today against the last observed date once and fires the
// rollover callback on change. It reports whether a rollover happened.
func (p *Poller) Check() bool {
	next := p.today()

	p.mu.Lock()
	prev := p.last
	if next == prev {
		p.mu.Unlock()
		return false
	}
	p.last = next
	p.mu.Unlock()

	p.log.Info().Str("from", string(prev)).Str("to", string(next)).Msg("day rolled over")
	if p.onRollover != nil {
		p.onRollover(prev, next)
	}
	return true
}
