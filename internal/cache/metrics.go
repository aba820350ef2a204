package cache

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup outcomes.
const (
	resultHit        = "hit"
	resultFetch      = "fetch"
	resultShared     = "shared"
	resultSuperseded = "superseded"
	resultError      = "error"
)

// Metrics counts cache lookups by cache name and outcome. A nil *Metrics
// records nothing.
type Metrics struct {
	lookups *prometheus.CounterVec
}

// NewMetrics registers the lookup counter with reg. Registering twice on
// the same registerer reuses the existing collector.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecomission",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by cache and outcome.",
	}, []string{"cache", "result"})

	if err := reg.Register(lookups); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		lookups = existing
	}
	return &Metrics{lookups: lookups}, nil
}

func (m *Metrics) observe(cache, result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(cache, result).Inc()
}
