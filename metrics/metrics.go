// Package metrics provides Prometheus instrumentation for matching. It
// counts matcher invocations, returned matches and fallbacks, and records
// how long each run takes.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poiesic/lostfound/core"
	"github.com/poiesic/lostfound/match"
)

// Collectors holds the matcher metrics.
type Collectors struct {
	// Invocations counts matcher runs, labeled by the kind of the new report.
	Invocations *prometheus.CounterVec

	// Results counts matches returned across all runs.
	Results prometheus.Counter

	// Fallbacks counts runs that degraded to an empty result, labeled by
	// reason: "empty_pool", "degenerate", "invalid", "cancelled" or "panic".
	Fallbacks *prometheus.CounterVec

	// Duration records matcher run time in seconds.
	Duration prometheus.Histogram
}

// NewCollectors creates the matcher metrics and registers them with reg.
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_match_invocations_total",
			Help: "Total number of matcher runs",
		}, []string{"kind"}),
		Results: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lostfound_match_results_total",
			Help: "Total number of matches returned",
		}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_match_fallbacks_total",
			Help: "Total number of matcher runs that returned no result because of a fallback",
		}, []string{"reason"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lostfound_match_duration_seconds",
			Help:    "Matcher run time in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
	}

	for _, collector := range []prometheus.Collector{c.Invocations, c.Results, c.Fallbacks, c.Duration} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Monitor returns a match.Monitor that feeds these collectors.
func (c *Collectors) Monitor() match.Monitor {
	return &monitor{c: c}
}

// Handler returns the Prometheus metrics HTTP handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// FallbackReason maps a matcher outcome reason to a fallback label.
func FallbackReason(reason error) string {
	switch {
	case errors.Is(reason, match.ErrEmptyCandidatePool):
		return "empty_pool"
	case errors.Is(reason, match.ErrDegenerateVocabulary):
		return "degenerate"
	case errors.Is(reason, match.ErrInvalidReport):
		return "invalid"
	case errors.Is(reason, match.ErrMatchingFailed):
		return "panic"
	}
	return "cancelled"
}

type monitor struct {
	c *Collectors
}

var _ match.Monitor = (*monitor)(nil)

func (m *monitor) Start(report *core.Report, _ int) {
	m.c.Invocations.WithLabelValues(report.Kind.String()).Inc()
}

func (m *monitor) AfterFilter(candidates []*core.Report) {
	if len(candidates) == 0 {
		m.c.Fallbacks.WithLabelValues(FallbackReason(match.ErrEmptyCandidatePool)).Inc()
	}
}

func (m *monitor) AfterVectorize(_ int)                     {}
func (m *monitor) Scored(_ *core.Report, _ float64, _ bool) {}

func (m *monitor) Fallback(reason error) {
	m.c.Fallbacks.WithLabelValues(FallbackReason(reason)).Inc()
}

func (m *monitor) Finish(matches []core.MatchResult, elapsed time.Duration) {
	m.c.Results.Add(float64(len(matches)))
	m.c.Duration.Observe(elapsed.Seconds())
}
