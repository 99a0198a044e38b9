package match

import (
	"time"

	"github.com/poiesic/lostfound/core"
)

// Monitor provides hooks to observe a matching run.
// Implement this interface to track intermediate steps and results.
type Monitor interface {
	Start(report *core.Report, poolSize int)
	AfterFilter(candidates []*core.Report)
	AfterVectorize(vocabulary int)
	Scored(candidate *core.Report, similarity float64, kept bool)
	Fallback(reason error)
	Finish(matches []core.MatchResult, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ *core.Report, _ int)                  {}
func (n *noopMonitor) AfterFilter(_ []*core.Report)                 {}
func (n *noopMonitor) AfterVectorize(_ int)                         {}
func (n *noopMonitor) Scored(_ *core.Report, _ float64, _ bool)     {}
func (n *noopMonitor) Fallback(_ error)                             {}
func (n *noopMonitor) Finish(_ []core.MatchResult, _ time.Duration) {}
