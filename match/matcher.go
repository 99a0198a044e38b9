package match

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/lostfound/core"
)

// Outcome is the result of a matching run. Matches is never nil. Reason is
// set when the run produced no matches for a reason other than low
// similarity; it is informational and never means the caller failed.
type Outcome struct {
	Matches []core.MatchResult
	Reason  error
}

// Matcher ranks open reports of the opposite kind against a report.
type Matcher struct {
	cfg     *Config
	monitor Monitor
	index   *Index
	pool    *ants.Pool
	logger  *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithConfig replaces the default configuration.
func WithConfig(cfg *Config) Option {
	return func(m *Matcher) error {
		if cfg == nil {
			cfg = DefaultConfig()
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		m.cfg = cfg
		return nil
	}
}

// WithMonitor sets a monitor that observes every run.
// Default is a no-op monitor.
func WithMonitor(monitor Monitor) Option {
	return func(m *Matcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		m.monitor = monitor
		return nil
	}
}

// WithIndex enables term-count caching across runs.
func WithIndex(index *Index) Option {
	return func(m *Matcher) error {
		m.index = index
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewMatcher creates a Matcher. Call Release when done with it.
func NewMatcher(opts ...Option) (*Matcher, error) {
	m := &Matcher{
		cfg:     DefaultConfig(),
		monitor: &noopMonitor{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(m.cfg.Workers)
	if err != nil {
		return nil, err
	}
	m.pool = pool
	return m, nil
}

// Release stops the tokenization workers.
func (m *Matcher) Release() {
	if m.pool != nil {
		m.pool.Release()
	}
}

// Config returns the matcher's configuration.
func (m *Matcher) Config() Config {
	return *m.cfg
}

// Eligible returns the members of pool a report may be matched against:
// open reports of the opposite kind, in pool order.
func Eligible(report *core.Report, pool []*core.Report) []*core.Report {
	want := report.Kind.Opposite()
	out := make([]*core.Report, 0, len(pool))
	for _, candidate := range pool {
		if candidate == nil || candidate.Kind != want || candidate.Status != core.StatusOpen {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

// FindMatches scores report against the eligible members of pool and
// returns those whose similarity is strictly above the threshold, highest
// score first. Equal scores keep pool order. Failures never escape: they
// yield an empty Outcome with Reason set.
func (m *Matcher) FindMatches(ctx context.Context, report *core.Report, pool []*core.Report) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = m.fallback(fmt.Errorf("%w: %v", ErrMatchingFailed, r))
		}
		m.monitor.Finish(out.Matches, time.Since(start))
	}()

	if report == nil || core.ValidateKind(report.Kind) != nil {
		return m.fallback(ErrInvalidReport)
	}
	m.monitor.Start(report, len(pool))

	candidates := Eligible(report, pool)
	m.monitor.AfterFilter(candidates)
	if len(candidates) == 0 {
		return Outcome{Matches: []core.MatchResult{}, Reason: ErrEmptyCandidatePool}
	}

	bags := m.bags(report, candidates)
	if err := ctx.Err(); err != nil {
		return m.fallback(err)
	}

	vectors, err := weigh(bags)
	if err != nil {
		return m.fallback(err)
	}
	m.monitor.AfterVectorize(vocabularySize(bags))

	query := vectors[0]
	matches := []core.MatchResult{}
	for i, candidate := range candidates {
		sim := Cosine(query, vectors[i+1])
		kept := sim > m.cfg.Threshold
		m.monitor.Scored(candidate, sim, kept)
		if !kept {
			continue
		}
		matches = append(matches, core.MatchResult{
			Candidate: candidate.Id,
			Score:     roundScore(sim, m.cfg.Precision),
			Report:    candidate,
		})
	}
	slices.SortStableFunc(matches, func(a, b core.MatchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})

	m.logger.Debug("matched report", "report", report.Id, "kind", report.Kind,
		"candidates", len(candidates), "matches", len(matches))
	return Outcome{Matches: matches}
}

func (m *Matcher) fallback(reason error) Outcome {
	if errors.Is(reason, ErrDegenerateVocabulary) {
		m.logger.Debug("no terms to match on", "err", reason)
	} else {
		m.logger.Warn("matching fell back to no results", "err", reason)
	}
	m.monitor.Fallback(reason)
	return Outcome{Matches: []core.MatchResult{}, Reason: reason}
}

// bags tokenizes report followed by every candidate. Index 0 is report.
func (m *Matcher) bags(report *core.Report, candidates []*core.Report) []bag {
	bags := make([]bag, len(candidates)+1)
	bags[0] = m.bagOf(report)

	if len(candidates) <= m.cfg.ParallelCutoff {
		for i, c := range candidates {
			bags[i+1] = m.bagOf(c)
		}
		return bags
	}

	m.forEach(len(candidates), func(i int) {
		bags[i+1] = m.bagOf(candidates[i])
	})
	return bags
}

func (m *Matcher) bagOf(report *core.Report) bag {
	if m.index != nil {
		return m.index.bag(report, m.cfg.StopWords)
	}
	return newBag(tokenize(Surface(report), m.cfg.StopWords))
}

// forEach runs fn for every index in [0, n) on the worker pool, one
// contiguous chunk per worker. A panic in any chunk is re-raised on the
// calling goroutine once all chunks finish.
func (m *Matcher) forEach(n int, fn func(i int)) {
	workers := min(m.cfg.Workers, n)
	chunk := (n + workers - 1) / workers

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		panicked any
	)
	run := func(lo, hi int) {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				mu.Lock()
				if panicked == nil {
					panicked = r
				}
				mu.Unlock()
			}
		}()
		for i := lo; i < hi; i++ {
			fn(i)
		}
	}

	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		if err := m.pool.Submit(func() { run(lo, hi) }); err != nil {
			m.logger.Debug("worker pool unavailable, tokenizing inline", "err", err)
			run(lo, hi)
		}
	}
	wg.Wait()

	if panicked != nil {
		panic(panicked)
	}
}

func vocabularySize(bags []bag) int {
	seen := make(map[core.ID]struct{})
	for _, b := range bags {
		for _, id := range b.terms {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}
