package rematch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/lostfound/core"
	"github.com/poiesic/lostfound/match"
	"github.com/poiesic/lostfound/storage"
)

// Config holds sweep settings.
type Config struct {
	// BatchSize is the number of reports matched per batch
	BatchSize int

	// ReportInterval is how often to report progress (number of reports)
	ReportInterval int

	// Workers is the number of reports matched concurrently
	Workers int

	// MaxRetries is the maximum number of attempts for repository reads
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns the default sweep settings.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		Workers:        4,
		MaxRetries:     3,
		RetryDelay:     500 * time.Millisecond,
	}
}

// Result is the outcome of re-matching one report.
type Result struct {
	Report  *core.Report
	Matches []core.MatchResult
	Reason  error
}

// Summary counts what a sweep did.
type Summary struct {
	Reports     int
	WithMatches int
	Matches     int
	Fallbacks   int
}

// Sink receives results in report ID order. Returning an error stops the sweep.
type Sink func(Result) error

// Sweeper re-runs matching over stored reports.
type Sweeper struct {
	repo     storage.ReportRepository
	matcher  *match.Matcher
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewSweeper creates a sweeper. progress may be nil to disable progress output.
func NewSweeper(repo storage.ReportRepository, matcher *match.Matcher, config *Config, progress io.Writer) (*Sweeper, error) {
	if repo == nil {
		return nil, ErrReportRepositoryRequired
	}
	if matcher == nil {
		return nil, ErrMatcherRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Sweeper{
		repo:     repo,
		matcher:  matcher,
		config:   config,
		progress: progress,
		logger:   slog.Default(),
	}, nil
}

// WithLogger returns the sweeper after replacing its logger.
func (s *Sweeper) WithLogger(logger *slog.Logger) *Sweeper {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Run sweeps the open reports of each kind given, or of both kinds when none
// are given, and passes every result to sink.
func (s *Sweeper) Run(ctx context.Context, sink Sink, kinds ...core.Kind) (*Summary, error) {
	if len(kinds) == 0 {
		kinds = []core.Kind{core.KindLost, core.KindFound}
	}

	pool, err := ants.NewPool(max(s.config.Workers, 1))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	summary := &Summary{}
	for _, kind := range kinds {
		if err := core.ValidateKind(kind); err != nil {
			return summary, err
		}
		if err := s.sweep(ctx, pool, kind, sink, summary); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func (s *Sweeper) sweep(ctx context.Context, pool *ants.Pool, kind core.Kind, sink Sink, summary *Summary) error {
	iterator := NewReportIterator(s.repo, kind, s.config.BatchSize)

	var reports, candidates []*core.Report
	err := RetryWithBackoff(ctx, func() error {
		var err error
		if reports, err = iterator.Open(ctx); err != nil {
			return err
		}
		candidates, err = s.repo.ListReports(ctx, kind.Opposite(), core.StatusOpen)
		return err
	}, s.config.MaxRetries, s.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to load %s reports: %w", kind, err)
	}

	if len(reports) == 0 {
		fmt.Fprintf(s.progress, "No open %s reports\n", kind)
		return nil
	}
	fmt.Fprintf(s.progress, "Matching %d open %s reports against %d candidates (batch size: %d)\n",
		len(reports), kind, len(candidates), s.config.BatchSize)

	tracker := NewProgressTracker(s.progress, kind.String(), len(reports), s.config.ReportInterval)
	tracker.Start()

	err = iterator.ForEach(ctx, reports, func(batch []*core.Report) error {
		results := s.matchBatch(ctx, pool, batch, candidates)
		for _, result := range results {
			summary.Reports++
			if len(result.Matches) > 0 {
				summary.WithMatches++
				summary.Matches += len(result.Matches)
			}
			if result.Reason != nil && len(candidates) > 0 {
				summary.Fallbacks++
			}
			if sink != nil {
				if err := sink(result); err != nil {
					return err
				}
			}
		}
		tracker.Increment(len(batch))
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()
	s.logger.Info("sweep finished", "kind", kind, "reports", len(reports),
		"elapsed", tracker.Elapsed().Round(time.Millisecond))
	return nil
}

// matchBatch matches every report of batch on the worker pool and returns
// results in batch order.
func (s *Sweeper) matchBatch(ctx context.Context, pool *ants.Pool, batch, candidates []*core.Report) []Result {
	results := make([]Result, len(batch))
	var wg sync.WaitGroup
	for i, report := range batch {
		task := func() {
			defer wg.Done()
			out := s.matcher.FindMatches(ctx, report, candidates)
			results[i] = Result{Report: report, Matches: out.Matches, Reason: out.Reason}
		}
		wg.Add(1)
		if err := pool.Submit(task); err != nil {
			s.logger.Debug("worker pool unavailable, matching inline", "err", err)
			task()
		}
	}
	wg.Wait()
	return results
}
