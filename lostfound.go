// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package lostfound

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/lostfound/core"
	"github.com/poiesic/lostfound/match"
	"github.com/poiesic/lostfound/notify"
	"github.com/poiesic/lostfound/rematch"
	"github.com/poiesic/lostfound/storage"
	"github.com/poiesic/lostfound/storage/badger"
)

// ErrReportRepositoryRequired is returned when a Registry is built without storage.
var ErrReportRepositoryRequired = errors.New("report repository is required")

// Registry records lost and found reports and matches each new report
// against the open reports of the opposite kind.
type Registry struct {
	backend  *badger.Backend
	repo     storage.ReportRepository
	matcher  *match.Matcher
	index    *match.Index
	notifier notify.Notifier
	logger   *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	matchOptions []match.Option
	notifier     notify.Notifier
	logger       *slog.Logger
}

// WithMatchOptions passes options to the registry's matcher.
func WithMatchOptions(opts ...match.Option) RegistryOption {
	return func(o *registryOptions) {
		o.matchOptions = append(o.matchOptions, opts...)
	}
}

// WithNotifier sets where match notifications are sent.
// Default is notify.NoopNotifier.
func WithNotifier(notifier notify.Notifier) RegistryOption {
	return func(o *registryOptions) {
		if notifier != nil {
			o.notifier = notifier
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(o *registryOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewRegistry opens (or creates) a badger-backed registry at filePath.
func NewRegistry(filePath string, opts ...RegistryOption) (*Registry, error) {
	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	repo, err := badger.NewReportRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	r, err := NewRegistryWithRepository(repo, opts...)
	if err != nil {
		repo.Close()
		backend.Close()
		return nil, err
	}
	r.backend = backend
	return r, nil
}

// NewRegistryWithRepository builds a registry on an already open
// repository, such as a postgres.Repository. The registry takes ownership
// of repo and closes it in Close.
func NewRegistryWithRepository(repo storage.ReportRepository, opts ...RegistryOption) (*Registry, error) {
	if repo == nil {
		return nil, ErrReportRepositoryRequired
	}

	options := &registryOptions{
		notifier: notify.NoopNotifier{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	index := match.NewIndex()
	matchOpts := append([]match.Option{
		match.WithLogger(options.logger),
		match.WithIndex(index),
	}, options.matchOptions...)
	matcher, err := match.NewMatcher(matchOpts...)
	if err != nil {
		return nil, err
	}

	return &Registry{
		repo:     repo,
		matcher:  matcher,
		index:    index,
		notifier: options.notifier,
		logger:   options.logger,
	}, nil
}

// Close releases the matcher, the repository and the backend.
func (r *Registry) Close() error {
	r.matcher.Release()

	if err := r.repo.Close(); err != nil {
		r.logger.Error("error closing report repository", "err", err)
		return err
	}

	if r.backend != nil {
		if err := r.backend.Close(); err != nil {
			r.logger.Error("error closing backend storage", "err", err)
			return err
		}
	}
	return nil
}

// Repository returns the underlying report repository.
func (r *Registry) Repository() storage.ReportRepository {
	return r.repo
}

// Matcher returns the registry's matcher.
func (r *Registry) Matcher() *match.Matcher {
	return r.matcher
}

// NewSweeper creates a rematch sweeper over the registry's reports.
func (r *Registry) NewSweeper(config *rematch.Config, progress io.Writer) (*rematch.Sweeper, error) {
	s, err := rematch.NewSweeper(r.repo, r.matcher, config, progress)
	if err != nil {
		return nil, err
	}
	return s.WithLogger(r.logger), nil
}

// Submission is a stored report together with the matches found for it.
// Reason explains an empty Matches that is not simply low similarity; it
// never means the report was not stored.
type Submission struct {
	Report  *core.Report
	Matches []core.MatchResult
	Reason  error
}

// Submit validates and stores report, then matches it against the open
// reports of the opposite kind. Only validation and storage failures are
// returned; matching and notification problems are logged and reported
// through Submission.Reason.
func (r *Registry) Submit(ctx context.Context, report *core.Report) (*Submission, error) {
	if report == nil {
		return nil, core.ValidateReport(nil)
	}
	report.Title = strings.TrimSpace(report.Title)
	if report.Status == 0 {
		report.Status = core.StatusOpen
	}
	report.IsPerson = report.IsPerson || core.IsPersonCategory(report.Category)
	if err := core.ValidateReport(report); err != nil {
		return nil, err
	}

	added, err := r.repo.AddReports(ctx, report)
	if err != nil {
		return nil, err
	}
	stored := added[0]
	r.logger.Info("report submitted", "id", stored.Id, "kind", stored.Kind, "title", stored.Title)

	submission := r.match(ctx, stored)
	if len(submission.Matches) > 0 {
		if err := r.notifier.Notify(ctx, stored, submission.Matches); err != nil {
			r.logger.Warn("error sending match notification", "id", stored.Id, "err", err)
		}
	}
	return submission, nil
}

// MatchesFor re-runs matching for a stored report against the current pool.
func (r *Registry) MatchesFor(ctx context.Context, id core.ID) (*Submission, error) {
	report, err := r.repo.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.match(ctx, report), nil
}

func (r *Registry) match(ctx context.Context, report *core.Report) *Submission {
	pool, err := r.repo.ListReports(ctx, report.Kind.Opposite(), core.StatusOpen)
	if err != nil {
		r.logger.Warn("error loading candidate pool", "id", report.Id, "err", err)
		return &Submission{Report: report, Matches: []core.MatchResult{}, Reason: err}
	}

	out := r.matcher.FindMatches(ctx, report, pool)
	return &Submission{Report: report, Matches: out.Matches, Reason: out.Reason}
}

// Resolve marks an open report as resolved; it no longer takes part in matching.
func (r *Registry) Resolve(ctx context.Context, id core.ID) (*core.Report, error) {
	report, err := r.repo.ResolveReport(ctx, id)
	if err != nil {
		return nil, err
	}
	r.index.Forget(id)
	r.logger.Info("report resolved", "id", id)
	return report, nil
}

// Delete removes reports permanently.
func (r *Registry) Delete(ctx context.Context, ids ...core.ID) error {
	if err := r.repo.DeleteReports(ctx, ids...); err != nil {
		return err
	}
	r.index.Forget(ids...)
	return nil
}

// Overview holds the most recent reports of each kind.
type Overview struct {
	Lost  []*core.Report
	Found []*core.Report
}

// Recent returns up to limit of the newest lost and found reports.
func (r *Registry) Recent(ctx context.Context, limit int) (*Overview, error) {
	lost, err := r.repo.RecentReports(ctx, core.KindLost, limit)
	if err != nil {
		return nil, err
	}
	found, err := r.repo.RecentReports(ctx, core.KindFound, limit)
	if err != nil {
		return nil, err
	}
	return &Overview{Lost: lost, Found: found}, nil
}

// Dashboard is a searchable listing of all reports with summary counts.
type Dashboard struct {
	Query   string
	Reports []*core.Report
	Stats   *core.ReportStats
}

// Dashboard lists reports matching query (all reports when query is
// blank), newest first, together with registry-wide counts.
func (r *Registry) Dashboard(ctx context.Context, query string) (*Dashboard, error) {
	reports, err := r.repo.SearchReports(ctx, query)
	if err != nil {
		return nil, err
	}
	stats, err := r.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Query: strings.TrimSpace(query), Reports: reports, Stats: stats}, nil
}
