// Package postgres implements storage.ReportRepository on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poiesic/lostfound/core"
	"github.com/poiesic/lostfound/storage"
)

// Repository stores reports in a single reports table.
type Repository struct {
	pool *pgxpool.Pool
}

var _ storage.ReportRepository = (*Repository)(nil)

// NewRepository wraps an existing pool. Call EnsureSchema before using it.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Open connects, creates the schema if needed and returns a repository that
// owns the pool.
func Open(ctx context.Context, connString string) (*Repository, error) {
	pool, err := NewDB(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewRepository(pool), nil
}

// NewDB opens a pgx pool with tuned defaults.
func NewDB(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the reports table and its indexes if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ddl := []string{`
CREATE TABLE IF NOT EXISTS reports (
  id BIGSERIAL PRIMARY KEY,
  kind TEXT NOT NULL CHECK (kind IN ('lost', 'found')),
  status TEXT NOT NULL DEFAULT 'Open' CHECK (status IN ('Open', 'Resolved')),
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  contact_name TEXT NOT NULL DEFAULT '',
  contact_phone TEXT NOT NULL DEFAULT '',
  is_person BOOLEAN NOT NULL DEFAULT FALSE,
  age TEXT NOT NULL DEFAULT '',
  gender TEXT NOT NULL DEFAULT '',
  height TEXT NOT NULL DEFAULT '',
  image_file TEXT NOT NULL DEFAULT '',
  reported_at TIMESTAMPTZ NOT NULL,
  resolved_at TIMESTAMPTZ
);`,
		`CREATE INDEX IF NOT EXISTS reports_kind_status_idx ON reports (kind, status, id);`,
		`CREATE INDEX IF NOT EXISTS reports_kind_reported_idx ON reports (kind, reported_at DESC, id DESC);`,
	}
	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create reports schema: %w", err)
		}
	}
	return nil
}

const columns = `id, kind, status, title, description, category, location,
  contact_name, contact_phone, is_person, age, gender, height, image_file,
  reported_at, resolved_at`

// AddReports inserts reports in one transaction.
func (r *Repository) AddReports(ctx context.Context, reports ...*core.Report) ([]*core.Report, error) {
	const query = `
INSERT INTO reports (kind, status, title, description, category, location,
  contact_name, contact_phone, is_person, age, gender, height, image_file,
  reported_at, resolved_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING id`
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, report := range reports {
			if report.Status == 0 {
				report.Status = core.StatusOpen
			}
			if report.ReportedAt.IsZero() {
				report.ReportedAt = time.Now()
			}
			report.ReportedAt = report.ReportedAt.UTC().Truncate(time.Microsecond)

			var id int64
			err := tx.QueryRow(ctx, query,
				report.Kind.String(),
				report.Status.String(),
				report.Title,
				report.Description,
				report.Category,
				report.Location,
				report.ContactName,
				report.ContactPhone,
				report.IsPerson,
				report.Age,
				report.Gender,
				report.Height,
				report.ImageFile,
				report.ReportedAt,
				nullTime(report.ResolvedAt),
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("insert report: %w", err)
			}
			report.Id = core.ID(id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// UpdateReports replaces existing reports in one transaction.
func (r *Repository) UpdateReports(ctx context.Context, reports ...*core.Report) ([]*core.Report, error) {
	const query = `
UPDATE reports SET status = $2, title = $3, description = $4, category = $5,
  location = $6, contact_name = $7, contact_phone = $8, is_person = $9,
  age = $10, gender = $11, height = $12, image_file = $13,
  reported_at = $14, resolved_at = $15
WHERE id = $1`
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, report := range reports {
			var kind string
			err := tx.QueryRow(ctx, `SELECT kind FROM reports WHERE id = $1 FOR UPDATE`, int64(report.Id)).Scan(&kind)
			if errors.Is(err, pgx.ErrNoRows) {
				return storage.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("lock report: %w", err)
			}
			if kind != report.Kind.String() {
				return storage.ErrKindChanged
			}

			_, err = tx.Exec(ctx, query,
				int64(report.Id),
				report.Status.String(),
				report.Title,
				report.Description,
				report.Category,
				report.Location,
				report.ContactName,
				report.ContactPhone,
				report.IsPerson,
				report.Age,
				report.Gender,
				report.Height,
				report.ImageFile,
				report.ReportedAt.UTC(),
				nullTime(report.ResolvedAt),
			)
			if err != nil {
				return fmt.Errorf("update report: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// DeleteReports removes reports by ID in one transaction.
func (r *Repository) DeleteReports(ctx context.Context, ids ...core.ID) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, id := range ids {
			tag, err := tx.Exec(ctx, `DELETE FROM reports WHERE id = $1`, int64(id))
			if err != nil {
				return fmt.Errorf("delete report: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return storage.ErrNotFound
			}
		}
		return nil
	})
}

// GetReport retrieves a single report by ID.
func (r *Repository) GetReport(ctx context.Context, id core.ID) (*core.Report, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM reports WHERE id = $1`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	report, err := pgx.CollectExactlyOneRow(rows, scanReport)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return report, err
}

// GetReports retrieves the reports that exist among ids, in the order given.
func (r *Repository) GetReports(ctx context.Context, ids ...core.ID) ([]*core.Report, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]int64, len(ids))
	for i, id := range ids {
		keys[i] = int64(id)
	}

	found, err := r.query(ctx, `SELECT `+columns+` FROM reports WHERE id = ANY($1)`, keys)
	if err != nil {
		return nil, err
	}
	byID := make(map[core.ID]*core.Report, len(found))
	for _, report := range found {
		byID[report.Id] = report
	}

	var results []*core.Report
	for _, id := range ids {
		if report, ok := byID[id]; ok {
			results = append(results, report)
		}
	}
	return results, nil
}

// ListReports returns every report with the given kind and status in ID order.
func (r *Repository) ListReports(ctx context.Context, kind core.Kind, status core.Status) ([]*core.Report, error) {
	if core.ValidateKind(kind) != nil || core.ValidateStatus(status) != nil {
		return nil, storage.ErrInvalidQuery
	}
	return r.query(ctx, `SELECT `+columns+` FROM reports WHERE kind = $1 AND status = $2 ORDER BY id`,
		kind.String(), status.String())
}

// RecentReports returns up to limit reports of a kind, newest first.
func (r *Repository) RecentReports(ctx context.Context, kind core.Kind, limit int) ([]*core.Report, error) {
	if core.ValidateKind(kind) != nil {
		return nil, storage.ErrInvalidQuery
	}
	if limit <= 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+columns+` FROM reports WHERE kind = $1 ORDER BY reported_at DESC, id DESC LIMIT $2`,
		kind.String(), limit)
}

// ResolveReport marks an open report as resolved.
func (r *Repository) ResolveReport(ctx context.Context, id core.ID) (*core.Report, error) {
	const query = `
UPDATE reports SET status = 'Resolved', resolved_at = $2
WHERE id = $1 AND status = 'Open'
RETURNING ` + columns
	rows, err := r.pool.Query(ctx, query, int64(id), time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return nil, fmt.Errorf("resolve report: %w", err)
	}
	report, err := pgx.CollectExactlyOneRow(rows, scanReport)
	if !errors.Is(err, pgx.ErrNoRows) {
		return report, err
	}

	if _, err := r.GetReport(ctx, id); err != nil {
		return nil, err
	}
	return nil, storage.ErrAlreadyResolved
}

// SearchReports returns reports whose text fields contain query, newest first.
func (r *Repository) SearchReports(ctx context.Context, query string) ([]*core.Report, error) {
	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(query)) + "%"
	return r.query(ctx, `SELECT `+columns+` FROM reports
WHERE title ILIKE $1 OR description ILIKE $1 OR location ILIKE $1 OR category ILIKE $1
ORDER BY reported_at DESC, id DESC`, pattern)
}

// Stats counts reports for dashboards.
func (r *Repository) Stats(ctx context.Context) (*core.ReportStats, error) {
	stats := &core.ReportStats{ByLocation: make(map[string]int)}
	err := r.pool.QueryRow(ctx, `
SELECT
  count(*) FILTER (WHERE status = 'Open' AND kind = 'lost'),
  count(*) FILTER (WHERE status = 'Open' AND kind = 'found'),
  count(*) FILTER (WHERE status = 'Resolved')
FROM reports`).Scan(&stats.OpenLost, &stats.OpenFound, &stats.Resolved)
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT location, count(*) FROM reports GROUP BY location`)
	if err != nil {
		return nil, fmt.Errorf("count locations: %w", err)
	}
	var (
		location string
		count    int
	)
	_, err = pgx.ForEachRow(rows, []any{&location, &count}, func() error {
		stats.ByLocation[location] = count
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count locations: %w", err)
	}
	return stats, nil
}

// Close closes the underlying pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]*core.Report, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	reports, err := pgx.CollectRows(rows, scanReport)
	if err != nil {
		return nil, fmt.Errorf("scan reports: %w", err)
	}
	return reports, nil
}

func scanReport(row pgx.CollectableRow) (*core.Report, error) {
	var (
		report     core.Report
		id         int64
		kind       string
		status     string
		resolvedAt *time.Time
	)
	err := row.Scan(
		&id,
		&kind,
		&status,
		&report.Title,
		&report.Description,
		&report.Category,
		&report.Location,
		&report.ContactName,
		&report.ContactPhone,
		&report.IsPerson,
		&report.Age,
		&report.Gender,
		&report.Height,
		&report.ImageFile,
		&report.ReportedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	report.Id = core.ID(id)
	if report.Kind, err = core.ParseKind(kind); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	if report.Status, err = core.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	report.ReportedAt = report.ReportedAt.UTC()
	if resolvedAt != nil {
		report.ResolvedAt = resolvedAt.UTC()
	}
	return &report, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
