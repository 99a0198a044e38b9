package storage

import (
	"context"

	"github.com/poiesic/lostfound/core"
)

// ReportRepository provides operations for managing lost and found reports.
// Implementations must be thread-safe and support concurrent access.
type ReportRepository interface {
	// AddReports adds one or more reports to storage.
	// Always assigns a new ID. Sets ReportedAt if it is zero and Status to
	// Open if it is unset.
	// Returns the reports with IDs and timestamps populated.
	AddReports(ctx context.Context, reports ...*core.Report) ([]*core.Report, error)

	// UpdateReports replaces existing reports.
	// Returns ErrNotFound if any report doesn't exist and ErrKindChanged if
	// an update would change a report's kind.
	UpdateReports(ctx context.Context, reports ...*core.Report) ([]*core.Report, error)

	// DeleteReports removes reports by their IDs.
	// Returns ErrNotFound if any report doesn't exist.
	DeleteReports(ctx context.Context, ids ...core.ID) error

	// GetReport retrieves a single report by ID.
	// Returns ErrNotFound if the report doesn't exist.
	GetReport(ctx context.Context, id core.ID) (*core.Report, error)

	// GetReports retrieves multiple reports by their IDs, in the order given.
	// Returns only the reports that exist (no error for missing reports).
	GetReports(ctx context.Context, ids ...core.ID) ([]*core.Report, error)

	// ListReports returns every report with the given kind and status,
	// ordered by ID ascending (submission order).
	ListReports(ctx context.Context, kind core.Kind, status core.Status) ([]*core.Report, error)

	// RecentReports returns up to limit reports of the given kind,
	// most recently reported first.
	RecentReports(ctx context.Context, kind core.Kind, limit int) ([]*core.Report, error)

	// ResolveReport marks an open report as resolved and stamps ResolvedAt.
	// Returns ErrNotFound or ErrAlreadyResolved.
	ResolveReport(ctx context.Context, id core.ID) (*core.Report, error)

	// SearchReports returns reports whose title, description, location or
	// category contains query (case-insensitive), most recent first.
	// An empty query returns every report.
	SearchReports(ctx context.Context, query string) ([]*core.Report, error)

	// Stats counts open lost, open found and resolved reports and groups
	// all reports by location.
	Stats(ctx context.Context) (*core.ReportStats, error)

	// Close releases resources held by the repository.
	Close() error
}
