package badger

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lostfound/core"
	"github.com/poiesic/lostfound/storage"
)

// ReportRepository implements storage.ReportRepository for BadgerDB.
type ReportRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ReportRepository = (*ReportRepository)(nil)

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(backend *Backend) (*ReportRepository, error) {
	idSeq, err := backend.GetSequence(reportIDSeq)
	if err != nil {
		return nil, err
	}

	return &ReportRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ReportRepository) Close() error {
	return r.idSeq.Release()
}

// AddReports adds one or more reports to storage.
func (r *ReportRepository) AddReports(ctx context.Context, reports ...*core.Report) ([]*core.Report, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, report := range reports {
			// Always generate new ID from sequence
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			report.Id = core.ID(nextID)

			if report.Status == 0 {
				report.Status = core.StatusOpen
			}
			if report.ReportedAt.IsZero() {
				report.ReportedAt = time.Now()
			}
			// Stored timestamps carry microsecond precision
			report.ReportedAt = report.ReportedAt.UTC().Truncate(time.Microsecond)

			if err := r.writeReport(tx, report); err != nil {
				return err
			}
			if err := r.writeIndexes(tx, report); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return reports, nil
}

// UpdateReports replaces existing reports.
func (r *ReportRepository) UpdateReports(ctx context.Context, reports ...*core.Report) ([]*core.Report, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, report := range reports {
			if err := r.replace(tx, report); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return reports, nil
}

// DeleteReports removes reports by their IDs.
func (r *ReportRepository) DeleteReports(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeReportKey(id)

			// Read report to get metadata for index cleanup
			report, err := readReport(tx, key)
			if err != nil {
				return err
			}
			if report == nil {
				return storage.ErrNotFound
			}

			if err := r.deleteIndexes(tx, report); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetReport retrieves a single report by ID.
func (r *ReportRepository) GetReport(ctx context.Context, id core.ID) (*core.Report, error) {
	var result *core.Report
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readReport(tx, makeReportKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetReports retrieves multiple reports by their IDs.
func (r *ReportRepository) GetReports(ctx context.Context, ids ...core.ID) ([]*core.Report, error) {
	var result []*core.Report
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			report, err := readReport(tx, makeReportKey(id))
			if err != nil {
				return err
			}
			if report != nil {
				result = append(result, report)
			}
		}
		return nil
	}, false)
	return result, err
}

// ListReports returns every report with the given kind and status in ID order.
func (r *ReportRepository) ListReports(ctx context.Context, kind core.Kind, status core.Status) ([]*core.Report, error) {
	if err := core.ValidateKind(kind); err != nil {
		return nil, storage.ErrInvalidQuery
	}
	if err := core.ValidateStatus(status); err != nil {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Report
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialKindStatusKey(kind, status)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			report, err := r.followIndex(tx, iter.Item())
			if err != nil {
				return err
			}
			if report != nil {
				results = append(results, report)
			}
		}
		return nil
	}, false)

	return results, err
}

// RecentReports returns up to limit reports of a kind, newest first.
func (r *ReportRepository) RecentReports(ctx context.Context, kind core.Kind, limit int) ([]*core.Report, error) {
	if err := core.ValidateKind(kind); err != nil {
		return nil, storage.ErrInvalidQuery
	}
	if limit <= 0 {
		return nil, nil
	}

	var results []*core.Report
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent reports first
		prefix := makePartialReportDateKey(kind)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(seekLast(prefix)); iter.ValidForPrefix(prefix) && len(results) < limit; iter.Next() {
			report, err := r.followIndex(tx, iter.Item())
			if err != nil {
				return err
			}
			if report != nil {
				results = append(results, report)
			}
		}
		return nil
	}, false)

	return results, err
}

// ResolveReport marks an open report as resolved.
func (r *ReportRepository) ResolveReport(ctx context.Context, id core.ID) (*core.Report, error) {
	var resolved *core.Report
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		report, err := readReport(tx, makeReportKey(id))
		if err != nil {
			return err
		}
		if report == nil {
			return storage.ErrNotFound
		}
		if !report.IsOpen() {
			return storage.ErrAlreadyResolved
		}

		report.Status = core.StatusResolved
		report.ResolvedAt = time.Now().UTC().Truncate(time.Microsecond)
		if err := r.replace(tx, report); err != nil {
			return err
		}
		resolved = report
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return resolved, nil
}

// SearchReports returns reports whose text fields contain query.
func (r *ReportRepository) SearchReports(ctx context.Context, query string) ([]*core.Report, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	var results []*core.Report
	err := r.scan(ctx, func(report *core.Report) {
		if needle == "" || containsFold(report, needle) {
			results = append(results, report)
		}
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, newestFirst)
	return results, nil
}

// Stats counts reports for dashboards.
func (r *ReportRepository) Stats(ctx context.Context) (*core.ReportStats, error) {
	stats := &core.ReportStats{ByLocation: make(map[string]int)}
	err := r.scan(ctx, func(report *core.Report) {
		switch {
		case report.Status == core.StatusResolved:
			stats.Resolved++
		case report.Kind == core.KindLost:
			stats.OpenLost++
		case report.Kind == core.KindFound:
			stats.OpenFound++
		}
		stats.ByLocation[report.Location]++
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Helper methods

// scan calls fn for every stored report.
func (r *ReportRepository) scan(ctx context.Context, fn func(*core.Report)) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(reportPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var report *core.Report
			err := iter.Item().Value(func(val []byte) error {
				var err error
				report, err = storage.UnmarshalReport(val)
				return err
			})
			if err != nil {
				return err
			}
			fn(report)
		}
		return nil
	}, false)
}

// replace overwrites a stored report and moves its index entries.
func (r *ReportRepository) replace(tx *badger.Txn, report *core.Report) error {
	old, err := readReport(tx, makeReportKey(report.Id))
	if err != nil {
		return err
	}
	if old == nil {
		return storage.ErrNotFound
	}
	if old.Kind != report.Kind {
		return storage.ErrKindChanged
	}

	if err := r.writeReport(tx, report); err != nil {
		return err
	}

	if old.Status != report.Status {
		if err := tx.Delete(makeKindStatusKey(old.Kind, old.Status, old.Id)); err != nil {
			return err
		}
		if err := tx.Set(makeKindStatusKey(report.Kind, report.Status, report.Id), storage.MarshalID(report.Id)); err != nil {
			return err
		}
	}

	if !old.ReportedAt.Equal(report.ReportedAt) {
		if err := tx.Delete(makeReportDateKey(old.Kind, old.ReportedAt, old.Id)); err != nil {
			return err
		}
		if err := tx.Set(makeReportDateKey(report.Kind, report.ReportedAt, report.Id), storage.MarshalID(report.Id)); err != nil {
			return err
		}
	}
	return nil
}

func (r *ReportRepository) writeReport(tx *badger.Txn, report *core.Report) error {
	return tx.Set(makeReportKey(report.Id), storage.MarshalReport(report))
}

// writeIndexes adds the kind/status and date index entries for a report.
func (r *ReportRepository) writeIndexes(tx *badger.Txn, report *core.Report) error {
	value := storage.MarshalID(report.Id)
	if err := tx.Set(makeKindStatusKey(report.Kind, report.Status, report.Id), value); err != nil {
		return err
	}
	return tx.Set(makeReportDateKey(report.Kind, report.ReportedAt, report.Id), value)
}

// deleteIndexes removes the index entries for a report.
func (r *ReportRepository) deleteIndexes(tx *badger.Txn, report *core.Report) error {
	if err := tx.Delete(makeKindStatusKey(report.Kind, report.Status, report.Id)); err != nil {
		return err
	}
	return tx.Delete(makeReportDateKey(report.Kind, report.ReportedAt, report.Id))
}

// followIndex reads the report an index entry points at.
func (r *ReportRepository) followIndex(tx *badger.Txn, item *badger.Item) (*core.Report, error) {
	var reportID core.ID
	if err := item.Value(func(val []byte) error {
		var err error
		reportID, err = storage.UnmarshalID(val)
		return err
	}); err != nil {
		return nil, err
	}
	return readReport(tx, makeReportKey(reportID))
}

// readReport reads a report from the transaction.
// Returns nil, nil when the key does not exist.
func readReport(tx *badger.Txn, key []byte) (*core.Report, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var report *core.Report
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		report, unmarshalErr = storage.UnmarshalReport(val)
		return unmarshalErr
	})
	return report, err
}

func containsFold(report *core.Report, needle string) bool {
	for _, field := range []string{report.Title, report.Description, report.Location, report.Category} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func newestFirst(a, b *core.Report) int {
	if c := b.ReportedAt.Compare(a.ReportedAt); c != 0 {
		return c
	}
	if a.Id > b.Id {
		return -1
	}
	if a.Id < b.Id {
		return 1
	}
	return 0
}
