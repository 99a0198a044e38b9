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


package rematch

import (
	"context"

	"github.com/poiesic/lostfound/core"
	"github.com/poiesic/lostfound/storage"
)

const (
	// DefaultBatchSize is the default number of reports handed out per batch
	DefaultBatchSize = 100
)

// ReportIterator walks the open reports of one kind in batches.
type ReportIterator struct {
	repo      storage.ReportRepository
	kind      core.Kind
	batchSize int
}

// NewReportIterator creates a new report iterator.
// batchSize: number of reports per batch (DefaultBatchSize when <= 0)
func NewReportIterator(repo storage.ReportRepository, kind core.Kind, batchSize int) *ReportIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ReportIterator{
		repo:      repo,
		kind:      kind,
		batchSize: batchSize,
	}
}

// ForEach splits reports, as returned by Open, into batches and calls fn
// for each in order. Iteration stops on the first error from fn. Context cancellation is
// checked between batches.
func (it *ReportIterator) ForEach(ctx context.Context, reports []*core.Report, fn func([]*core.Report) error) error {
	for i := 0; i < len(reports); i += it.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(i+it.batchSize, len(reports))
		if err := fn(reports[i:end]); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Open loads the open reports of the iterator's kind.
func (it *ReportIterator) Open(ctx context.Context) ([]*core.Report, error) {
	return it.repo.ListReports(ctx, it.kind, core.StatusOpen)
}
