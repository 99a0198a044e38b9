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


package core

import (
	"fmt"
	"strings"
	"time"
)

// ValidateReport validates a Report according to domain rules.
//
// Validation rules:
//   - Title must not be blank
//   - Kind must be Lost or Found
//   - Status must be Open or Resolved
//   - ReportedAt must not be in the future
//
// NOT validated:
//   - ID (0 is valid until the store assigns one)
//   - Description, contact and person details (all optional)
func ValidateReport(report *Report) error {
	if report == nil {
		return fmt.Errorf("%w: report is nil", ErrInvalidReport)
	}

	if strings.TrimSpace(report.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidReport, ErrEmptyTitle)
	}

	if err := ValidateKind(report.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}

	if err := ValidateStatus(report.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}

	if !IsValidTimestamp(report.ReportedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidReport, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateKind validates that a Kind has a valid value.
func ValidateKind(kind Kind) error {
	if kind != KindLost && kind != KindFound {
		return fmt.Errorf("%w: value %d", ErrInvalidKind, kind)
	}
	return nil
}

// ValidateStatus validates that a Status has a valid value.
func ValidateStatus(status Status) error {
	if status != StatusOpen && status != StatusResolved {
		return fmt.Errorf("%w: value %d", ErrInvalidStatus, status)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
