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


package match

import "errors"

var (
	// ErrEmptyCandidatePool means no open report of the opposite kind was
	// available; no scoring was attempted.
	ErrEmptyCandidatePool = errors.New("empty candidate pool")

	// ErrDegenerateVocabulary means no term survived tokenization and
	// stop-word removal across the whole corpus.
	ErrDegenerateVocabulary = errors.New("degenerate vocabulary")

	// ErrInvalidReport means the report to match was nil or had no valid kind.
	ErrInvalidReport = errors.New("invalid report to match")

	// ErrMatchingFailed wraps an unexpected failure recovered during scoring.
	ErrMatchingFailed = errors.New("matching failed")
)
