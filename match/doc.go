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


// Package match ranks open reports of the opposite kind against a newly
// submitted lost or found report.
//
// The Matcher implements a lexical-statistical ranking:
//   - Each report's surface text is its title followed by its description
//   - Text is case-folded, split into word tokens and stripped of English stop words
//   - Tokens are weighted by TF-IDF over exactly the candidate pool plus the new report
//   - Candidates are scored by cosine similarity against the new report
//
// Candidates whose similarity is strictly above the threshold (0.25 by
// default) are returned as percentages rounded to two decimals, highest
// first, ties kept in pool order.
//
// FindMatches never returns an error. Every internal failure, including a
// corpus whose vocabulary is empty after stop-word removal, degrades to an
// empty result; Outcome.Reason records why.
//
// A Matcher holds no vocabulary between calls. An optional Index caches
// per-report term counts so large pools are not re-tokenized on every call;
// weights are still computed per call so cached and uncached runs score
// identically.
package match
