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

// Package storage provides the storage abstraction layer for lostfound.
//
// This package defines the repository interface that decouples report
// persistence from matching and from the registry facade. Two backends
// implement it: an embedded BadgerDB store (storage/badger) and a PostgreSQL
// store (storage/postgres).
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return the storage.ReportRepository
// interface where a caller only needs the abstraction:
//
//	repo, err := badger.NewMemoryRepository()  // returns storage.ReportRepository
//
// Backend-specific constructors (badger.NewReportRepository, postgres.NewRepository)
// return concrete types so callers can reach lifecycle methods.
//
// # Architecture
//
//   - ReportRepository: CRUD, listing, search and dashboard statistics for reports
//   - MarshalReport / UnmarshalReport: the mus binary encoding used by key-value backends
//
// # Ownership
//
// Repositories own report data. Slices returned by the repository hold fresh
// copies; callers may hand them to the matcher without further copying.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
