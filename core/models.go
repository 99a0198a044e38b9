package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a stable, opaque identifier for a report.
// Stores hand out IDs from sequences; content IDs come from hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Kind says whether a report describes something lost or something found.
type Kind int

const (
	// KindLost is a report of a missing item or person.
	KindLost Kind = iota + 1
	// KindFound is a report of an item or person that turned up.
	KindFound
)

// Opposite returns the kind a report of this kind is matched against.
func (k Kind) Opposite() Kind {
	switch k {
	case KindLost:
		return KindFound
	case KindFound:
		return KindLost
	}
	return k
}

func (k Kind) String() string {
	switch k {
	case KindLost:
		return "lost"
	case KindFound:
		return "found"
	}
	return "unknown"
}

// ParseKind maps "lost" / "found" (any case) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lost":
		return KindLost, nil
	case "found":
		return KindFound, nil
	}
	return 0, ErrInvalidKind
}

// Status tracks whether a report is still awaiting a match.
type Status int

const (
	// StatusOpen is the initial status of every report.
	StatusOpen Status = iota + 1
	// StatusResolved is set by an explicit resolve action, never by matching.
	StatusResolved
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusResolved:
		return "Resolved"
	}
	return "unknown"
}

// ParseStatus maps "open" / "resolved" (any case) to a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return StatusOpen, nil
	case "resolved":
		return StatusResolved, nil
	}
	return 0, ErrInvalidStatus
}

// Categories that mark a report as describing a person rather than an item.
const (
	CategoryMissingPerson = "Missing Person"
	CategoryFoundPerson   = "Found Person"
)

// IsPersonCategory reports whether category denotes a person.
func IsPersonCategory(category string) bool {
	return category == CategoryMissingPerson || category == CategoryFoundPerson
}

// Report is a single lost or found submission.
// Kind and Id never change once the report has been stored.
type Report struct {
	Id           ID
	Kind         Kind
	Status       Status
	Title        string // item or person name
	Description  string
	Category     string
	Location     string
	ContactName  string
	ContactPhone string
	IsPerson     bool
	Age          string
	Gender       string
	Height       string
	ImageFile    string    // opaque reference owned by the upload layer
	ReportedAt   time.Time // when the report was submitted
	ResolvedAt   time.Time // zero while the report is open
}

// IsOpen reports whether the report is still awaiting a match.
func (r *Report) IsOpen() bool {
	return r.Status == StatusOpen
}

// MatchResult is a ranked candidate produced by one matching run.
// It is never persisted.
type MatchResult struct {
	Candidate ID
	Score     float64 // cosine similarity as a percentage, two decimals
	Report    *Report // filled in by callers that hydrate results
}

// ReportStats summarizes the registry for dashboards.
type ReportStats struct {
	OpenLost   int
	OpenFound  int
	Resolved   int
	ByLocation map[string]int
}
