// Package notify announces newly found matches to interested parties.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/lostfound/core"
)

// ErrPublisherRequired is returned when a notifier is built without a publisher.
var ErrPublisherRequired = errors.New("publisher is required")

// Notifier is told about every submission that produced matches.
type Notifier interface {
	Notify(ctx context.Context, report *core.Report, matches []core.MatchResult) error
}

// NoopNotifier discards every notification.
type NoopNotifier struct{}

var _ Notifier = NoopNotifier{}

// Notify does nothing.
func (NoopNotifier) Notify(_ context.Context, _ *core.Report, _ []core.MatchResult) error {
	return nil
}

// MatchEvent is the payload published when a report finds matches.
type MatchEvent struct {
	ID       string        `json:"id"`
	ReportID core.ID       `json:"report_id"`
	Kind     string        `json:"kind"`
	Title    string        `json:"title"`
	Matches  []MatchedItem `json:"matches"`
	At       time.Time     `json:"at"`
}

// MatchedItem is one ranked candidate in a MatchEvent.
type MatchedItem struct {
	ReportID core.ID `json:"report_id"`
	Score    float64 `json:"score"`
}

// NewMatchEvent builds the event for report and its ranked matches.
func NewMatchEvent(report *core.Report, matches []core.MatchResult) MatchEvent {
	items := make([]MatchedItem, len(matches))
	for i, m := range matches {
		items[i] = MatchedItem{ReportID: m.Candidate, Score: m.Score}
	}
	return MatchEvent{
		ID:       uuid.NewString(),
		ReportID: report.Id,
		Kind:     report.Kind.String(),
		Title:    report.Title,
		Matches:  items,
		At:       time.Now().UTC(),
	}
}
