package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/lostfound/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	messages []published
	err      error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{subject: subject, data: data})
	return nil
}

func TestNewNATSNotifier(t *testing.T) {
	_, err := NewNATSNotifier(nil)
	assert.Equal(t, ErrPublisherRequired, err)

	n, err := NewNATSNotifier(&fakePublisher{}, WithLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, n.logger)
}

func TestNATSNotifier_Notify(t *testing.T) {
	ctx := context.Background()
	report := &core.Report{Id: 7, Kind: core.KindLost, Title: "black wallet"}
	matches := []core.MatchResult{
		{Candidate: 3, Score: 71.68},
		{Candidate: 9, Score: 40.5},
	}

	t.Run("publishes event on kind subject", func(t *testing.T) {
		pub := &fakePublisher{}
		n, err := NewNATSNotifier(pub)
		require.NoError(t, err)

		require.NoError(t, n.Notify(ctx, report, matches))
		require.Len(t, pub.messages, 1)
		assert.Equal(t, "lostfound.match.found.lost", pub.messages[0].subject)

		var event MatchEvent
		require.NoError(t, json.Unmarshal(pub.messages[0].data, &event))
		_, err = uuid.Parse(event.ID)
		assert.NoError(t, err)
		assert.Equal(t, core.ID(7), event.ReportID)
		assert.Equal(t, "lost", event.Kind)
		assert.Equal(t, []MatchedItem{{ReportID: 3, Score: 71.68}, {ReportID: 9, Score: 40.5}}, event.Matches)
		assert.False(t, event.At.IsZero())
	})

	t.Run("no matches publishes nothing", func(t *testing.T) {
		pub := &fakePublisher{}
		n, err := NewNATSNotifier(pub)
		require.NoError(t, err)

		require.NoError(t, n.Notify(ctx, report, nil))
		assert.Empty(t, pub.messages)
	})

	t.Run("publish failure is returned", func(t *testing.T) {
		boom := errors.New("connection closed")
		n, err := NewNATSNotifier(&fakePublisher{err: boom})
		require.NoError(t, err)

		assert.ErrorIs(t, n.Notify(ctx, report, matches), boom)
	})

	t.Run("cancelled context", func(t *testing.T) {
		pub := &fakePublisher{}
		n, err := NewNATSNotifier(pub)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, n.Notify(cancelled, report, matches), context.Canceled)
		assert.Empty(t, pub.messages)
	})
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "lostfound.match.found.found", Subject(core.KindFound))
}

func TestNoopNotifier(t *testing.T) {
	assert.NoError(t, NoopNotifier{}.Notify(context.Background(), &core.Report{}, []core.MatchResult{{Candidate: 1}}))
}

func TestDefaultNATSConfig(t *testing.T) {
	cfg := DefaultNATSConfig()
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.URL)
	assert.Equal(t, -1, cfg.MaxReconnects)
}
