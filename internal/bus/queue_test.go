package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryPublishNonBlocking(t *testing.T) {
	q := NewQueue(2)
	require.NoError(t, q.TryPublish(Event{Kind: EventTradeCommitted}))
	require.NoError(t, q.TryPublish(Event{Kind: EventTradeCommitted}))
	assert.ErrorIs(t, q.TryPublish(Event{Kind: EventTradeCommitted}), ErrQueueFull)
}

func TestPublishAfterClose(t *testing.T) {
	q := NewQueue(2)
	q.Close()
	assert.ErrorIs(t, q.TryPublish(Event{}), ErrQueueClosed)
}

func TestRunDeliversInOrder(t *testing.T) {
	q := NewQueue(8)
	kinds := []EventKind{EventTickSkipped, EventTradeCommitted, EventSnapshotWritten}
	for _, kind := range kinds {
		require.NoError(t, q.TryPublish(Event{Kind: kind}))
	}
	q.Close()

	got := make([]EventKind, 0, len(kinds))
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(context.Background(), func(e Event) {
			got = append(got, e.Kind)
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
	assert.Equal(t, kinds, got)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "trade_rejected", EventTradeRejected.String())
	assert.Equal(t, "unknown", EventKind(999).String())
}
