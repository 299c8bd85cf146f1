package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// EventKind describes what happened inside the engine.
type EventKind uint16

const (
	EventUnknown EventKind = iota
	EventTickSkipped
	EventTradeCommitted
	EventTradeRejected
	EventStrategySuspended
	EventStrategyExcluded
	EventSnapshotWritten
)

func (k EventKind) String() string {
	switch k {
	case EventTickSkipped:
		return "tick_skipped"
	case EventTradeCommitted:
		return "trade_committed"
	case EventTradeRejected:
		return "trade_rejected"
	case EventStrategySuspended:
		return "strategy_suspended"
	case EventStrategyExcluded:
		return "strategy_excluded"
	case EventSnapshotWritten:
		return "snapshot_written"
	default:
		return "unknown"
	}
}

// Event is the unit passed through the in-memory bus. Consumers read it
// for reporting only; the engine never depends on delivery.
type Event struct {
	Kind       EventKind
	Timestamp  int64
	StrategyID string
	Symbol     string
	Reason     string
	Err        error
}

// Queue is a bounded, non-blocking event queue.
type Queue struct {
	ch     chan Event
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Event, capacity)}
}

// TryPublish enqueues an event without blocking.
func (q *Queue) TryPublish(e Event) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the queue from accepting new events.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Run consumes events until the context is done or the queue is closed.
func (q *Queue) Run(ctx context.Context, handler func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-q.ch:
			if !ok {
				return
			}
			handler(e)
		}
	}
}
