package marketdata

import (
	"context"
	"sync"
	"time"

	"main/internal/schema"
	"main/pkg/exception"
)

// Provider supplies market observations on demand. Implementations must
// return within a bounded interval; outages surface as
// exception.ErrDataUnavailable in the error chain.
type Provider interface {
	FetchSnapshot(ctx context.Context) (schema.MarketSnapshot, error)
}

// Static replays a fixed sequence of snapshots. The last snapshot
// repeats once the sequence is exhausted. Used for tests and offline
// runs.
type Static struct {
	mu    sync.Mutex
	snaps []schema.MarketSnapshot
	idx   int
}

// NewStatic creates a static provider over the given snapshots.
func NewStatic(snaps ...schema.MarketSnapshot) *Static {
	return &Static{snaps: snaps}
}

// Push appends a snapshot to the replay sequence.
func (s *Static) Push(ms schema.MarketSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, ms)
}

// FetchSnapshot returns the next snapshot in sequence. Snapshots seeded
// without a timestamp are stamped with the fetch time.
func (s *Static) FetchSnapshot(ctx context.Context) (schema.MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return schema.MarketSnapshot{}, exception.ErrDataUnavailable
	}
	ms := s.snaps[s.idx]
	if s.idx < len(s.snaps)-1 {
		s.idx++
	}
	if ms.Timestamp == 0 {
		ms.Timestamp = time.Now().UTC().UnixNano()
	}
	return ms, nil
}
