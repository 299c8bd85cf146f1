package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects lightweight counters and tick latency stats.
type Metrics struct {
	ticks           uint64
	ticksSkipped    uint64
	tradesCommitted uint64
	tradesRejected  uint64
	strategyFaults  uint64
	snapshotRows    uint64
	eventDrops      uint64

	tickLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Ticks           uint64
	TicksSkipped    uint64
	TradesCommitted uint64
	TradesRejected  uint64
	StrategyFaults  uint64
	SnapshotRows    uint64
	EventDrops      uint64
	TickLatency     LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveTick records one processed tick and its duration.
func (m *Metrics) ObserveTick(d time.Duration) {
	atomic.AddUint64(&m.ticks, 1)
	m.tickLatency.observe(d)
}

// ObserveTickSkipped records one tick skipped for unavailable data.
func (m *Metrics) ObserveTickSkipped() {
	atomic.AddUint64(&m.ticksSkipped, 1)
}

// ObserveTradeCommitted records one committed trade.
func (m *Metrics) ObserveTradeCommitted() {
	atomic.AddUint64(&m.tradesCommitted, 1)
}

// ObserveTradeRejected records one rejected trade proposal.
func (m *Metrics) ObserveTradeRejected() {
	atomic.AddUint64(&m.tradesRejected, 1)
}

// ObserveStrategyFault records one suspended strategy.
func (m *Metrics) ObserveStrategyFault() {
	atomic.AddUint64(&m.strategyFaults, 1)
}

// ObserveSnapshotRow records one snapshot row written.
func (m *Metrics) ObserveSnapshotRow() {
	atomic.AddUint64(&m.snapshotRows, 1)
}

// ObserveEventDrop records one event dropped by a full queue.
func (m *Metrics) ObserveEventDrop() {
	atomic.AddUint64(&m.eventDrops, 1)
}

// Snapshot returns the current metric values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Ticks:           atomic.LoadUint64(&m.ticks),
		TicksSkipped:    atomic.LoadUint64(&m.ticksSkipped),
		TradesCommitted: atomic.LoadUint64(&m.tradesCommitted),
		TradesRejected:  atomic.LoadUint64(&m.tradesRejected),
		StrategyFaults:  atomic.LoadUint64(&m.strategyFaults),
		SnapshotRows:    atomic.LoadUint64(&m.snapshotRows),
		EventDrops:      atomic.LoadUint64(&m.eventDrops),
		TickLatency:     m.tickLatency.snapshot(),
	}
}

func (s *LatencyStats) observe(d time.Duration) {
	if d < 0 {
		d = 0
	}
	v := uint64(d)
	atomic.AddUint64(&s.count, 1)
	atomic.AddUint64(&s.sum, v)
	for {
		cur := atomic.LoadUint64(&s.min)
		if cur != 0 && cur <= v {
			break
		}
		if atomic.CompareAndSwapUint64(&s.min, cur, v) {
			break
		}
	}
	for {
		cur := atomic.LoadUint64(&s.max)
		if cur >= v {
			break
		}
		if atomic.CompareAndSwapUint64(&s.max, cur, v) {
			break
		}
	}
}

func (s *LatencyStats) snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&s.count)
	out := LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&s.min)),
		Max:   time.Duration(atomic.LoadUint64(&s.max)),
	}
	if count > 0 {
		out.Avg = time.Duration(atomic.LoadUint64(&s.sum) / count)
	}
	return out
}
