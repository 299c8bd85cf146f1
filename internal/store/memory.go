package store

import (
	"sort"
	"sync"

	"main/internal/schema"
)

// Memory is an in-process store used for tests and offline runs.
type Memory struct {
	mu         sync.Mutex
	trades     []schema.Trade
	positions  map[string]schema.Position // strategyID + "/" + symbol
	snapshots  []schema.SnapshotRow
	strategies map[string]StrategyMeta
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		positions:  make(map[string]schema.Position),
		strategies: make(map[string]StrategyMeta),
	}
}

// AppendTrade records a trade.
func (m *Memory) AppendTrade(t schema.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, t)
	return nil
}

// UpsertPosition inserts or replaces a position row.
func (m *Memory) UpsertPosition(p schema.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[p.StrategyID+"/"+p.Symbol] = p
	return nil
}

// DeletePosition removes a position row if present.
func (m *Memory) DeletePosition(strategyID, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, strategyID+"/"+symbol)
	return nil
}

// InsertSnapshot records a snapshot row.
func (m *Memory) InsertSnapshot(row schema.SnapshotRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, row)
	return nil
}

// UpsertStrategy inserts or replaces a strategy metadata row.
func (m *Memory) UpsertStrategy(meta StrategyMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies[meta.Name] = meta
	return nil
}

// LoadStrategyMetadata returns all strategy rows sorted by name.
func (m *Memory) LoadStrategyMetadata() ([]StrategyMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StrategyMeta, 0, len(m.strategies))
	for _, meta := range m.strategies {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Trades returns a copy of all recorded trades.
func (m *Memory) Trades() []schema.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]schema.Trade, len(m.trades))
	copy(out, m.trades)
	return out
}

// Positions returns a copy of all position rows sorted by key.
func (m *Memory) Positions() []schema.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]schema.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StrategyID != out[j].StrategyID {
			return out[i].StrategyID < out[j].StrategyID
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Snapshots returns a copy of all snapshot rows in insert order.
func (m *Memory) Snapshots() []schema.SnapshotRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]schema.SnapshotRow, len(m.snapshots))
	copy(out, m.snapshots)
	return out
}
