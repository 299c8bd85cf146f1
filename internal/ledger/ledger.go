package ledger

import (
	"sync"

	"main/internal/schema"
)

// Ledger is the append-only record of every committed simulated trade.
// Corrections are modeled as new offsetting trades; nothing is ever
// edited or removed.
type Ledger struct {
	mu      sync.Mutex
	trades  []schema.Trade
	nextID  uint64
	journal *Journal
}

// New creates an empty ledger. The journal is optional; when set, every
// appended trade is also enqueued for durable journaling.
func New(journal *Journal) *Ledger {
	return &Ledger{nextID: 1, journal: journal}
}

// Append assigns the next trade ID, records the trade and enqueues it to
// the journal. Returns the stored trade.
func (l *Ledger) Append(t schema.Trade) (schema.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t.ID = l.nextID
	if l.journal != nil {
		if err := l.journal.TryAppend(t); err != nil {
			return schema.Trade{}, err
		}
	}
	l.nextID++
	l.trades = append(l.trades, t)
	return t, nil
}

// Len returns the number of recorded trades.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.trades)
}

// Trades returns a copy of all recorded trades in append order.
func (l *Ledger) Trades() []schema.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]schema.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// TradesFor returns a copy of all trades for one strategy in append order.
func (l *Ledger) TradesFor(strategyID string) []schema.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []schema.Trade
	for _, t := range l.trades {
		if t.StrategyID == strategyID {
			out = append(out, t)
		}
	}
	return out
}

// RealizedPnL sums the realized P&L recorded across a strategy's trades.
func (l *Ledger) RealizedPnL(strategyID string) schema.PnL {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total schema.PnL
	for _, t := range l.trades {
		if t.StrategyID == strategyID {
			total += t.RealizedPnL
		}
	}
	return total
}
