package book

import (
	"sort"

	"main/internal/schema"
)

// Book holds one strategy's open positions and updates them from
// committed trades.
type Book struct {
	positions map[string]schema.Position
}

// New creates an empty position book.
func New() *Book {
	return &Book{positions: make(map[string]schema.Position)}
}

// RealizedFor returns the realized P&L a trade would extract without
// mutating the book. Non-zero only when the trade reduces or flips an
// existing position.
func (b *Book) RealizedFor(t schema.Trade) schema.PnL {
	pos, ok := b.positions[t.Symbol]
	if !ok || sameSign(pos.Qty, t.Qty) {
		return 0
	}
	closed := absQty(t.Qty)
	if held := absQty(pos.Qty); closed > held {
		closed = held
	}
	perUnit := int64(t.Price) - int64(pos.AvgCost)
	if pos.Qty < 0 {
		perUnit = -perUnit
	}
	return schema.PnL(int64(closed) * perUnit)
}

// Apply updates the book from a committed trade and returns the realized
// P&L extracted by it.
//
// Same-sign trades increase the position at the weighted-average cost
// basis. Opposite-sign trades realize P&L on the closed portion; when the
// quantity crosses zero, the excess opens a new position at the trade
// price. Zero-quantity positions are removed.
func (b *Book) Apply(t schema.Trade) schema.PnL {
	pos, ok := b.positions[t.Symbol]
	if !ok {
		b.positions[t.Symbol] = schema.Position{
			StrategyID: t.StrategyID,
			Symbol:     t.Symbol,
			Qty:        t.Qty,
			AvgCost:    t.Price,
			OpenedAt:   t.Timestamp,
		}
		return 0
	}

	if sameSign(pos.Qty, t.Qty) {
		oldAbs := int64(absQty(pos.Qty))
		addAbs := int64(absQty(t.Qty))
		weighted := (oldAbs*int64(pos.AvgCost) + addAbs*int64(t.Price)) / (oldAbs + addAbs)
		pos.Qty += t.Qty
		pos.AvgCost = schema.Price(weighted)
		b.positions[t.Symbol] = pos
		return 0
	}

	realized := b.RealizedFor(t)
	remaining := pos.Qty + t.Qty
	switch {
	case remaining == 0:
		delete(b.positions, t.Symbol)
	case sameSign(remaining, pos.Qty):
		pos.Qty = remaining
		b.positions[t.Symbol] = pos
	default:
		// flip: the excess beyond closing opens fresh at the trade price
		b.positions[t.Symbol] = schema.Position{
			StrategyID: t.StrategyID,
			Symbol:     t.Symbol,
			Qty:        remaining,
			AvgCost:    t.Price,
			OpenedAt:   t.Timestamp,
		}
	}
	return realized
}

// Position returns the current position for a symbol.
func (b *Book) Position(symbol string) (schema.Position, bool) {
	pos, ok := b.positions[symbol]
	return pos, ok
}

// Quantity returns the current signed quantity for a symbol.
func (b *Book) Quantity(symbol string) schema.Quantity {
	return b.positions[symbol].Qty
}

// Positions returns copies of all open positions sorted by symbol.
func (b *Book) Positions() []schema.Position {
	out := make([]schema.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Len returns the number of open positions.
func (b *Book) Len() int {
	return len(b.positions)
}

// MarketValue returns the signed mark-to-market value of all positions.
// Positions without a snapshot price are valued at cost basis.
func (b *Book) MarketValue(ms schema.MarketSnapshot) schema.Cash {
	var total schema.Cash
	for _, pos := range b.positions {
		price, ok := ms.PriceOf(pos.Symbol)
		if !ok {
			price = pos.AvgCost
		}
		total += pos.MarketValue(price)
	}
	return total
}

// UnrealizedPnL returns the mark-to-market profit of all open positions.
// Positions without a snapshot price contribute zero.
func (b *Book) UnrealizedPnL(ms schema.MarketSnapshot) schema.PnL {
	var total schema.PnL
	for _, pos := range b.positions {
		price, ok := ms.PriceOf(pos.Symbol)
		if !ok {
			continue
		}
		total += pos.UnrealizedPnL(price)
	}
	return total
}

func sameSign(a, b schema.Quantity) bool {
	return (a >= 0) == (b >= 0)
}

func absQty(q schema.Quantity) schema.Quantity {
	if q < 0 {
		return -q
	}
	return q
}
