package strategy

import (
	"fmt"

	"main/internal/schema"
)

// Demo buys a fixed quantity of one symbol at start and then holds. It
// exercises the full engine path without any trading logic of its own.
type Demo struct {
	name   string
	symbol string
	qty    schema.Quantity
}

func newDemo(cfg Config) (*Demo, error) {
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("strategy %s: symbol is empty", cfg.Name)
	}
	if cfg.Qty <= 0 {
		return nil, fmt.Errorf("strategy %s: qty must be > 0", cfg.Name)
	}
	return &Demo{name: cfg.Name, symbol: cfg.Symbol, qty: cfg.Qty}, nil
}

func (d *Demo) Name() string { return d.name }

func (d *Demo) InitializePositions(ms schema.MarketSnapshot) ([]schema.TradeIntent, error) {
	price, ok := ms.PriceOf(d.symbol)
	if !ok {
		return nil, fmt.Errorf("no snapshot price for %s", d.symbol)
	}
	return []schema.TradeIntent{{
		Symbol: d.symbol,
		Qty:    d.qty,
		Price:  price,
		Note:   "buy and hold",
	}}, nil
}

func (d *Demo) ShouldRebalance(schema.MarketSnapshot, BookView) bool { return false }

func (d *Demo) Rebalance(schema.MarketSnapshot, BookView) ([]schema.TradeIntent, error) {
	return nil, nil
}

func (d *Demo) Metrics() map[string]float64 {
	return map[string]float64{"target_qty": float64(d.qty)}
}
