package strategy

import (
	"fmt"
	"time"

	"main/internal/schema"
)

// Momentum holds an equal-weight basket and re-targets the weights on a
// fixed cadence. Elapsed wall time since the last rebalance drives the
// cadence, not tick counts, so a stalled feed does not starve it.
type Momentum struct {
	name     string
	symbols  []string
	interval time.Duration
	reg      *schema.Registry
}

func newMomentum(cfg Config, reg *schema.Registry) (*Momentum, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("strategy %s: no symbols configured", cfg.Name)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("strategy %s: interval must be > 0", cfg.Name)
	}
	for _, symbol := range cfg.Symbols {
		if _, ok := reg.Lookup(symbol); !ok {
			return nil, fmt.Errorf("strategy %s: unregistered symbol %s", cfg.Name, symbol)
		}
	}
	return &Momentum{
		name:     cfg.Name,
		symbols:  cfg.Symbols,
		interval: cfg.Interval,
		reg:      reg,
	}, nil
}

func (m *Momentum) Name() string { return m.name }

// InitializePositions opens one lot per basket symbol. The first cadence
// rebalance sizes the basket against live equity; the engine rejects
// anything the allocation cannot cover.
func (m *Momentum) InitializePositions(ms schema.MarketSnapshot) ([]schema.TradeIntent, error) {
	intents := make([]schema.TradeIntent, 0, len(m.symbols))
	for _, symbol := range m.symbols {
		price, ok := ms.PriceOf(symbol)
		if !ok {
			return nil, fmt.Errorf("no snapshot price for %s", symbol)
		}
		inst, _ := m.reg.Lookup(symbol)
		intents = append(intents, schema.TradeIntent{
			Symbol: symbol,
			Qty:    inst.LotSize,
			Price:  price,
			Note:   "open basket",
		})
	}
	return intents, nil
}

// ShouldRebalance reports whether a full interval elapsed since the last
// rebalance. Before any rebalance has run it stays false; the opening
// trades anchor the cadence.
func (m *Momentum) ShouldRebalance(ms schema.MarketSnapshot, view BookView) bool {
	last := view.LastRebalance()
	if last.IsZero() {
		return false
	}
	return time.Unix(0, ms.Timestamp).Sub(last) >= m.interval
}

// Rebalance re-targets equal weights from current equity. Sells are
// emitted before buys so freed cash can fund the buys within the tick.
func (m *Momentum) Rebalance(ms schema.MarketSnapshot, view BookView) ([]schema.TradeIntent, error) {
	held := make(map[string]schema.Quantity, len(m.symbols))
	equity := int64(view.Cash())
	for _, p := range view.Positions() {
		held[p.Symbol] = p.Qty
		price, ok := ms.PriceOf(p.Symbol)
		if !ok {
			price = p.AvgCost
		}
		equity += int64(p.MarketValue(price))
	}
	if equity <= 0 {
		return nil, nil
	}
	slice := equity / int64(len(m.symbols))

	var sells, buys []schema.TradeIntent
	for _, symbol := range m.symbols {
		price, ok := ms.PriceOf(symbol)
		if !ok || price <= 0 {
			continue
		}
		inst, _ := m.reg.Lookup(symbol)
		target := schema.Quantity(slice / int64(price))
		target -= target % inst.LotSize
		delta := target - held[symbol]
		if delta == 0 {
			continue
		}
		intent := schema.TradeIntent{
			Symbol: symbol,
			Qty:    delta,
			Price:  price,
			Note:   "retarget weight",
		}
		if delta < 0 {
			sells = append(sells, intent)
		} else {
			buys = append(buys, intent)
		}
	}
	return append(sells, buys...), nil
}

// Metrics reports basket shape and cadence.
func (m *Momentum) Metrics() map[string]float64 {
	return map[string]float64{
		"basket_size":      float64(len(m.symbols)),
		"interval_seconds": m.interval.Seconds(),
	}
}
