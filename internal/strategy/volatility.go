package strategy

import (
	"fmt"

	"main/internal/schema"
)

// Volatility runs a calendar straddle: long back-month straddle, short
// front-month straddle, optional protective wings. It rebalances when
// the volatility index leaves the hysteresis band recorded at the last
// rebalance, which prevents thrashing at the boundary.
type Volatility struct {
	name       string
	legs       []Leg
	protection []Leg
	band       schema.Price

	anchor    schema.Price // vol index at last rebalance
	protected bool
}

func newVolatility(cfg Config) (*Volatility, error) {
	if len(cfg.Legs) == 0 {
		return nil, fmt.Errorf("strategy %s: no legs configured", cfg.Name)
	}
	if cfg.VolBand <= 0 {
		return nil, fmt.Errorf("strategy %s: vol band must be > 0", cfg.Name)
	}
	return &Volatility{
		name:       cfg.Name,
		legs:       cfg.Legs,
		protection: cfg.Protection,
		band:       cfg.VolBand,
	}, nil
}

func (v *Volatility) Name() string { return v.name }

// InitializePositions opens every configured leg at snapshot prices and
// anchors the volatility band.
func (v *Volatility) InitializePositions(ms schema.MarketSnapshot) ([]schema.TradeIntent, error) {
	intents := make([]schema.TradeIntent, 0, len(v.legs))
	for _, leg := range v.legs {
		price, ok := ms.PriceOf(leg.Symbol)
		if !ok {
			return nil, fmt.Errorf("no snapshot price for leg %s", leg.Symbol)
		}
		intents = append(intents, schema.TradeIntent{
			Symbol: leg.Symbol,
			Qty:    leg.Qty,
			Price:  price,
			Note:   "open leg",
		})
	}
	v.anchor = ms.VolIndex
	return intents, nil
}

// ShouldRebalance reports whether the vol index left the anchored band.
func (v *Volatility) ShouldRebalance(ms schema.MarketSnapshot, _ BookView) bool {
	if v.anchor == 0 {
		return false
	}
	diff := ms.VolIndex - v.anchor
	if diff < 0 {
		diff = -diff
	}
	return diff > v.band
}

// Rebalance adds protection on a vol spike, unwinds it on a vol crush,
// and re-anchors the band at the current level either way.
func (v *Volatility) Rebalance(ms schema.MarketSnapshot, _ BookView) ([]schema.TradeIntent, error) {
	var intents []schema.TradeIntent

	switch {
	case ms.VolIndex > v.anchor && !v.protected:
		for _, leg := range v.protection {
			price, ok := ms.PriceOf(leg.Symbol)
			if !ok {
				return nil, fmt.Errorf("no snapshot price for protection %s", leg.Symbol)
			}
			intents = append(intents, schema.TradeIntent{
				Symbol: leg.Symbol,
				Qty:    leg.Qty,
				Price:  price,
				Note:   "vol spike protection",
			})
		}
		v.protected = len(v.protection) > 0
	case ms.VolIndex < v.anchor && v.protected:
		for _, leg := range v.protection {
			price, ok := ms.PriceOf(leg.Symbol)
			if !ok {
				return nil, fmt.Errorf("no snapshot price for protection %s", leg.Symbol)
			}
			intents = append(intents, schema.TradeIntent{
				Symbol: leg.Symbol,
				Qty:    -leg.Qty,
				Price:  price,
				Note:   "unwind protection",
			})
		}
		v.protected = false
	}

	v.anchor = ms.VolIndex
	return intents, nil
}

// Metrics reports the band state. Values are raw scaled integers.
func (v *Volatility) Metrics() map[string]float64 {
	protected := 0.0
	if v.protected {
		protected = 1.0
	}
	return map[string]float64{
		"vol_anchor": float64(v.anchor),
		"vol_band":   float64(v.band),
		"protected":  protected,
		"leg_count":  float64(len(v.legs)),
	}
}
