package strategy

import (
	"fmt"
	"time"

	"main/internal/schema"
)

// BookView is the read-only window a strategy gets over its own state.
// Strategies read it to decide; only the engine mutates the underlying
// book and cash.
type BookView interface {
	Positions() []schema.Position
	Cash() schema.Cash
	AllocatedCapital() schema.Cash
	LastRebalance() time.Time
}

// Strategy is the capability set every variant implements.
//
// ShouldRebalance must be a pure predicate: identical snapshot and view
// yield an identical answer, with no strategy-state mutation. Trigger
// anchors move only inside Rebalance.
type Strategy interface {
	Name() string

	// InitializePositions proposes the opening trades. Called exactly
	// once at engine start, constrained to the allocated capital.
	InitializePositions(ms schema.MarketSnapshot) ([]schema.TradeIntent, error)

	// ShouldRebalance reports whether Rebalance should run on this
	// snapshot.
	ShouldRebalance(ms schema.MarketSnapshot, view BookView) bool

	// Rebalance proposes trades for this snapshot. Called only when
	// ShouldRebalance returned true on the same snapshot. It returns
	// intent; the engine validates and applies.
	Rebalance(ms schema.MarketSnapshot, view BookView) ([]schema.TradeIntent, error)

	// Metrics returns strategy-specific values for reporting. Never
	// consumed by engine control logic.
	Metrics() map[string]float64
}

// Leg is one instrument leg of a multi-leg strategy. Qty is signed.
type Leg struct {
	Symbol string
	Qty    schema.Quantity
}

// Config selects and parameterizes one strategy variant.
type Config struct {
	Name       string
	Type       string // "volatility" | "momentum" | "demo"
	Allocation schema.Cash
	AllowShort bool

	// volatility
	Legs       []Leg
	Protection []Leg
	VolBand    schema.Price

	// momentum
	Symbols  []string
	Interval time.Duration

	// demo
	Symbol string
	Qty    schema.Quantity
}

// New builds a strategy variant from its config.
func New(cfg Config, reg *schema.Registry) (Strategy, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("strategy name is empty")
	}
	if cfg.Allocation <= 0 {
		return nil, fmt.Errorf("strategy %s: allocation must be > 0", cfg.Name)
	}
	switch cfg.Type {
	case "volatility":
		return newVolatility(cfg)
	case "momentum":
		return newMomentum(cfg, reg)
	case "demo":
		return newDemo(cfg)
	default:
		return nil, fmt.Errorf("unknown strategy type: %q", cfg.Type)
	}
}
