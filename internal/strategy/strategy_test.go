package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

type stubView struct {
	positions     []schema.Position
	cash          schema.Cash
	allocated     schema.Cash
	lastRebalance time.Time
}

func (v stubView) Positions() []schema.Position  { return v.positions }
func (v stubView) Cash() schema.Cash             { return v.cash }
func (v stubView) AllocatedCapital() schema.Cash { return v.allocated }
func (v stubView) LastRebalance() time.Time      { return v.lastRebalance }

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, reg.Add(schema.Instrument{Symbol: "ACME", Class: schema.AssetClassEquity, LotSize: 1}))
	require.NoError(t, reg.Add(schema.Instrument{Symbol: "ZETA", Class: schema.AssetClassEquity, LotSize: 5}))
	require.NoError(t, reg.Add(schema.Instrument{Symbol: "OPT-F", Class: schema.AssetClassIndexOption, LotSize: 50}))
	require.NoError(t, reg.Add(schema.Instrument{Symbol: "OPT-B", Class: schema.AssetClassIndexOption, LotSize: 50}))
	return reg
}

func TestNewRejectsBadConfig(t *testing.T) {
	reg := testRegistry(t)

	_, err := New(Config{Type: "demo", Allocation: 100}, reg)
	assert.Error(t, err, "missing name")

	_, err = New(Config{Name: "x", Type: "demo", Symbol: "ACME", Qty: 1}, reg)
	assert.Error(t, err, "missing allocation")

	_, err = New(Config{Name: "x", Type: "alpha", Allocation: 100}, reg)
	assert.Error(t, err, "unknown type")

	_, err = New(Config{Name: "x", Type: "momentum", Allocation: 100, Symbols: []string{"NOPE"}, Interval: time.Hour}, reg)
	assert.Error(t, err, "unregistered symbol")
}

func TestDemoBuysOnceAndHolds(t *testing.T) {
	reg := testRegistry(t)
	s, err := New(Config{Name: "d", Type: "demo", Allocation: 100000, Symbol: "ACME", Qty: 10}, reg)
	require.NoError(t, err)

	ms := schema.MarketSnapshot{Prices: map[string]schema.Price{"ACME": 10000}}
	intents, err := s.InitializePositions(ms)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, schema.Quantity(10), intents[0].Qty)
	assert.Equal(t, schema.Price(10000), intents[0].Price)

	assert.False(t, s.ShouldRebalance(ms, stubView{}))
}

func TestVolatilityHysteresisBand(t *testing.T) {
	reg := testRegistry(t)
	s, err := New(Config{
		Name:       "vol",
		Type:       "volatility",
		Allocation: 1000000,
		AllowShort: true,
		Legs:       []Leg{{Symbol: "OPT-B", Qty: 50}, {Symbol: "OPT-F", Qty: -50}},
		Protection: []Leg{{Symbol: "OPT-F", Qty: 50}},
		VolBand:    200,
	}, reg)
	require.NoError(t, err)

	base := schema.MarketSnapshot{
		Prices:   map[string]schema.Price{"OPT-B": 12000, "OPT-F": 8000},
		VolIndex: 1500,
	}
	intents, err := s.InitializePositions(base)
	require.NoError(t, err)
	require.Len(t, intents, 2)

	inside := base
	inside.VolIndex = 1650
	assert.False(t, s.ShouldRebalance(inside, stubView{}), "within the band")

	edge := base
	edge.VolIndex = 1700
	assert.False(t, s.ShouldRebalance(edge, stubView{}), "band boundary is inclusive")

	outside := base
	outside.VolIndex = 1701
	assert.True(t, s.ShouldRebalance(outside, stubView{}))
}

func TestVolatilityShouldRebalanceIsPure(t *testing.T) {
	reg := testRegistry(t)
	s, err := New(Config{
		Name:       "vol",
		Type:       "volatility",
		Allocation: 1000000,
		Legs:       []Leg{{Symbol: "OPT-B", Qty: 50}},
		VolBand:    200,
	}, reg)
	require.NoError(t, err)

	base := schema.MarketSnapshot{
		Prices:   map[string]schema.Price{"OPT-B": 12000, "OPT-F": 8000},
		VolIndex: 1500,
	}
	_, err = s.InitializePositions(base)
	require.NoError(t, err)

	spike := base
	spike.VolIndex = 1800
	for i := 0; i < 5; i++ {
		assert.True(t, s.ShouldRebalance(spike, stubView{}), "repeated calls must agree")
	}
}

func TestVolatilityRebalanceAnchorsAndProtects(t *testing.T) {
	reg := testRegistry(t)
	s, err := New(Config{
		Name:       "vol",
		Type:       "volatility",
		Allocation: 1000000,
		Legs:       []Leg{{Symbol: "OPT-B", Qty: 50}},
		Protection: []Leg{{Symbol: "OPT-F", Qty: 50}},
		VolBand:    200,
	}, reg)
	require.NoError(t, err)

	base := schema.MarketSnapshot{
		Prices:   map[string]schema.Price{"OPT-B": 12000, "OPT-F": 8000},
		VolIndex: 1500,
	}
	_, err = s.InitializePositions(base)
	require.NoError(t, err)

	spike := base
	spike.VolIndex = 1800
	intents, err := s.Rebalance(spike, stubView{})
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, schema.Quantity(50), intents[0].Qty, "buys protection on a spike")

	// anchor re-based at 1800: the old level is now outside the band
	crush := base
	crush.VolIndex = 1500
	assert.True(t, s.ShouldRebalance(crush, stubView{}))

	intents, err = s.Rebalance(crush, stubView{})
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, schema.Quantity(-50), intents[0].Qty, "unwinds protection on a crush")
}

func TestMomentumCadenceIsElapsedTime(t *testing.T) {
	reg := testRegistry(t)
	s, err := New(Config{
		Name:       "mom",
		Type:       "momentum",
		Allocation: 1000000,
		Symbols:    []string{"ACME", "ZETA"},
		Interval:   time.Hour,
	}, reg)
	require.NoError(t, err)

	last := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	ms := schema.MarketSnapshot{
		Timestamp: last.Add(30 * time.Minute).UnixNano(),
		Prices:    map[string]schema.Price{"ACME": 10000, "ZETA": 5000},
	}
	view := stubView{lastRebalance: last}
	assert.False(t, s.ShouldRebalance(ms, view), "half the interval elapsed")

	ms.Timestamp = last.Add(time.Hour).UnixNano()
	assert.True(t, s.ShouldRebalance(ms, view), "a full interval elapsed")

	assert.False(t, s.ShouldRebalance(ms, stubView{}), "no cadence before opening trades")
}

func TestMomentumRebalanceSellsBeforeBuys(t *testing.T) {
	reg := testRegistry(t)
	s, err := New(Config{
		Name:       "mom",
		Type:       "momentum",
		Allocation: 1000000,
		Symbols:    []string{"ACME", "ZETA"},
		Interval:   time.Hour,
	}, reg)
	require.NoError(t, err)

	// ACME heavily overweight, ZETA absent
	view := stubView{
		cash: 100000,
		positions: []schema.Position{
			{StrategyID: "mom", Symbol: "ACME", Qty: 90, AvgCost: 10000},
		},
	}
	ms := schema.MarketSnapshot{
		Timestamp: time.Now().UnixNano(),
		Prices:    map[string]schema.Price{"ACME": 10000, "ZETA": 5000},
	}

	intents, err := s.Rebalance(ms, view)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.True(t, intents[0].Qty < 0, "sell emitted first")
	assert.True(t, intents[1].Qty > 0, "buy emitted second")

	// equity 1_000_000, slice 500_000: ACME target 50, ZETA target 100
	// floored to lot 5
	assert.Equal(t, "ACME", intents[0].Symbol)
	assert.Equal(t, schema.Quantity(-40), intents[0].Qty)
	assert.Equal(t, "ZETA", intents[1].Symbol)
	assert.Equal(t, schema.Quantity(100), intents[1].Qty)
}

func TestMomentumLotFlooring(t *testing.T) {
	reg := testRegistry(t)
	s, err := New(Config{
		Name:       "mom",
		Type:       "momentum",
		Allocation: 1000000,
		Symbols:    []string{"ZETA"},
		Interval:   time.Hour,
	}, reg)
	require.NoError(t, err)

	view := stubView{cash: 36000}
	ms := schema.MarketSnapshot{
		Timestamp: time.Now().UnixNano(),
		Prices:    map[string]schema.Price{"ZETA": 5000},
	}
	intents, err := s.Rebalance(ms, view)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	// raw target 7.2 units, floored to lot 5
	assert.Equal(t, schema.Quantity(5), intents[0].Qty)
}
