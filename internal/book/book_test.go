package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func trade(symbol string, qty schema.Quantity, price schema.Price) schema.Trade {
	return schema.Trade{
		StrategyID: "s1",
		Symbol:     symbol,
		Qty:        qty,
		Price:      price,
		Timestamp:  1,
	}
}

func TestApplyOpensPosition(t *testing.T) {
	b := New()
	realized := b.Apply(trade("ACME", 10, 10000))
	assert.Equal(t, schema.PnL(0), realized)

	pos, ok := b.Position("ACME")
	require.True(t, ok)
	assert.Equal(t, schema.Quantity(10), pos.Qty)
	assert.Equal(t, schema.Price(10000), pos.AvgCost)
}

func TestApplyWeightedAverage(t *testing.T) {
	b := New()
	b.Apply(trade("ACME", 10, 10000))
	realized := b.Apply(trade("ACME", 10, 20000))
	assert.Equal(t, schema.PnL(0), realized)

	pos, ok := b.Position("ACME")
	require.True(t, ok)
	assert.Equal(t, schema.Quantity(20), pos.Qty)
	assert.Equal(t, schema.Price(15000), pos.AvgCost)
}

func TestApplyPartialCloseRealizes(t *testing.T) {
	b := New()
	b.Apply(trade("ACME", 10, 10000))
	realized := b.Apply(trade("ACME", -4, 15000))
	assert.Equal(t, schema.PnL(4*5000), realized)

	pos, ok := b.Position("ACME")
	require.True(t, ok)
	assert.Equal(t, schema.Quantity(6), pos.Qty)
	// cost basis unchanged by a reduction
	assert.Equal(t, schema.Price(10000), pos.AvgCost)
}

func TestApplyFullCloseRemovesPosition(t *testing.T) {
	b := New()
	b.Apply(trade("ACME", 10, 150000))
	realized := b.Apply(trade("ACME", -10, 155000))
	assert.Equal(t, schema.PnL(10*5000), realized)
	assert.Equal(t, 0, b.Len())
	_, ok := b.Position("ACME")
	assert.False(t, ok)
}

func TestApplyFlipOpensRemainderAtTradePrice(t *testing.T) {
	b := New()
	b.Apply(trade("ACME", 10, 10000))
	realized := b.Apply(trade("ACME", -15, 12000))
	// realized on the 10 closed units only
	assert.Equal(t, schema.PnL(10*2000), realized)

	pos, ok := b.Position("ACME")
	require.True(t, ok)
	assert.Equal(t, schema.Quantity(-5), pos.Qty)
	assert.Equal(t, schema.Price(12000), pos.AvgCost)
}

func TestApplyShortCover(t *testing.T) {
	b := New()
	b.Apply(trade("ACME", -10, 10000))
	realized := b.Apply(trade("ACME", 4, 8000))
	// short profits when price falls
	assert.Equal(t, schema.PnL(4*2000), realized)

	pos, ok := b.Position("ACME")
	require.True(t, ok)
	assert.Equal(t, schema.Quantity(-6), pos.Qty)
}

func TestRealizedForDoesNotMutate(t *testing.T) {
	b := New()
	b.Apply(trade("ACME", 10, 10000))

	sell := trade("ACME", -4, 15000)
	preview := b.RealizedFor(sell)
	assert.Equal(t, schema.PnL(4*5000), preview)

	pos, ok := b.Position("ACME")
	require.True(t, ok)
	assert.Equal(t, schema.Quantity(10), pos.Qty)

	assert.Equal(t, preview, b.Apply(sell))
}

func TestQuantityConservation(t *testing.T) {
	b := New()
	trades := []schema.Trade{
		trade("ACME", 10, 10000),
		trade("ACME", 5, 12000),
		trade("ACME", -8, 11000),
		trade("ACME", -10, 9000),
		trade("ACME", 3, 9500),
	}
	var sum schema.Quantity
	for _, tr := range trades {
		b.Apply(tr)
		sum += tr.Qty
	}
	assert.Equal(t, sum, b.Quantity("ACME"))
}

func TestMarketValueFallsBackToCost(t *testing.T) {
	b := New()
	b.Apply(trade("ACME", 10, 10000))
	b.Apply(trade("ZETA", 2, 50000))

	ms := schema.MarketSnapshot{Prices: map[string]schema.Price{"ACME": 11000}}
	assert.Equal(t, schema.Cash(10*11000+2*50000), b.MarketValue(ms))
	// symbols without a price contribute zero unrealized
	assert.Equal(t, schema.PnL(10*1000), b.UnrealizedPnL(ms))
}

func TestPositionsSortedCopies(t *testing.T) {
	b := New()
	b.Apply(trade("ZETA", 1, 100))
	b.Apply(trade("ACME", 1, 100))

	positions := b.Positions()
	require.Len(t, positions, 2)
	assert.Equal(t, "ACME", positions[0].Symbol)
	assert.Equal(t, "ZETA", positions[1].Symbol)

	positions[0].Qty = 99
	assert.Equal(t, schema.Quantity(1), b.Quantity("ACME"))
}
