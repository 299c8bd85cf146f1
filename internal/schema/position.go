package schema

// Position is a per-strategy holding in one instrument. Quantity is a lot
// multiple; zero-quantity positions are removed, never retained.
type Position struct {
	StrategyID string   `json:"strategyId"`
	Symbol     string   `json:"symbol"`
	Qty        Quantity `json:"qty"` // signed
	AvgCost    Price    `json:"avgCost"`
	OpenedAt   int64    `json:"openedAt"` // UnixNano UTC
}

// MarketValue returns the signed mark-to-market value of the position.
func (p Position) MarketValue(price Price) Cash {
	return Cash(int64(p.Qty) * int64(price))
}

// UnrealizedPnL returns the mark-to-market profit against cost basis.
func (p Position) UnrealizedPnL(price Price) PnL {
	return PnL(int64(p.Qty) * (int64(price) - int64(p.AvgCost)))
}
