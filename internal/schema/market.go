package schema

// MarketSnapshot is one externally supplied market observation.
type MarketSnapshot struct {
	Timestamp int64 `json:"timestamp"` // UnixNano UTC
	// Prices maps instrument symbol to last traded price.
	Prices map[string]Price `json:"prices"`
	// VolIndex is the volatility index level, same scale as prices.
	VolIndex Price `json:"volIndex"`
}

// PriceOf returns the snapshot price for a symbol.
func (ms MarketSnapshot) PriceOf(symbol string) (Price, bool) {
	p, ok := ms.Prices[symbol]
	return p, ok
}
