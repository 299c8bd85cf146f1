package schema

// TradeIntent is a trade proposed by a strategy. The engine validates it
// and turns accepted intents into ledger trades.
type TradeIntent struct {
	Symbol string
	Qty    Quantity // signed: positive buys, negative sells
	Price  Price
	Note   string
}

// Trade is one committed simulated trade. Immutable once appended to the
// ledger.
type Trade struct {
	ID          uint64   `json:"id"`
	StrategyID  string   `json:"strategyId"`
	Symbol      string   `json:"symbol"`
	Qty         Quantity `json:"qty"` // signed
	Price       Price    `json:"price"`
	Fees        Fee      `json:"fees"`
	RealizedPnL PnL      `json:"realizedPnl"` // extracted on the closed portion, zero otherwise
	Timestamp   int64    `json:"timestamp"`   // UnixNano UTC
	Note        string   `json:"note,omitempty"`
}

// Notional returns |qty| * price, reporting overflow.
func Notional(price Price, qty Quantity) (Cash, bool) {
	p := int64(price)
	q := int64(qty)
	if p < 0 {
		p = -p
	}
	if q < 0 {
		q = -q
	}
	if p == 0 || q == 0 {
		return 0, false
	}
	if p > maxInt64/q {
		return 0, true
	}
	return Cash(p * q), false
}

// CashImpact returns the signed cash movement of a trade: negative for
// buys (cost plus fees), positive for sells (proceeds minus fees).
func (t Trade) CashImpact() Cash {
	return Cash(-int64(t.Qty)*int64(t.Price)) - Cash(t.Fees)
}
