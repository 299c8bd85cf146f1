package schema

// EntityPortfolio is the snapshot entity for the aggregate portfolio row.
const EntityPortfolio = "portfolio"

// SnapshotRow is one durable valuation row, written per strategy and for
// the aggregate portfolio on every tick and at day close. Append-only.
type SnapshotRow struct {
	Timestamp     int64  `json:"timestamp"` // UnixNano UTC
	Entity        string `json:"entity"`    // strategy id or EntityPortfolio
	Cash          Cash   `json:"cash"`
	PositionValue Cash   `json:"positionValue"`
	RealizedPnL   PnL    `json:"realizedPnl"`
	UnrealizedPnL PnL    `json:"unrealizedPnl"`
	Final         bool   `json:"final"` // set by day close
}

// Equity returns cash plus position value.
func (s SnapshotRow) Equity() Cash {
	return s.Cash + s.PositionValue
}
