package store

import (
	"github.com/yanun0323/errors"
	"gorm.io/gorm/clause"

	"main/internal/schema"
	"main/pkg/conn"
)

// PG persists engine state in PostgreSQL through gorm.
type PG struct {
	client *conn.Client
}

type tradeRow struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement:false"`
	StrategyID  string `gorm:"index;size:64"`
	Symbol      string `gorm:"size:64"`
	Qty         int64
	Price       int64
	Fees        int64
	RealizedPnl int64
	Timestamp   int64 `gorm:"index"`
	Note        string
}

func (tradeRow) TableName() string { return "trade_ledger" }

type positionRow struct {
	StrategyID string `gorm:"primaryKey;size:64"`
	Symbol     string `gorm:"primaryKey;size:64"`
	Qty        int64
	AvgCost    int64
	OpenedAt   int64
}

func (positionRow) TableName() string { return "strategy_positions" }

type snapshotRow struct {
	Timestamp     int64  `gorm:"primaryKey;autoIncrement:false"`
	Entity        string `gorm:"primaryKey;size:64"`
	Cash          int64
	PositionValue int64
	RealizedPnl   int64
	UnrealizedPnl int64
	Final         bool
}

func (snapshotRow) TableName() string { return "portfolio_snapshots" }

type strategyRow struct {
	Name       string `gorm:"primaryKey;size:64"`
	Type       string `gorm:"size:32"`
	Allocation int64
	Status     string `gorm:"size:16"`
}

func (strategyRow) TableName() string { return "strategies" }

// NewPG opens a PostgreSQL-backed store and migrates its tables.
func NewPG(option conn.Option) (*PG, error) {
	client, err := conn.New(option)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := client.DB().AutoMigrate(&tradeRow{}, &positionRow{}, &snapshotRow{}, &strategyRow{}); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "migrate tables")
	}
	return &PG{client: client}, nil
}

// Close closes the underlying connection pool.
func (s *PG) Close() error {
	return s.client.Close()
}

// AppendTrade inserts one immutable trade row.
func (s *PG) AppendTrade(t schema.Trade) error {
	row := tradeRow{
		ID:          t.ID,
		StrategyID:  t.StrategyID,
		Symbol:      t.Symbol,
		Qty:         int64(t.Qty),
		Price:       int64(t.Price),
		Fees:        int64(t.Fees),
		RealizedPnl: int64(t.RealizedPnL),
		Timestamp:   t.Timestamp,
		Note:        t.Note,
	}
	if err := s.client.DB().Create(&row).Error; err != nil {
		return errors.Wrap(err, "append trade")
	}
	return nil
}

// UpsertPosition inserts or replaces a position row.
func (s *PG) UpsertPosition(p schema.Position) error {
	row := positionRow{
		StrategyID: p.StrategyID,
		Symbol:     p.Symbol,
		Qty:        int64(p.Qty),
		AvgCost:    int64(p.AvgCost),
		OpenedAt:   p.OpenedAt,
	}
	err := s.client.DB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "strategy_id"}, {Name: "symbol"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return errors.Wrap(err, "upsert position")
	}
	return nil
}

// DeletePosition removes a position row.
func (s *PG) DeletePosition(strategyID, symbol string) error {
	err := s.client.DB().
		Where("strategy_id = ? AND symbol = ?", strategyID, symbol).
		Delete(&positionRow{}).Error
	if err != nil {
		return errors.Wrap(err, "delete position")
	}
	return nil
}

// InsertSnapshot inserts one snapshot row. Rows are never updated.
func (s *PG) InsertSnapshot(row schema.SnapshotRow) error {
	rec := snapshotRow{
		Timestamp:     row.Timestamp,
		Entity:        row.Entity,
		Cash:          int64(row.Cash),
		PositionValue: int64(row.PositionValue),
		RealizedPnl:   int64(row.RealizedPnL),
		UnrealizedPnl: int64(row.UnrealizedPnL),
		Final:         row.Final,
	}
	if err := s.client.DB().Create(&rec).Error; err != nil {
		return errors.Wrap(err, "insert snapshot")
	}
	return nil
}

// UpsertStrategy inserts or replaces a strategy metadata row.
func (s *PG) UpsertStrategy(meta StrategyMeta) error {
	row := strategyRow{
		Name:       meta.Name,
		Type:       meta.Type,
		Allocation: int64(meta.Allocation),
		Status:     meta.Status,
	}
	err := s.client.DB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return errors.Wrap(err, "upsert strategy")
	}
	return nil
}

// LoadStrategyMetadata returns all strategy rows sorted by name.
func (s *PG) LoadStrategyMetadata() ([]StrategyMeta, error) {
	var rows []strategyRow
	if err := s.client.DB().Order("name").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load strategies")
	}
	out := make([]StrategyMeta, 0, len(rows))
	for _, row := range rows {
		out = append(out, StrategyMeta{
			Name:       row.Name,
			Type:       row.Type,
			Allocation: schema.Cash(row.Allocation),
			Status:     row.Status,
		})
	}
	return out, nil
}

// SnapshotsSince returns snapshot rows at or after ts ordered by time.
// Read side for reporting; the engine itself never reads snapshots back.
func (s *PG) SnapshotsSince(ts int64) ([]schema.SnapshotRow, error) {
	var rows []snapshotRow
	err := s.client.DB().
		Where("timestamp >= ?", ts).
		Order("timestamp, entity").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "load snapshots")
	}
	out := make([]schema.SnapshotRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, schema.SnapshotRow{
			Timestamp:     row.Timestamp,
			Entity:        row.Entity,
			Cash:          schema.Cash(row.Cash),
			PositionValue: schema.Cash(row.PositionValue),
			RealizedPnL:   schema.PnL(row.RealizedPnl),
			UnrealizedPnL: schema.PnL(row.UnrealizedPnl),
			Final:         row.Final,
		})
	}
	return out, nil
}

var (
	_ Store = (*PG)(nil)
	_ Store = (*Memory)(nil)
)
