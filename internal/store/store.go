package store

import "main/internal/schema"

// StrategyMeta is the durable strategy configuration row.
type StrategyMeta struct {
	Name       string
	Type       string
	Allocation schema.Cash
	Status     string
}

// Store is the persistence surface the engine needs. The engine treats
// writes as durable and ordered; it does not own the storage medium.
type Store interface {
	AppendTrade(t schema.Trade) error
	UpsertPosition(p schema.Position) error
	DeletePosition(strategyID, symbol string) error
	InsertSnapshot(row schema.SnapshotRow) error
	UpsertStrategy(meta StrategyMeta) error
	LoadStrategyMetadata() ([]StrategyMeta, error)
}
