package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/book"
	"main/internal/bus"
	"main/internal/ledger"
	"main/internal/obs"
	"main/internal/schema"
	"main/internal/store"
	"main/internal/strategy"
	"main/pkg/exception"
)

// Config wires the engine's collaborators.
type Config struct {
	Registry *schema.Registry
	Ledger   *ledger.Ledger
	Store    store.Store
	Events   *bus.Queue   // optional
	Metrics  *obs.Metrics // optional

	// FeePerLot is charged per lot on every committed trade.
	FeePerLot schema.Fee
}

// Option carries per-strategy registration settings.
type Option struct {
	// AllowShort permits sells beyond the held quantity.
	AllowShort bool
}

// Engine advances all registered strategies through the tick cycle. A
// single mutex serializes Start, OnTick and OnDayClose; strategies never
// see each other's state.
type Engine struct {
	mu      sync.Mutex
	started bool

	registry  *schema.Registry
	ledger    *ledger.Ledger
	store     store.Store
	events    *bus.Queue
	metrics   *obs.Metrics
	feePerLot schema.Fee

	order    []string
	runtimes map[string]*runtime

	lastGood    schema.MarketSnapshot
	hasLastGood bool
}

// runtime is one strategy's private execution state. It doubles as the
// read-only BookView handed to the strategy.
type runtime struct {
	strat      strategy.Strategy
	id         string
	status     schema.StrategyStatus
	stratType  string
	allocated  schema.Cash
	cash       schema.Cash
	realized   schema.PnL
	book       *book.Book
	allowShort bool

	lastRebalance time.Time
}

func (r *runtime) Positions() []schema.Position  { return r.book.Positions() }
func (r *runtime) Cash() schema.Cash             { return r.cash }
func (r *runtime) AllocatedCapital() schema.Cash { return r.allocated }
func (r *runtime) LastRebalance() time.Time      { return r.lastRebalance }

var _ strategy.BookView = (*runtime)(nil)

// New creates an engine with no strategies registered.
func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("engine: registry is nil")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("engine: ledger is nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine: store is nil")
	}
	if cfg.FeePerLot < 0 {
		return nil, fmt.Errorf("engine: fee per lot must be >= 0")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = obs.NewMetrics()
	}
	return &Engine{
		registry:  cfg.Registry,
		ledger:    cfg.Ledger,
		store:     cfg.Store,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		feePerLot: cfg.FeePerLot,
		runtimes:  make(map[string]*runtime),
	}, nil
}

// AddStrategy registers a strategy with its capital allocation before
// Start. Registration order is tick processing order.
func (e *Engine) AddStrategy(s strategy.Strategy, stratType string, allocation schema.Cash, opt Option) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return exception.ErrEngineStarted
	}
	if allocation <= 0 {
		return fmt.Errorf("strategy %s: allocation must be > 0", s.Name())
	}
	name := s.Name()
	if _, ok := e.runtimes[name]; ok {
		return fmt.Errorf("%w: %s", exception.ErrStrategyExists, name)
	}
	e.runtimes[name] = &runtime{
		strat:      s,
		id:         name,
		status:     schema.StrategyInitializing,
		stratType:  stratType,
		allocated:  allocation,
		cash:       allocation,
		book:       book.New(),
		allowShort: opt.AllowShort,
	}
	e.order = append(e.order, name)
	return nil
}

// Start opens every strategy's initial positions against the given
// snapshot. A strategy whose proposals exceed its allocation stays
// Initializing and is excluded from ticks; the others activate. A
// persistence failure while committing opening trades aborts Start.
func (e *Engine) Start(ms schema.MarketSnapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return exception.ErrEngineStarted
	}
	if len(e.order) == 0 {
		return fmt.Errorf("engine: no strategies registered")
	}

	now := time.Unix(0, ms.Timestamp)
	for _, name := range e.order {
		r := e.runtimes[name]
		if err := e.initialize(r, ms); err != nil {
			// only strategy-local failures exclude; a failed write
			// already landed partial state and must stop the run
			if errors.Is(err, exception.ErrPersistence) {
				return err
			}
			logs.Warnf("strategy %s excluded: %+v", name, err)
			e.publish(bus.Event{
				Kind:       bus.EventStrategyExcluded,
				Timestamp:  ms.Timestamp,
				StrategyID: name,
				Reason:     err.Error(),
				Err:        err,
			})
		} else {
			r.status = schema.StrategyActive
			r.lastRebalance = now
		}
		if err := e.store.UpsertStrategy(store.StrategyMeta{
			Name:       r.id,
			Type:       r.stratType,
			Allocation: r.allocated,
			Status:     r.status.String(),
		}); err != nil {
			return fmt.Errorf("%w, err: %v", exception.ErrPersistence, err)
		}
	}

	e.started = true
	e.lastGood = ms
	e.hasLastGood = true
	return e.snapshotAll(ms, false)
}

// initialize validates and commits a strategy's opening trades. The full
// proposal must fit the allocation; it commits whole or not at all.
func (e *Engine) initialize(r *runtime, ms schema.MarketSnapshot) error {
	intents, err := callInitialize(r.strat, ms)
	if err != nil {
		return err
	}

	var total schema.Cash
	trades := make([]schema.Trade, 0, len(intents))
	for _, intent := range intents {
		t, reason := e.validate(r, intent, ms.Timestamp)
		if reason != "" {
			return fmt.Errorf("%w: %s %s", exception.ErrInsufficientAllocation, intent.Symbol, reason)
		}
		total -= t.CashImpact()
		trades = append(trades, t)
	}
	if total > r.allocated {
		return fmt.Errorf("%w: need %d, allocated %d", exception.ErrInsufficientAllocation, total, r.allocated)
	}

	for _, t := range trades {
		if err := e.commit(r, t); err != nil {
			return err
		}
	}
	return nil
}

// Resume reactivates a suspended strategy.
func (e *Engine) Resume(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.runtimes[name]
	if !ok {
		return fmt.Errorf("%w: %s", exception.ErrStrategyNotFound, name)
	}
	if r.status != schema.StrategySuspended {
		return fmt.Errorf("%w: %s is %s", exception.ErrStrategyNotSuspended, name, r.status)
	}
	r.status = schema.StrategyActive
	if err := e.store.UpsertStrategy(store.StrategyMeta{
		Name:       r.id,
		Type:       r.stratType,
		Allocation: r.allocated,
		Status:     r.status.String(),
	}); err != nil {
		logs.Errorf("persist strategy status, err: %+v", err)
	}
	logs.Infof("strategy %s resumed", name)
	return nil
}

// Status returns a strategy's lifecycle status.
func (e *Engine) Status(name string) (schema.StrategyStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.runtimes[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", exception.ErrStrategyNotFound, name)
	}
	return r.status, nil
}

// StrategyState is a reporting view over one registered strategy.
type StrategyState struct {
	Name      string
	Status    schema.StrategyStatus
	Allocated schema.Cash
	Cash      schema.Cash
	Realized  schema.PnL
	Positions []schema.Position
	Metrics   map[string]float64
}

// States returns reporting views for all strategies in registration order.
func (e *Engine) States() []StrategyState {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]StrategyState, 0, len(e.order))
	for _, name := range e.order {
		r := e.runtimes[name]
		out = append(out, StrategyState{
			Name:      r.id,
			Status:    r.status,
			Allocated: r.allocated,
			Cash:      r.cash,
			Realized:  r.realized,
			Positions: r.book.Positions(),
			Metrics:   r.strat.Metrics(),
		})
	}
	return out
}

// PortfolioState returns the aggregate portfolio valuation at the last
// good snapshot's prices.
func (e *Engine) PortfolioState() schema.SnapshotRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aggregateRow(e.valuationSnapshot(), false)
}

// valuationSnapshot returns the prices to value positions at. Before any
// successful tick there are none, so books fall back to cost basis.
func (e *Engine) valuationSnapshot() schema.MarketSnapshot {
	if e.hasLastGood {
		return e.lastGood
	}
	return schema.MarketSnapshot{Timestamp: time.Now().UTC().UnixNano()}
}

func (e *Engine) aggregateRow(ms schema.MarketSnapshot, final bool) schema.SnapshotRow {
	row := schema.SnapshotRow{
		Timestamp: ms.Timestamp,
		Entity:    schema.EntityPortfolio,
		Final:     final,
	}
	for _, name := range e.order {
		r := e.runtimes[name]
		if r.status == schema.StrategyInitializing {
			continue
		}
		row.Cash += r.cash
		row.PositionValue += r.book.MarketValue(ms)
		row.RealizedPnL += r.realized
		row.UnrealizedPnL += r.book.UnrealizedPnL(ms)
	}
	return row
}

func (e *Engine) strategyRow(r *runtime, ms schema.MarketSnapshot, final bool) schema.SnapshotRow {
	return schema.SnapshotRow{
		Timestamp:     ms.Timestamp,
		Entity:        r.id,
		Cash:          r.cash,
		PositionValue: r.book.MarketValue(ms),
		RealizedPnL:   r.realized,
		UnrealizedPnL: r.book.UnrealizedPnL(ms),
		Final:         final,
	}
}

func (e *Engine) publish(ev bus.Event) {
	if e.events == nil {
		return
	}
	if err := e.events.TryPublish(ev); err != nil && e.metrics != nil {
		e.metrics.ObserveEventDrop()
	}
}
