package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/schema"
	"main/internal/store"
	"main/internal/strategy"
	"main/pkg/exception"
)

// OnTick runs one full tick cycle against the snapshot: collect intents
// from active strategies, validate each one, commit accepted trades and
// write snapshot rows. A persistence failure aborts the tick with an
// error the caller must treat as fatal; a strategy fault suspends only
// that strategy.
func (e *Engine) OnTick(ctx context.Context, ms schema.MarketSnapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return exception.ErrEngineNotStarted
	}
	begin := time.Now()
	tickTime := time.Unix(0, ms.Timestamp)

	type proposal struct {
		r       *runtime
		intents []schema.TradeIntent
	}
	var proposals []proposal
	for _, name := range e.order {
		r := e.runtimes[name]
		if r.status != schema.StrategyActive {
			continue
		}
		should, err := callShould(r.strat, ms, r)
		if err != nil {
			e.suspend(r, ms.Timestamp, err)
			continue
		}
		if !should {
			continue
		}
		intents, err := callRebalance(r.strat, ms, r)
		if err != nil {
			e.suspend(r, ms.Timestamp, err)
			continue
		}
		r.lastRebalance = tickTime
		if len(intents) > 0 {
			proposals = append(proposals, proposal{r: r, intents: intents})
		}
	}

	// last cancellation point; once a commit begins the tick finishes
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w, err: %v", exception.ErrTickAborted, err)
	}

	for _, p := range proposals {
		for _, intent := range p.intents {
			t, reason := e.validate(p.r, intent, ms.Timestamp)
			if reason != "" {
				e.metrics.ObserveTradeRejected()
				logs.Warnf("strategy %s: reject %s qty=%d, %s", p.r.id, intent.Symbol, intent.Qty, reason)
				e.publish(bus.Event{
					Kind:       bus.EventTradeRejected,
					Timestamp:  ms.Timestamp,
					StrategyID: p.r.id,
					Symbol:     intent.Symbol,
					Reason:     reason,
				})
				continue
			}
			if err := e.commit(p.r, t); err != nil {
				return err
			}
		}
	}

	e.lastGood = ms
	e.hasLastGood = true
	if err := e.snapshotAll(ms, false); err != nil {
		return err
	}
	e.metrics.ObserveTick(time.Since(begin))
	return nil
}

// ReportDataUnavailable records a tick skipped because the provider
// returned no snapshot. Nothing is written; positions and cash stay at
// the last committed state.
func (e *Engine) ReportDataUnavailable(ts int64, err error) {
	e.metrics.ObserveTickSkipped()
	logs.Warnf("tick skipped, err: %+v", err)
	e.publish(bus.Event{
		Kind:      bus.EventTickSkipped,
		Timestamp: ts,
		Reason:    "data unavailable",
		Err:       err,
	})
}

// OnDayClose writes final snapshot rows for the day at the last good
// snapshot's prices. With no successful tick behind it, positions are
// valued at cost basis.
func (e *Engine) OnDayClose(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return exception.ErrEngineNotStarted
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w, err: %v", exception.ErrTickAborted, err)
	}

	ms := e.valuationSnapshot()
	ms.Timestamp = time.Now().UTC().UnixNano()
	return e.snapshotAll(ms, true)
}

// validate checks one intent against instrument reference data and the
// strategy's cash and positions. It returns the trade to commit, or a
// non-empty rejection reason.
func (e *Engine) validate(r *runtime, intent schema.TradeIntent, ts int64) (schema.Trade, string) {
	if intent.Qty == 0 {
		return schema.Trade{}, "zero quantity"
	}
	if intent.Price <= 0 {
		return schema.Trade{}, "non-positive price"
	}
	inst, ok := e.registry.Lookup(intent.Symbol)
	if !ok {
		return schema.Trade{}, exception.ErrInstrumentUnknown.Error()
	}
	abs := intent.Qty
	if abs < 0 {
		abs = -abs
	}
	if abs%inst.LotSize != 0 {
		return schema.Trade{}, fmt.Sprintf("quantity %d not a multiple of lot %d", intent.Qty, inst.LotSize)
	}
	fees := schema.Fee(int64(e.feePerLot) * int64(abs/inst.LotSize))

	if intent.Qty > 0 {
		notional, overflow := schema.Notional(intent.Price, intent.Qty)
		if overflow {
			return schema.Trade{}, "notional overflow"
		}
		cost := notional + schema.Cash(fees)
		if cost > r.cash {
			return schema.Trade{}, fmt.Sprintf("insufficient cash: need %d, have %d", cost, r.cash)
		}
	} else if !r.allowShort && r.book.Quantity(intent.Symbol)+intent.Qty < 0 {
		return schema.Trade{}, fmt.Sprintf("sell %d exceeds held %d", -intent.Qty, r.book.Quantity(intent.Symbol))
	}

	return schema.Trade{
		StrategyID: r.id,
		Symbol:     intent.Symbol,
		Qty:        intent.Qty,
		Price:      intent.Price,
		Fees:       fees,
		Timestamp:  ts,
		Note:       intent.Note,
	}, ""
}

// commit applies one accepted trade atomically: ledger first, then the
// durable store, then the in-memory book and cash. Any write failure is
// returned as a persistence error and must stop the run.
func (e *Engine) commit(r *runtime, t schema.Trade) error {
	t.RealizedPnL = r.book.RealizedFor(t)

	stored, err := e.ledger.Append(t)
	if err != nil {
		return fmt.Errorf("%w, err: %v", exception.ErrPersistence, err)
	}
	if err := e.store.AppendTrade(stored); err != nil {
		return fmt.Errorf("%w, err: %v", exception.ErrPersistence, err)
	}

	r.book.Apply(stored)
	r.cash += stored.CashImpact()
	r.realized += stored.RealizedPnL

	if pos, ok := r.book.Position(stored.Symbol); ok {
		if err := e.store.UpsertPosition(pos); err != nil {
			return fmt.Errorf("%w, err: %v", exception.ErrPersistence, err)
		}
	} else if err := e.store.DeletePosition(r.id, stored.Symbol); err != nil {
		return fmt.Errorf("%w, err: %v", exception.ErrPersistence, err)
	}

	e.metrics.ObserveTradeCommitted()
	e.publish(bus.Event{
		Kind:       bus.EventTradeCommitted,
		Timestamp:  stored.Timestamp,
		StrategyID: r.id,
		Symbol:     stored.Symbol,
	})
	return nil
}

// snapshotAll writes one row per activated strategy plus the aggregate
// portfolio row.
func (e *Engine) snapshotAll(ms schema.MarketSnapshot, final bool) error {
	for _, name := range e.order {
		r := e.runtimes[name]
		if r.status == schema.StrategyInitializing {
			continue
		}
		if err := e.store.InsertSnapshot(e.strategyRow(r, ms, final)); err != nil {
			return fmt.Errorf("%w, err: %v", exception.ErrPersistence, err)
		}
		e.metrics.ObserveSnapshotRow()
	}
	if err := e.store.InsertSnapshot(e.aggregateRow(ms, final)); err != nil {
		return fmt.Errorf("%w, err: %v", exception.ErrPersistence, err)
	}
	e.metrics.ObserveSnapshotRow()
	e.publish(bus.Event{Kind: bus.EventSnapshotWritten, Timestamp: ms.Timestamp})
	return nil
}

// suspend takes one strategy out of the tick cycle after a fault. The
// rest of the portfolio keeps trading.
func (e *Engine) suspend(r *runtime, ts int64, cause error) {
	r.status = schema.StrategySuspended
	e.metrics.ObserveStrategyFault()
	logs.Errorf("strategy %s suspended, err: %+v", r.id, cause)
	if err := e.store.UpsertStrategy(store.StrategyMeta{
		Name:       r.id,
		Type:       r.stratType,
		Allocation: r.allocated,
		Status:     r.status.String(),
	}); err != nil {
		logs.Errorf("persist strategy status, err: %+v", err)
	}
	e.publish(bus.Event{
		Kind:       bus.EventStrategySuspended,
		Timestamp:  ts,
		StrategyID: r.id,
		Reason:     cause.Error(),
		Err:        cause,
	})
}

func callInitialize(s strategy.Strategy, ms schema.MarketSnapshot) (intents []schema.TradeIntent, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic in InitializePositions: %v", exception.ErrStrategyFault, rec)
		}
	}()
	intents, err = s.InitializePositions(ms)
	if err != nil {
		err = fmt.Errorf("%w: %v", exception.ErrStrategyFault, err)
	}
	return intents, err
}

func callShould(s strategy.Strategy, ms schema.MarketSnapshot, view strategy.BookView) (should bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic in ShouldRebalance: %v", exception.ErrStrategyFault, rec)
		}
	}()
	return s.ShouldRebalance(ms, view), nil
}

func callRebalance(s strategy.Strategy, ms schema.MarketSnapshot, view strategy.BookView) (intents []schema.TradeIntent, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic in Rebalance: %v", exception.ErrStrategyFault, rec)
		}
	}()
	intents, err = s.Rebalance(ms, view)
	if err != nil {
		err = fmt.Errorf("%w: %v", exception.ErrStrategyFault, err)
	}
	return intents, err
}
