package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/bus"
	"main/internal/engine"
	"main/internal/ledger"
	"main/internal/marketdata"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/schema"
	"main/internal/store"
	"main/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	journalDir := flag.String("journal-dir", "", "Trade journal directory (overrides config)")
	profile := flag.Bool("profile", false, "Enable pyroscope profiling")
	profileAddr := flag.String("profile-addr", "http://localhost:4040", "Pyroscope server address")
	flag.Parse()

	if *profile {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "papertrader",
			ServerAddress:   *profileAddr,
			Tags: map[string]string{
				"env": "local",
			},
			Logger: emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *journalDir != "" {
		loaded.JournalDir = *journalDir
	}

	if err := run(loaded); err != nil {
		log.Fatalf("papertrader failed: %v", err)
	}
}

func run(loaded ops.Loaded) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := buildStore(loaded)
	if err != nil {
		return err
	}
	defer closeStore()

	journal, err := ledger.NewJournal(ledger.DefaultJournalConfig(loaded.JournalDir))
	if err != nil {
		return err
	}
	if err := journal.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logs.Errorf("journal close, err: %+v", err)
		}
	}()

	metrics := obs.NewMetrics()
	events := bus.NewQueue(loaded.EventQueueSize)
	defer events.Close()
	go events.Run(ctx, logEvent)

	eng, err := engine.New(engine.Config{
		Registry:  loaded.Registry,
		Ledger:    ledger.New(journal),
		Store:     st,
		Events:    events,
		Metrics:   metrics,
		FeePerLot: loaded.FeePerLot,
	})
	if err != nil {
		return err
	}
	for _, cfg := range loaded.Strategies {
		s, err := strategy.New(cfg, loaded.Registry)
		if err != nil {
			return err
		}
		opt := engine.Option{AllowShort: cfg.AllowShort}
		if err := eng.AddStrategy(s, cfg.Type, cfg.Allocation, opt); err != nil {
			return err
		}
	}

	provider, err := buildProvider(loaded)
	if err != nil {
		return err
	}

	// first successful snapshot opens the books
	first, err := fetchUntil(ctx, provider, loaded.TickInterval)
	if err != nil {
		return err
	}
	if err := eng.Start(first); err != nil {
		return err
	}
	logs.Infof("engine started with %d strategies", len(loaded.Strategies))

	ticker := time.NewTicker(loaded.TickInterval)
	defer ticker.Stop()
	dayClose := time.NewTimer(time.Until(loaded.DayClose.Next(time.Now())))
	defer dayClose.Stop()

	for {
		select {
		case <-sys.Shutdown():
			logs.Info("shutting down")
			return eng.OnDayClose(context.WithoutCancel(ctx))
		case <-ctx.Done():
			return eng.OnDayClose(context.WithoutCancel(ctx))
		case <-dayClose.C:
			if err := eng.OnDayClose(ctx); err != nil {
				return err
			}
			dayClose.Reset(time.Until(loaded.DayClose.Next(time.Now())))
		case <-ticker.C:
			ms, err := provider.FetchSnapshot(ctx)
			if err != nil {
				eng.ReportDataUnavailable(time.Now().UTC().UnixNano(), err)
				continue
			}
			if err := eng.OnTick(ctx, ms); err != nil {
				return err
			}
			logs.Infof("tick done, metrics: %+v", metrics.Snapshot())
		}
	}
}

func buildStore(loaded ops.Loaded) (store.Store, func(), error) {
	if loaded.Store.Kind == "postgres" {
		pg, err := store.NewPG(loaded.Store.Option)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() {
			if err := pg.Close(); err != nil {
				logs.Errorf("store close, err: %+v", err)
			}
		}, nil
	}
	return store.NewMemory(), func() {}, nil
}

func buildProvider(loaded ops.Loaded) (marketdata.Provider, error) {
	if loaded.Provider.Kind == "kite" {
		return marketdata.NewKite(marketdata.KiteConfig{
			BaseURL:     loaded.Provider.BaseURL,
			APIKey:      loaded.Provider.APIKey,
			AccessToken: loaded.Provider.AccessToken,
			Timeout:     loaded.Provider.Timeout,
			Instruments: loaded.Registry.Symbols(),
			VolSymbol:   loaded.Provider.VolSymbol,
			Scale:       loaded.Scale,
		}), nil
	}
	// an empty static provider would never yield a snapshot
	if len(loaded.Provider.Snapshots) == 0 {
		return nil, fmt.Errorf("static provider needs provider.snapshots in config")
	}
	return marketdata.NewStatic(loaded.Provider.Snapshots...), nil
}

// fetchUntil retries the provider on the tick cadence until it yields a
// snapshot or shutdown is requested.
func fetchUntil(ctx context.Context, provider marketdata.Provider, interval time.Duration) (schema.MarketSnapshot, error) {
	for {
		ms, err := provider.FetchSnapshot(ctx)
		if err == nil {
			return ms, nil
		}
		logs.Warnf("waiting for market data, err: %+v", err)
		select {
		case <-sys.Shutdown():
			return schema.MarketSnapshot{}, err
		case <-ctx.Done():
			return schema.MarketSnapshot{}, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func logEvent(e bus.Event) {
	switch e.Kind {
	case bus.EventTradeRejected, bus.EventTickSkipped, bus.EventStrategySuspended, bus.EventStrategyExcluded:
		logs.Warnf("event %s strategy=%s symbol=%s reason=%s", e.Kind, e.StrategyID, e.Symbol, e.Reason)
	default:
		logs.Infof("event %s strategy=%s symbol=%s", e.Kind, e.StrategyID, e.Symbol)
	}
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
