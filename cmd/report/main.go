package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"main/internal/ops"
	"main/internal/schema"
	"main/internal/store"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	days := flag.Int("days", 1, "Number of days to report")
	finalOnly := flag.Bool("final-only", false, "Only show day-close rows")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if loaded.Store.Kind != "postgres" {
		log.Fatalf("report needs a postgres store, config has %q", loaded.Store.Kind)
	}

	pg, err := store.NewPG(loaded.Store.Option)
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer func() {
		_ = pg.Close()
	}()

	metas, err := pg.LoadStrategyMetadata()
	if err != nil {
		log.Fatalf("load strategies failed: %v", err)
	}
	if err := renderStrategies(os.Stdout, metas, loaded.Scale); err != nil {
		log.Fatalf("render failed: %v", err)
	}

	since := time.Now().AddDate(0, 0, -*days).UnixNano()
	rows, err := pg.SnapshotsSince(since)
	if err != nil {
		log.Fatalf("load snapshots failed: %v", err)
	}

	if err := render(os.Stdout, rows, loaded.Scale, *finalOnly); err != nil {
		log.Fatalf("render failed: %v", err)
	}
}

func renderStrategies(out *os.File, metas []store.StrategyMeta, scale schema.Scale) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tTYPE\tALLOCATION\tSTATUS")
	for _, meta := range metas {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			meta.Name,
			meta.Type,
			schema.FormatScaled(int64(meta.Allocation), scale),
			meta.Status,
		)
	}
	fmt.Fprintln(w)
	return w.Flush()
}

func render(out *os.File, rows []schema.SnapshotRow, scale schema.Scale, finalOnly bool) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tENTITY\tCASH\tPOSITIONS\tEQUITY\tREALIZED\tUNREALIZED\tFINAL")
	for _, row := range rows {
		if finalOnly && !row.Final {
			continue
		}
		final := ""
		if row.Final {
			final = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			time.Unix(0, row.Timestamp).UTC().Format("2006-01-02 15:04:05"),
			row.Entity,
			schema.FormatScaled(int64(row.Cash), scale),
			schema.FormatScaled(int64(row.PositionValue), scale),
			schema.FormatScaled(int64(row.Equity()), scale),
			schema.FormatScaled(int64(row.RealizedPnL), scale),
			schema.FormatScaled(int64(row.UnrealizedPnL), scale),
			final,
		)
	}
	return w.Flush()
}
