package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"main/internal/schema"
	"main/internal/strategy"
	"main/pkg/conn"
)

// FileConfig mirrors the JSON config layout. Money amounts are decimal
// strings parsed at the configured scale; durations use Go duration
// syntax.
type FileConfig struct {
	Scale          schema.Scale       `json:"scale"`
	FeePerLot      string             `json:"feePerLot"`
	TickInterval   string             `json:"tickInterval"`
	DayCloseTime   string             `json:"dayCloseTime"` // "HH:MM", local time
	JournalDir     string             `json:"journalDir"`
	EventQueueSize int                `json:"eventQueueSize"`
	Instruments    []InstrumentConfig `json:"instruments"`
	Provider       ProviderConfig     `json:"provider"`
	Store          StoreConfig        `json:"store"`
	Strategies     []StrategyConfig   `json:"strategies"`
}

// InstrumentConfig describes one tradable instrument.
type InstrumentConfig struct {
	Symbol  string          `json:"symbol"`
	Class   string          `json:"class"` // equity | index_option | future
	LotSize schema.Quantity `json:"lotSize"`
}

// ProviderConfig selects the market data source.
type ProviderConfig struct {
	Kind        string `json:"kind"` // kite | static
	BaseURL     string `json:"baseUrl"`
	APIKey      string `json:"apiKey"`
	AccessToken string `json:"accessToken"`
	Timeout     string `json:"timeout"`
	VolSymbol   string `json:"volSymbol"`

	// Snapshots seeds the static provider for offline runs.
	Snapshots []SnapshotConfig `json:"snapshots"`
}

// SnapshotConfig is one seeded market observation for the static
// provider. Prices are decimal strings keyed by symbol.
type SnapshotConfig struct {
	Prices   map[string]string `json:"prices"`
	VolIndex string            `json:"volIndex"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Kind     string `json:"kind"` // postgres | memory
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
}

// StrategyConfig describes one strategy entry.
type StrategyConfig struct {
	Name       string `json:"name"`
	Type       string `json:"type"` // volatility | momentum | demo
	Allocation string `json:"allocation"`
	AllowShort bool   `json:"allowShort"`

	Legs       []LegConfig `json:"legs"`
	Protection []LegConfig `json:"protection"`
	VolBand    string      `json:"volBand"`

	Symbols  []string `json:"symbols"`
	Interval string   `json:"interval"`

	Symbol string          `json:"symbol"`
	Qty    schema.Quantity `json:"qty"`
}

// LegConfig describes one leg of a multi-leg strategy.
type LegConfig struct {
	Symbol string          `json:"symbol"`
	Qty    schema.Quantity `json:"qty"`
}

// DayClock is a wall-clock time of day.
type DayClock struct {
	Hour   int
	Minute int
}

// Next returns the next occurrence of the clock time after now.
func (d DayClock) Next(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), d.Hour, d.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// ProviderSpec is the resolved market data source selection.
type ProviderSpec struct {
	Kind        string
	BaseURL     string
	APIKey      string
	AccessToken string
	Timeout     time.Duration
	VolSymbol   string
	Snapshots   []schema.MarketSnapshot
}

// StoreSpec is the resolved persistence selection.
type StoreSpec struct {
	Kind   string
	Option conn.Option
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Scale          schema.Scale
	FeePerLot      schema.Fee
	TickInterval   time.Duration
	DayClose       DayClock
	JournalDir     string
	EventQueueSize int
	Registry       *schema.Registry
	Provider       ProviderSpec
	Store          StoreSpec
	Strategies     []strategy.Config
}

// Load reads a JSON config file, applies defaults and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Loaded{}, err
	}
	return cfg.resolve()
}

func (c *FileConfig) withDefaults() {
	if c.Scale <= 0 {
		c.Scale = schema.DefaultScale
	}
	if c.FeePerLot == "" {
		c.FeePerLot = "0"
	}
	if c.TickInterval == "" {
		c.TickInterval = "30s"
	}
	if c.DayCloseTime == "" {
		c.DayCloseTime = "15:30"
	}
	if c.JournalDir == "" {
		c.JournalDir = "data/journal"
	}
	if c.EventQueueSize <= 0 {
		c.EventQueueSize = 256
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = "static"
	}
	if c.Store.Kind == "" {
		c.Store.Kind = "memory"
	}
}

// Validate checks structural constraints before resolution.
func (c *FileConfig) Validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("no instruments configured")
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("no strategies configured")
	}
	switch c.Provider.Kind {
	case "kite", "static":
	default:
		return fmt.Errorf("unknown provider kind: %q", c.Provider.Kind)
	}
	switch c.Store.Kind {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown store kind: %q", c.Store.Kind)
	}
	if c.Provider.Kind == "kite" {
		if c.Provider.APIKey == "" || c.Provider.AccessToken == "" {
			return fmt.Errorf("kite provider needs apiKey and accessToken")
		}
		if c.Provider.VolSymbol == "" {
			return fmt.Errorf("kite provider needs volSymbol")
		}
	}
	return nil
}

func (c *FileConfig) resolve() (Loaded, error) {
	out := Loaded{
		Scale:          c.Scale,
		JournalDir:     c.JournalDir,
		EventQueueSize: c.EventQueueSize,
	}

	fee, err := parseMoney(c.FeePerLot, c.Scale)
	if err != nil {
		return Loaded{}, fmt.Errorf("invalid feePerLot: %w", err)
	}
	if fee < 0 {
		return Loaded{}, fmt.Errorf("feePerLot must be >= 0")
	}
	out.FeePerLot = schema.Fee(fee)

	out.TickInterval, err = time.ParseDuration(c.TickInterval)
	if err != nil {
		return Loaded{}, fmt.Errorf("invalid tickInterval: %w", err)
	}
	if out.TickInterval <= 0 {
		return Loaded{}, fmt.Errorf("tickInterval must be > 0")
	}

	out.DayClose, err = parseDayClock(c.DayCloseTime)
	if err != nil {
		return Loaded{}, err
	}

	out.Registry = schema.NewRegistry()
	for _, inst := range c.Instruments {
		class, err := schema.ParseAssetClass(inst.Class)
		if err != nil {
			return Loaded{}, fmt.Errorf("instrument %s: %w", inst.Symbol, err)
		}
		if err := out.Registry.Add(schema.Instrument{
			Symbol:  inst.Symbol,
			Class:   class,
			LotSize: inst.LotSize,
		}); err != nil {
			return Loaded{}, err
		}
	}

	out.Provider, err = c.resolveProvider()
	if err != nil {
		return Loaded{}, err
	}

	out.Store = StoreSpec{
		Kind: c.Store.Kind,
		Option: conn.Option{
			Host:     c.Store.Host,
			Port:     c.Store.Port,
			User:     c.Store.User,
			Password: c.Store.Password,
			Database: c.Store.Database,
			SSLMode:  c.Store.SSLMode,
		},
	}

	for _, sc := range c.Strategies {
		resolved, err := c.resolveStrategy(sc)
		if err != nil {
			return Loaded{}, fmt.Errorf("strategy %s: %w", sc.Name, err)
		}
		out.Strategies = append(out.Strategies, resolved)
	}
	return out, nil
}

func (c *FileConfig) resolveProvider() (ProviderSpec, error) {
	spec := ProviderSpec{
		Kind:        c.Provider.Kind,
		BaseURL:     c.Provider.BaseURL,
		APIKey:      c.Provider.APIKey,
		AccessToken: c.Provider.AccessToken,
		VolSymbol:   c.Provider.VolSymbol,
	}
	if c.Provider.Timeout != "" {
		timeout, err := time.ParseDuration(c.Provider.Timeout)
		if err != nil {
			return ProviderSpec{}, fmt.Errorf("invalid provider timeout: %w", err)
		}
		spec.Timeout = timeout
	}
	for i, sc := range c.Provider.Snapshots {
		ms := schema.MarketSnapshot{Prices: make(map[string]schema.Price, len(sc.Prices))}
		for symbol, raw := range sc.Prices {
			price, err := parseMoney(raw, c.Scale)
			if err != nil {
				return ProviderSpec{}, fmt.Errorf("snapshot %d: invalid price for %s: %w", i, symbol, err)
			}
			ms.Prices[symbol] = schema.Price(price)
		}
		if sc.VolIndex != "" {
			vol, err := parseMoney(sc.VolIndex, c.Scale)
			if err != nil {
				return ProviderSpec{}, fmt.Errorf("snapshot %d: invalid volIndex: %w", i, err)
			}
			ms.VolIndex = schema.Price(vol)
		}
		spec.Snapshots = append(spec.Snapshots, ms)
	}
	return spec, nil
}

func (c *FileConfig) resolveStrategy(sc StrategyConfig) (strategy.Config, error) {
	alloc, err := parseMoney(sc.Allocation, c.Scale)
	if err != nil {
		return strategy.Config{}, fmt.Errorf("invalid allocation: %w", err)
	}
	cfg := strategy.Config{
		Name:       sc.Name,
		Type:       sc.Type,
		Allocation: schema.Cash(alloc),
		AllowShort: sc.AllowShort,
		Symbols:    sc.Symbols,
		Symbol:     sc.Symbol,
		Qty:        sc.Qty,
	}
	for _, leg := range sc.Legs {
		cfg.Legs = append(cfg.Legs, strategy.Leg{Symbol: leg.Symbol, Qty: leg.Qty})
	}
	for _, leg := range sc.Protection {
		cfg.Protection = append(cfg.Protection, strategy.Leg{Symbol: leg.Symbol, Qty: leg.Qty})
	}
	if sc.VolBand != "" {
		band, err := parseMoney(sc.VolBand, c.Scale)
		if err != nil {
			return strategy.Config{}, fmt.Errorf("invalid volBand: %w", err)
		}
		cfg.VolBand = schema.Price(band)
	}
	if sc.Interval != "" {
		interval, err := time.ParseDuration(sc.Interval)
		if err != nil {
			return strategy.Config{}, fmt.Errorf("invalid interval: %w", err)
		}
		cfg.Interval = interval
	}
	return cfg, nil
}

func parseMoney(src string, scale schema.Scale) (int64, error) {
	if src == "" {
		return 0, nil
	}
	return schema.ParseScaled(src, scale)
}

func parseDayClock(src string) (DayClock, error) {
	t, err := time.Parse("15:04", src)
	if err != nil {
		return DayClock{}, fmt.Errorf("invalid dayCloseTime %q: %w", src, err)
	}
	return DayClock{Hour: t.Hour(), Minute: t.Minute()}, nil
}
