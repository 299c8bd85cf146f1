package schema

import (
	"fmt"
	"sort"

	"main/pkg/exception"
)

// AssetClass describes what kind of instrument is traded.
type AssetClass uint16

const (
	AssetClassUnknown AssetClass = iota
	AssetClassEquity
	AssetClassIndexOption
	AssetClassFuture
)

// ParseAssetClass maps a config string to an asset class.
func ParseAssetClass(s string) (AssetClass, error) {
	switch s {
	case "equity":
		return AssetClassEquity, nil
	case "index_option":
		return AssetClassIndexOption, nil
	case "future":
		return AssetClassFuture, nil
	default:
		return AssetClassUnknown, fmt.Errorf("unknown asset class: %q", s)
	}
}

func (c AssetClass) String() string {
	switch c {
	case AssetClassEquity:
		return "equity"
	case AssetClassIndexOption:
		return "index_option"
	case AssetClassFuture:
		return "future"
	default:
		return "unknown"
	}
}

// Instrument is immutable reference data for a tradable symbol.
type Instrument struct {
	Symbol  string
	Class   AssetClass
	LotSize Quantity
}

// Registry stores instrument reference data keyed by symbol.
type Registry struct {
	bySymbol map[string]Instrument
}

// NewRegistry creates an empty instrument registry.
func NewRegistry() *Registry {
	return &Registry{bySymbol: make(map[string]Instrument)}
}

// Add registers a new instrument. Duplicate symbols are an error.
func (r *Registry) Add(inst Instrument) error {
	if inst.Symbol == "" {
		return exception.ErrInstrumentNoSymbol
	}
	if inst.LotSize <= 0 {
		return fmt.Errorf("%w: %s lot=%d", exception.ErrInstrumentLotSize, inst.Symbol, inst.LotSize)
	}
	if _, ok := r.bySymbol[inst.Symbol]; ok {
		return fmt.Errorf("%w: %s", exception.ErrInstrumentExists, inst.Symbol)
	}
	r.bySymbol[inst.Symbol] = inst
	return nil
}

// Lookup returns the instrument for a symbol.
func (r *Registry) Lookup(symbol string) (Instrument, bool) {
	inst, ok := r.bySymbol[symbol]
	return inst, ok
}

// Symbols returns all registered symbols in sorted order.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.bySymbol))
	for symbol := range r.bySymbol {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered instruments.
func (r *Registry) Len() int {
	return len(r.bySymbol)
}
