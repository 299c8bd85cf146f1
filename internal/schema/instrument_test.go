package schema

import (
	"errors"
	"testing"

	"main/pkg/exception"
)

func TestRegistryAddAndLookup(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Add(Instrument{Symbol: "ACME", Class: AssetClassEquity, LotSize: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	inst, ok := reg.Lookup("ACME")
	if !ok {
		t.Fatal("lookup failed")
	}
	if inst.LotSize != 1 || inst.Class != AssetClassEquity {
		t.Fatalf("unexpected instrument: %+v", inst)
	}
	if _, ok := reg.Lookup("NOPE"); ok {
		t.Fatal("lookup of unknown symbol should fail")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Add(Instrument{Symbol: "ACME", Class: AssetClassEquity, LotSize: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := reg.Add(Instrument{Symbol: "ACME", Class: AssetClassEquity, LotSize: 1})
	if !errors.Is(err, exception.ErrInstrumentExists) {
		t.Fatalf("want ErrInstrumentExists, got %v", err)
	}
}

func TestRegistryRejectsBadInstruments(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Add(Instrument{Class: AssetClassEquity, LotSize: 1}); !errors.Is(err, exception.ErrInstrumentNoSymbol) {
		t.Fatalf("want ErrInstrumentNoSymbol, got %v", err)
	}
	if err := reg.Add(Instrument{Symbol: "X", Class: AssetClassEquity, LotSize: 0}); !errors.Is(err, exception.ErrInstrumentLotSize) {
		t.Fatalf("want ErrInstrumentLotSize, got %v", err)
	}
}

func TestRegistrySymbolsSorted(t *testing.T) {
	reg := NewRegistry()
	for _, symbol := range []string{"ZETA", "ACME", "MID"} {
		if err := reg.Add(Instrument{Symbol: symbol, Class: AssetClassEquity, LotSize: 1}); err != nil {
			t.Fatalf("add %s: %v", symbol, err)
		}
	}
	symbols := reg.Symbols()
	want := []string{"ACME", "MID", "ZETA"}
	for i, symbol := range want {
		if symbols[i] != symbol {
			t.Fatalf("symbols = %v, want %v", symbols, want)
		}
	}
}

func TestParseAssetClass(t *testing.T) {
	for _, c := range []struct {
		src  string
		want AssetClass
	}{
		{"equity", AssetClassEquity},
		{"index_option", AssetClassIndexOption},
		{"future", AssetClassFuture},
	} {
		got, err := ParseAssetClass(c.src)
		if err != nil {
			t.Fatalf("parse %q: %v", c.src, err)
		}
		if got != c.want {
			t.Fatalf("parse %q = %v, want %v", c.src, got, c.want)
		}
		if got.String() != c.src {
			t.Fatalf("round trip %q = %q", c.src, got.String())
		}
	}
	if _, err := ParseAssetClass("bond"); err == nil {
		t.Fatal("parse of unknown class should fail")
	}
}
