package schema

import "testing"

func TestFormatScaled(t *testing.T) {
	cases := []struct {
		value int64
		scale Scale
		want  string
	}{
		{150050, 2, "1500.50"},
		{-150050, 2, "-1500.50"},
		{5, 2, "0.05"},
		{-5, 2, "-0.05"},
		{0, 2, "0.00"},
		{42, 0, "42"},
		{-42, 0, "-42"},
		{1, 4, "0.0001"},
	}
	for _, c := range cases {
		if got := FormatScaled(c.value, c.scale); got != c.want {
			t.Fatalf("FormatScaled(%d, %d) = %q, want %q", c.value, c.scale, got, c.want)
		}
	}
}

func TestParseScaled(t *testing.T) {
	cases := []struct {
		src   string
		scale Scale
		want  int64
	}{
		{"1500.50", 2, 150050},
		{"1500.5", 2, 150050},
		{"1500", 2, 150000},
		{"-1500.50", 2, -150050},
		{"0.05", 2, 5},
		{"0.059", 2, 5}, // extra digits truncate
		{"42", 0, 42},
		{".5", 2, 50},
	}
	for _, c := range cases {
		got, err := ParseScaled(c.src, c.scale)
		if err != nil {
			t.Fatalf("ParseScaled(%q, %d) error: %v", c.src, c.scale, err)
		}
		if got != c.want {
			t.Fatalf("ParseScaled(%q, %d) = %d, want %d", c.src, c.scale, got, c.want)
		}
	}
}

func TestParseScaledRejectsGarbage(t *testing.T) {
	for _, src := range []string{"", "-", ".", "1.2.3", "12a", "9223372036854775808"} {
		if _, err := ParseScaled(src, 2); err == nil {
			t.Fatalf("ParseScaled(%q) should fail", src)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, value := range []int64{0, 1, -1, 99, 100, -100, 150050, -987654321} {
		s := FormatScaled(value, 2)
		got, err := ParseScaled(s, 2)
		if err != nil {
			t.Fatalf("round trip %d: %v", value, err)
		}
		if got != value {
			t.Fatalf("round trip %d via %q = %d", value, s, got)
		}
	}
}

func TestNotionalOverflow(t *testing.T) {
	if _, overflow := Notional(Price(maxInt64), 2); !overflow {
		t.Fatal("expected overflow")
	}
	got, overflow := Notional(150000, -10)
	if overflow {
		t.Fatal("unexpected overflow")
	}
	if got != 1500000 {
		t.Fatalf("Notional = %d, want 1500000", got)
	}
}

func TestCashImpact(t *testing.T) {
	buy := Trade{Qty: 10, Price: 150000, Fees: 50}
	if got := buy.CashImpact(); got != -1500050 {
		t.Fatalf("buy impact = %d, want -1500050", got)
	}
	sell := Trade{Qty: -10, Price: 155000, Fees: 50}
	if got := sell.CashImpact(); got != 1549950 {
		t.Fatalf("sell impact = %d, want 1549950", got)
	}
}
