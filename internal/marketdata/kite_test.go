package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
	"main/pkg/exception"
)

func kiteServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "3", r.Header.Get("X-Kite-Version"))
		assert.Equal(t, "token key:secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
}

func TestKiteFetchSnapshot(t *testing.T) {
	srv := kiteServer(t, `{
		"status": "success",
		"data": {
			"NSE:ACME": {"last_price": 1500.5},
			"NSE:INDIA VIX": {"last_price": 14.25}
		}
	}`)
	defer srv.Close()

	k := NewKite(KiteConfig{
		BaseURL:     srv.URL,
		APIKey:      "key",
		AccessToken: "secret",
		Instruments: []string{"NSE:ACME"},
		VolSymbol:   "NSE:INDIA VIX",
		Scale:       2,
	})

	ms, err := k.FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schema.Price(150050), ms.Prices["NSE:ACME"])
	assert.Equal(t, schema.Price(1425), ms.VolIndex)
	assert.NotZero(t, ms.Timestamp)
}

func TestKiteMissingQuoteIsDataUnavailable(t *testing.T) {
	srv := kiteServer(t, `{"status": "success", "data": {}}`)
	defer srv.Close()

	k := NewKite(KiteConfig{
		BaseURL:     srv.URL,
		APIKey:      "key",
		AccessToken: "secret",
		Instruments: []string{"NSE:ACME"},
	})

	_, err := k.FetchSnapshot(context.Background())
	assert.ErrorIs(t, err, exception.ErrDataUnavailable)
}

func TestKiteHTTPErrorIsDataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	k := NewKite(KiteConfig{
		BaseURL:     srv.URL,
		APIKey:      "key",
		AccessToken: "secret",
		Instruments: []string{"NSE:ACME"},
	})

	_, err := k.FetchSnapshot(context.Background())
	assert.ErrorIs(t, err, exception.ErrDataUnavailable)
}

func TestKiteUnscalablePriceIsInvalidPayload(t *testing.T) {
	// too large to represent at scale 2
	srv := kiteServer(t, `{
		"status": "success",
		"data": {"NSE:ACME": {"last_price": 99999999999999999999}}
	}`)
	defer srv.Close()

	k := NewKite(KiteConfig{
		BaseURL:     srv.URL,
		APIKey:      "key",
		AccessToken: "secret",
		Instruments: []string{"NSE:ACME"},
		Scale:       2,
	})

	_, err := k.FetchSnapshot(context.Background())
	assert.ErrorIs(t, err, exception.ErrDataUnavailable)
	assert.ErrorIs(t, err, exception.ErrQuoteInvalidPayload)
}

func TestStaticRepeatsLastSnapshot(t *testing.T) {
	first := schema.MarketSnapshot{Timestamp: 1}
	second := schema.MarketSnapshot{Timestamp: 2}
	p := NewStatic(first, second)

	for _, want := range []int64{1, 2, 2, 2} {
		ms, err := p.FetchSnapshot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, ms.Timestamp)
	}
}

func TestStaticStampsSeededSnapshots(t *testing.T) {
	p := NewStatic(schema.MarketSnapshot{
		Prices: map[string]schema.Price{"ACME": 150000},
	})

	ms, err := p.FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, ms.Timestamp)
	assert.Equal(t, schema.Price(150000), ms.Prices["ACME"])
}

func TestStaticEmptyIsDataUnavailable(t *testing.T) {
	p := NewStatic()
	_, err := p.FetchSnapshot(context.Background())
	assert.ErrorIs(t, err, exception.ErrDataUnavailable)
}
