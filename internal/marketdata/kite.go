package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/schema"
	"main/pkg/exception"
)

const (
	defaultKiteBaseURL = "https://api.kite.trade"
	defaultKiteTimeout = 10 * time.Second
	kiteVersionHeader  = "3"
)

// KiteConfig defines the read-only Kite quote connection.
type KiteConfig struct {
	BaseURL     string
	APIKey      string
	AccessToken string
	Timeout     time.Duration
	// Instruments lists the exchange-qualified symbols to quote.
	Instruments []string
	// VolSymbol is the volatility index entry, e.g. "NSE:INDIA VIX".
	VolSymbol string
	Scale     schema.Scale
}

func (c KiteConfig) withDefaults() KiteConfig {
	if c.BaseURL == "" {
		c.BaseURL = defaultKiteBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultKiteTimeout
	}
	if c.Scale == 0 {
		c.Scale = schema.DefaultScale
	}
	return c
}

// Kite pulls live quotes from the Kite REST API in read-only mode.
type Kite struct {
	cfg KiteConfig
	cli *http.Client
}

// NewKite creates a Kite quote provider.
func NewKite(cfg KiteConfig) *Kite {
	cfg = cfg.withDefaults()
	return &Kite{
		cfg: cfg,
		cli: &http.Client{Timeout: cfg.Timeout},
	}
}

type kiteQuote struct {
	LastPrice decimal.Decimal `json:"last_price"`
}

type kiteQuoteResponse struct {
	Status string               `json:"status"`
	Data   map[string]kiteQuote `json:"data"`
}

// FetchSnapshot pulls one quote batch and converts it into a market
// snapshot. Any transport or payload failure surfaces as
// exception.ErrDataUnavailable.
func (k *Kite) FetchSnapshot(ctx context.Context) (schema.MarketSnapshot, error) {
	resp, err := k.fetchQuotes(ctx)
	if err != nil {
		logs.Errorf("fetch quotes, err: %+v", err)
		return schema.MarketSnapshot{}, fmt.Errorf("%w, err: %v", exception.ErrDataUnavailable, err)
	}

	ms := schema.MarketSnapshot{
		Timestamp: time.Now().UTC().UnixNano(),
		Prices:    make(map[string]schema.Price, len(k.cfg.Instruments)),
	}

	for _, symbol := range k.cfg.Instruments {
		quote, ok := resp.Data[symbol]
		if !ok {
			return schema.MarketSnapshot{}, fmt.Errorf("%w: %s, err: %v",
				exception.ErrDataUnavailable, symbol, exception.ErrQuoteMissing)
		}
		price, err := schema.ParseScaled(quote.LastPrice.String(), k.cfg.Scale)
		if err != nil {
			return schema.MarketSnapshot{}, fmt.Errorf("%w: %s: %w, err: %v",
				exception.ErrDataUnavailable, symbol, exception.ErrQuoteInvalidPayload, err)
		}
		ms.Prices[symbol] = schema.Price(price)
	}

	if k.cfg.VolSymbol != "" {
		quote, ok := resp.Data[k.cfg.VolSymbol]
		if !ok {
			return schema.MarketSnapshot{}, fmt.Errorf("%w: %s, err: %v",
				exception.ErrDataUnavailable, k.cfg.VolSymbol, exception.ErrQuoteMissing)
		}
		vol, err := schema.ParseScaled(quote.LastPrice.String(), k.cfg.Scale)
		if err != nil {
			return schema.MarketSnapshot{}, fmt.Errorf("%w: %s: %w, err: %v",
				exception.ErrDataUnavailable, k.cfg.VolSymbol, exception.ErrQuoteInvalidPayload, err)
		}
		ms.VolIndex = schema.Price(vol)
	}

	return ms, nil
}

func (k *Kite) fetchQuotes(ctx context.Context) (kiteQuoteResponse, error) {
	query := url.Values{}
	for _, symbol := range k.cfg.Instruments {
		query.Add("i", symbol)
	}
	if k.cfg.VolSymbol != "" {
		query.Add("i", k.cfg.VolSymbol)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		k.cfg.BaseURL+"/quote?"+query.Encode(), nil)
	if err != nil {
		return kiteQuoteResponse{}, errors.Wrap(err, "build quote request")
	}
	req.Header.Set("X-Kite-Version", kiteVersionHeader)
	req.Header.Set("Authorization", "token "+k.cfg.APIKey+":"+k.cfg.AccessToken)

	resp, err := k.cli.Do(req)
	if err != nil {
		return kiteQuoteResponse{}, errors.Wrap(err, "request quotes")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return kiteQuoteResponse{}, errors.Errorf("quote response status %d", resp.StatusCode)
	}

	var payload kiteQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return kiteQuoteResponse{}, errors.Wrap(err, "decode quote payload")
	}
	if payload.Status != "" && payload.Status != "success" {
		return kiteQuoteResponse{}, errors.Errorf("quote response status %q", payload.Status)
	}
	return payload, nil
}
