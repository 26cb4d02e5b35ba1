// Package okx implements the OKX spot market-data adapter.
package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/paperhands/internal/market"
	"github.com/sawpanic/paperhands/internal/netutil"
	"github.com/sawpanic/paperhands/internal/netutil/ratelimit"
)

// Adapter speaks the OKX public REST API.
type Adapter struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *ratelimit.Limiter
}

// NewAdapter creates an OKX adapter. baseURL defaults to the public API.
func NewAdapter(baseURL string, limiter *ratelimit.Limiter) *Adapter {
	if baseURL == "" {
		baseURL = "https://www.okx.com"
	}
	return &Adapter{
		name:    "okx",
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
	}
}

// Name returns the normalized venue id.
func (a *Adapter) Name() string { return a.name }

func normalizeSymbol(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", "-"))
}

type envelope struct {
	Code string            `json:"code"`
	Msg  string            `json:"msg"`
	Data []json.RawMessage `json:"data"`
}

func (a *Adapter) call(ctx context.Context, path string) ([]json.RawMessage, error) {
	body, err := netutil.Get(ctx, a.http, a.limiter, a.name, a.baseURL+path)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("okx: malformed response: %w", err)
	}
	if env.Code != "0" {
		return nil, fmt.Errorf("okx API error %s: %s", env.Code, env.Msg)
	}
	return env.Data, nil
}

// Symbols returns the live spot instrument list.
func (a *Adapter) Symbols(ctx context.Context) ([]string, error) {
	data, err := a.call(ctx, "/api/v5/public/instruments?instType=SPOT")
	if err != nil {
		return nil, err
	}
	var symbols []string
	for _, raw := range data {
		var inst struct {
			InstID string `json:"instId"`
		}
		if err := json.Unmarshal(raw, &inst); err != nil || inst.InstID == "" {
			continue
		}
		symbols = append(symbols, strings.ReplaceAll(inst.InstID, "-", "/"))
	}
	return symbols, nil
}

// FetchOHLCV returns daily candles. OKX pages newest-first with a before
// cursor; the batch is reversed into ascending order.
func (a *Adapter) FetchOHLCV(ctx context.Context, pair string, since int64, limit int) ([]market.Candle, error) {
	path := fmt.Sprintf("/api/v5/market/history-candles?instId=%s&bar=1Dutc", normalizeSymbol(pair))
	if since > 0 {
		path += fmt.Sprintf("&before=%d", since-1)
	}
	if limit > 0 {
		if limit > 100 {
			limit = 100 // endpoint cap
		}
		path += fmt.Sprintf("&limit=%d", limit)
	}
	data, err := a.call(ctx, path)
	if err != nil {
		return nil, err
	}
	candles := make([]market.Candle, 0, len(data))
	for _, raw := range data {
		var row []string
		if err := json.Unmarshal(raw, &row); err != nil || len(row) < 6 {
			continue
		}
		candles = append(candles, market.Candle{
			Timestamp: parseInt(row[0]),
			Open:      parseFloat(row[1]),
			High:      parseFloat(row[2]),
			Low:       parseFloat(row[3]),
			Close:     parseFloat(row[4]),
			Volume:    parseFloat(row[5]),
		})
	}
	return market.SortDedup(candles), nil
}

// FetchTrades returns recent trades; OKX's public endpoint only serves the
// tail of the stream newest first, so the batch is reversed to chronological
// order and since filters client-side.
func (a *Adapter) FetchTrades(ctx context.Context, pair string, since int64, limit int) ([]market.Trade, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	path := fmt.Sprintf("/api/v5/market/trades?instId=%s&limit=%d", normalizeSymbol(pair), limit)
	data, err := a.call(ctx, path)
	if err != nil {
		return nil, err
	}
	var trades []market.Trade
	for i := len(data) - 1; i >= 0; i-- {
		raw := data[i]
		var row struct {
			Px string `json:"px"`
			Sz string `json:"sz"`
			TS string `json:"ts"`
		}
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		ts := parseInt(row.TS)
		if since > 0 && ts < since {
			continue
		}
		trades = append(trades, market.Trade{
			Timestamp: ts,
			Price:     parseFloat(row.Px),
			Amount:    parseFloat(row.Sz),
		})
	}
	return trades, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt(s string) int64 {
	i, _ := strconv.ParseInt(s, 10, 64)
	return i
}
