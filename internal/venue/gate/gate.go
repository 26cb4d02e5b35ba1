// Package gate implements the Gate.io spot market-data adapter.
package gate

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

// Adapter speaks the Gate.io v4 public REST API.
type Adapter struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *ratelimit.Limiter
}

// NewAdapter creates a Gate adapter. baseURL defaults to the public API.
func NewAdapter(baseURL string, limiter *ratelimit.Limiter) *Adapter {
	if baseURL == "" {
		baseURL = "https://api.gateio.ws"
	}
	return &Adapter{
		name:    "gate",
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
	}
}

// Name returns the normalized venue id.
func (a *Adapter) Name() string { return a.name }

func normalizeSymbol(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", "_"))
}

// Symbols returns the live currency-pair list.
func (a *Adapter) Symbols(ctx context.Context) ([]string, error) {
	body, err := netutil.Get(ctx, a.http, a.limiter, a.name, a.baseURL+"/api/v4/spot/currency_pairs")
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Base  string `json:"base"`
		Quote string `json:"quote"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("gate: malformed currency pairs: %w", err)
	}
	symbols := make([]string, 0, len(rows))
	for _, r := range rows {
		symbols = append(symbols, r.Base+"/"+r.Quote)
	}
	return symbols, nil
}

// FetchOHLCV returns daily candlesticks ascending from since. Gate rows are
// string tuples: [ts, quote_volume, close, high, low, open, base_volume, ...].
func (a *Adapter) FetchOHLCV(ctx context.Context, pair string, since int64, limit int) ([]market.Candle, error) {
	url := fmt.Sprintf("%s/api/v4/spot/candlesticks?currency_pair=%s&interval=1d", a.baseURL, normalizeSymbol(pair))
	if since > 0 {
		url += fmt.Sprintf("&from=%d", since/1000)
	}
	if limit > 0 {
		url += fmt.Sprintf("&limit=%d", limit)
	}
	body, err := netutil.Get(ctx, a.http, a.limiter, a.name, url)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("gate: malformed candlesticks: %w", err)
	}
	candles := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		candles = append(candles, market.Candle{
			Timestamp: parseInt(row[0]) * 1000,
			Open:      parseFloat(row[5]),
			High:      parseFloat(row[3]),
			Low:       parseFloat(row[4]),
			Close:     parseFloat(row[2]),
			Volume:    parseFloat(row[6]),
		})
	}
	return market.SortDedup(candles), nil
}

// FetchTrades returns recent trades, newest first upstream, reversed to
// chronological order; since filters client-side.
func (a *Adapter) FetchTrades(ctx context.Context, pair string, since int64, limit int) ([]market.Trade, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	url := fmt.Sprintf("%s/api/v4/spot/trades?currency_pair=%s&limit=%d", a.baseURL, normalizeSymbol(pair), limit)
	body, err := netutil.Get(ctx, a.http, a.limiter, a.name, url)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		CreateTimeMs string `json:"create_time_ms"`
		Price        string `json:"price"`
		Amount       string `json:"amount"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("gate: malformed trades: %w", err)
	}
	var trades []market.Trade
	for i := len(rows) - 1; i >= 0; i-- {
		ts := int64(parseFloat(rows[i].CreateTimeMs))
		if since > 0 && ts < since {
			continue
		}
		trades = append(trades, market.Trade{
			Timestamp: ts,
			Price:     parseFloat(rows[i].Price),
			Amount:    parseFloat(rows[i].Amount),
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
