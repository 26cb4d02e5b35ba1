// Package binance implements the Binance spot market-data adapter.
package binance

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

// Adapter speaks the Binance public REST API.
type Adapter struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *ratelimit.Limiter
}

// NewAdapter creates a Binance adapter. baseURL defaults to the public API.
func NewAdapter(baseURL string, limiter *ratelimit.Limiter) *Adapter {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &Adapter{
		name:    "binance",
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
	}
}

// Name returns the normalized venue id.
func (a *Adapter) Name() string { return a.name }

func normalizeSymbol(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
}

// Symbols returns the live pair list from exchangeInfo.
func (a *Adapter) Symbols(ctx context.Context) ([]string, error) {
	body, err := netutil.Get(ctx, a.http, a.limiter, a.name, a.baseURL+"/api/v3/exchangeInfo")
	if err != nil {
		return nil, err
	}
	var payload struct {
		Symbols []struct {
			Status     string `json:"status"`
			BaseAsset  string `json:"baseAsset"`
			QuoteAsset string `json:"quoteAsset"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("binance: malformed exchangeInfo: %w", err)
	}
	var symbols []string
	for _, s := range payload.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		symbols = append(symbols, s.BaseAsset+"/"+s.QuoteAsset)
	}
	return symbols, nil
}

// FetchOHLCV returns daily klines ascending from since.
func (a *Adapter) FetchOHLCV(ctx context.Context, pair string, since int64, limit int) ([]market.Candle, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=1d", a.baseURL, normalizeSymbol(pair))
	if since > 0 {
		url += fmt.Sprintf("&startTime=%d", since)
	}
	if limit > 0 {
		url += fmt.Sprintf("&limit=%d", limit)
	}
	body, err := netutil.Get(ctx, a.http, a.limiter, a.name, url)
	if err != nil {
		return nil, err
	}
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("binance: malformed klines: %w", err)
	}
	candles := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		candles = append(candles, market.Candle{
			Timestamp: asInt(row[0]),
			Open:      asFloat(row[1]),
			High:      asFloat(row[2]),
			Low:       asFloat(row[3]),
			Close:     asFloat(row[4]),
			Volume:    asFloat(row[5]),
		})
	}
	return candles, nil
}

// FetchTrades returns aggregate trades ascending from since.
func (a *Adapter) FetchTrades(ctx context.Context, pair string, since int64, limit int) ([]market.Trade, error) {
	url := fmt.Sprintf("%s/api/v3/aggTrades?symbol=%s", a.baseURL, normalizeSymbol(pair))
	if since > 0 {
		url += fmt.Sprintf("&startTime=%d&endTime=%d", since, since+60*60*1000)
	}
	if limit > 0 {
		url += fmt.Sprintf("&limit=%d", limit)
	}
	body, err := netutil.Get(ctx, a.http, a.limiter, a.name, url)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Price    string `json:"p"`
		Quantity string `json:"q"`
		Time     int64  `json:"T"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("binance: malformed aggTrades: %w", err)
	}
	trades := make([]market.Trade, 0, len(rows))
	for _, row := range rows {
		price, _ := strconv.ParseFloat(row.Price, 64)
		qty, _ := strconv.ParseFloat(row.Quantity, 64)
		trades = append(trades, market.Trade{Timestamp: row.Time, Price: price, Amount: qty})
	}
	return trades, nil
}

func asFloat(raw json.RawMessage) float64 {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	return 0.0
}

func asInt(raw json.RawMessage) int64 {
	var i int64
	if err := json.Unmarshal(raw, &i); err == nil {
		return i
	}
	return int64(asFloat(raw))
}
