// Package kraken implements the Kraken spot market-data adapter.
package kraken

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

// Adapter speaks the Kraken public REST API.
type Adapter struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *ratelimit.Limiter
}

// NewAdapter creates a Kraken adapter. baseURL defaults to the public API.
func NewAdapter(baseURL string, limiter *ratelimit.Limiter) *Adapter {
	if baseURL == "" {
		baseURL = "https://api.kraken.com"
	}
	return &Adapter{
		name:    "kraken",
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
	}
}

// Name returns the normalized venue id.
func (a *Adapter) Name() string { return a.name }

type response struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

func (a *Adapter) call(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	body, err := netutil.Get(ctx, a.http, a.limiter, a.name, a.baseURL+path)
	if err != nil {
		return nil, err
	}
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kraken: malformed response: %w", err)
	}
	if len(resp.Error) > 0 {
		return nil, fmt.Errorf("kraken API error: %v", resp.Error)
	}
	return resp.Result, nil
}

// normalizeSymbol converts BASE/QUOTE to Kraken's joined spelling (BTC→XBT).
func normalizeSymbol(pair string) string {
	pair = strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
	if strings.HasPrefix(pair, "BTC") {
		pair = strings.Replace(pair, "BTC", "XBT", 1)
	}
	return pair
}

// Symbols returns the live pair list from AssetPairs wsnames, with Kraken's
// XBT spelling folded back to BTC.
func (a *Adapter) Symbols(ctx context.Context) ([]string, error) {
	result, err := a.call(ctx, "/0/public/AssetPairs")
	if err != nil {
		return nil, err
	}
	var symbols []string
	for _, raw := range result {
		var info struct {
			WSName string `json:"wsname"`
		}
		if err := json.Unmarshal(raw, &info); err != nil || info.WSName == "" {
			continue
		}
		name := strings.Replace(info.WSName, "XBT", "BTC", 1)
		symbols = append(symbols, name)
	}
	return symbols, nil
}

// FetchOHLCV returns daily candles ascending from since. Kraken has no limit
// parameter, so the batch is truncated client-side.
func (a *Adapter) FetchOHLCV(ctx context.Context, pair string, since int64, limit int) ([]market.Candle, error) {
	path := fmt.Sprintf("/0/public/OHLC?pair=%s&interval=1440", normalizeSymbol(pair))
	if since > 0 {
		path += fmt.Sprintf("&since=%d", since/1000)
	}
	result, err := a.call(ctx, path)
	if err != nil {
		return nil, err
	}

	var candles []market.Candle
	for key, raw := range result {
		if key == "last" {
			continue
		}
		var rows [][]json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			continue
		}
		for _, row := range rows {
			if len(row) < 7 {
				continue
			}
			candles = append(candles, market.Candle{
				Timestamp: int64(asFloat(row[0])) * 1000,
				Open:      asFloat(row[1]),
				High:      asFloat(row[2]),
				Low:       asFloat(row[3]),
				Close:     asFloat(row[4]),
				Volume:    asFloat(row[6]),
			})
		}
		break // single pair requested
	}
	candles = market.SortDedup(candles)
	if limit > 0 && len(candles) > limit {
		candles = candles[:limit]
	}
	return candles, nil
}

// FetchTrades returns raw trade prints ascending from since.
func (a *Adapter) FetchTrades(ctx context.Context, pair string, since int64, limit int) ([]market.Trade, error) {
	path := fmt.Sprintf("/0/public/Trades?pair=%s", normalizeSymbol(pair))
	if since > 0 {
		// Kraken's trade cursor is nanoseconds
		path += fmt.Sprintf("&since=%d", since*1_000_000)
	}
	result, err := a.call(ctx, path)
	if err != nil {
		return nil, err
	}

	var trades []market.Trade
	for key, raw := range result {
		if key == "last" {
			continue
		}
		var rows [][]json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			continue
		}
		for _, row := range rows {
			if len(row) < 3 {
				continue
			}
			trades = append(trades, market.Trade{
				Timestamp: int64(asFloat(row[2]) * 1000),
				Price:     asFloat(row[0]),
				Amount:    asFloat(row[1]),
			})
		}
		break
	}
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}
	return trades, nil
}

// asFloat parses Kraken's mixed string/number fields.
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
