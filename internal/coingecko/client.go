// Package coingecko implements the asset metadata service client: coin list
// resolution, coin info (price/supply), per-coin ticker listing and the
// aggregator's own OHLC endpoint used as the engine's terminal fallback.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sawpanic/paperhands/internal/market"
)

// ErrUpstream marks the metadata service being unreachable or returning a
// non-2xx status. There is no fallback for metadata, so callers surface it.
var ErrUpstream = errors.New("metadata service error")

// Client is a keyless CoinGecko API client with free-tier self-throttling.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client against the given base URL (the public v3 API
// in production, an httptest server in tests).
func NewClient(baseURL string, rps float64, burst int) *Client {
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Coin is one entry of the /coins/list index.
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// CoinInfo carries the current USD price and circulating supply of a coin.
// Supply is a pointer because the upstream field may be null.
type CoinInfo struct {
	PriceUSD          float64
	CirculatingSupply *float64
}

// Ticker is one market listing for a coin.
type Ticker struct {
	VenueID string
	Base    string
	Target  string
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUpstream, path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	log.Debug().Str("path", path).Dur("latency", time.Since(start)).Msg("metadata request")
	return body, nil
}

// ListCoins fetches the full coin index in upstream order.
func (c *Client) ListCoins(ctx context.Context) ([]Coin, error) {
	body, err := c.get(ctx, "/coins/list", nil)
	if err != nil {
		return nil, err
	}
	var coins []Coin
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, fmt.Errorf("%w: malformed coin list: %v", ErrUpstream, err)
	}
	return coins, nil
}

// CoinInfo fetches the current USD price and circulating supply for a coin id.
func (c *Client) CoinInfo(ctx context.Context, id string) (CoinInfo, error) {
	body, err := c.get(ctx, "/coins/"+url.PathEscape(id), nil)
	if err != nil {
		return CoinInfo{}, err
	}
	var payload struct {
		MarketData struct {
			CurrentPrice struct {
				USD float64 `json:"usd"`
			} `json:"current_price"`
			CirculatingSupply *float64 `json:"circulating_supply"`
		} `json:"market_data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return CoinInfo{}, fmt.Errorf("%w: malformed coin info: %v", ErrUpstream, err)
	}
	return CoinInfo{
		PriceUSD:          payload.MarketData.CurrentPrice.USD,
		CirculatingSupply: payload.MarketData.CirculatingSupply,
	}, nil
}

// Tickers fetches the market listings for a coin id.
func (c *Client) Tickers(ctx context.Context, id string) ([]Ticker, error) {
	body, err := c.get(ctx, "/coins/"+url.PathEscape(id)+"/tickers", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Tickers []struct {
			Base   string `json:"base"`
			Target string `json:"target"`
			Market struct {
				Identifier string `json:"identifier"`
			} `json:"market"`
		} `json:"tickers"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed tickers: %v", ErrUpstream, err)
	}
	tickers := make([]Ticker, 0, len(payload.Tickers))
	for _, t := range payload.Tickers {
		tickers = append(tickers, Ticker{
			VenueID: t.Market.Identifier,
			Base:    t.Base,
			Target:  t.Target,
		})
	}
	return tickers, nil
}

// OHLC fetches the aggregator's own daily candles. The endpoint reports no
// volume, so every candle carries Volume 0.0. The days argument must be one
// of the endpoint's accepted values (see SnapDays).
func (c *Client) OHLC(ctx context.Context, id string, days int) ([]market.Candle, error) {
	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("days", strconv.Itoa(days))
	body, err := c.get(ctx, "/coins/"+url.PathEscape(id)+"/ohlc", query)
	if err != nil {
		return nil, err
	}
	var rows [][]float64
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: malformed ohlc: %v", ErrUpstream, err)
	}
	candles := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		candles = append(candles, market.Candle{
			Timestamp: int64(row[0]),
			Open:      row[1],
			High:      row[2],
			Low:       row[3],
			Close:     row[4],
			Volume:    0.0,
		})
	}
	return candles, nil
}

// SnapDays snaps a desired day count up to the nearest value the OHLC
// endpoint accepts. Counts beyond the largest accepted value snap down to it.
func SnapDays(days int, accepted []int) int {
	for _, a := range accepted {
		if days <= a {
			return a
		}
	}
	if len(accepted) == 0 {
		return days
	}
	return accepted[len(accepted)-1]
}
