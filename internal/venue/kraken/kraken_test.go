package kraken

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/paperhands/internal/netutil/ratelimit"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAdapter(srv.URL, ratelimit.NewLimiter(1000, 10))
}

func TestFetchOHLCV(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/OHLC", r.URL.Path)
		assert.Equal(t, "XBTUSD", r.URL.Query().Get("pair"))
		assert.Equal(t, "1440", r.URL.Query().Get("interval"))
		assert.Equal(t, "1700000000", r.URL.Query().Get("since"))
		w.Write([]byte(`{"error":[],"result":{
			"XXBTZUSD":[
				[1700000000,"100.0","110.0","90.0","105.0","102.0","12.5",42],
				[1700086400,"105.0","120.0","100.0","115.0","110.0","8.25",17]
			],
			"last":1700086400
		}}`))
	})

	candles, err := a.FetchOHLCV(context.Background(), "BTC/USD", 1700000000000, 100)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1700000000000), candles[0].Timestamp)
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, 110.0, candles[0].High)
	assert.Equal(t, 105.0, candles[0].Close)
	assert.Equal(t, 12.5, candles[0].Volume)
}

func TestFetchOHLCV_APIError(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EQuery:Unknown asset pair"],"result":{}}`))
	})

	_, err := a.FetchOHLCV(context.Background(), "NOPE/USD", 0, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown asset pair")
}

func TestFetchTrades(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/Trades", r.URL.Path)
		assert.Equal(t, "1700000000000000000", r.URL.Query().Get("since"), "cursor is nanoseconds")
		w.Write([]byte(`{"error":[],"result":{
			"XXBTZUSD":[
				["100.5","0.25",1700000100.1234,"b","l",""],
				["101.0","1.5",1700000200.5,"s","m",""]
			],
			"last":"1700000200500000000"
		}}`))
	})

	trades, err := a.FetchTrades(context.Background(), "BTC/USD", 1700000000000, 100)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, 100.5, trades[0].Price)
	assert.Equal(t, 0.25, trades[0].Amount)
	assert.Equal(t, int64(1700000100123), trades[0].Timestamp)
}

func TestSymbols(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/AssetPairs", r.URL.Path)
		w.Write([]byte(`{"error":[],"result":{
			"XXBTZUSD":{"wsname":"XBT/USD"},
			"XDGUSD":{"wsname":"DOGE/USD"}
		}}`))
	})

	symbols, err := a.Symbols(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"BTC/USD", "DOGE/USD"}, symbols)
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "XBTUSD", normalizeSymbol("BTC/USD"))
	assert.Equal(t, "DOGEUSDT", normalizeSymbol("DOGE/USDT"))
	assert.Equal(t, "ETHUSD", normalizeSymbol("eth/usd"))
}
