package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/paperhands/internal/coingecko"
	"github.com/sawpanic/paperhands/internal/config"
	"github.com/sawpanic/paperhands/internal/market"
)

func tickerServer(t *testing.T, body string) *coingecko.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return coingecko.NewClient(srv.URL, 1000, 10)
}

func TestMarkets_QuoteFilter(t *testing.T) {
	client := tickerServer(t, `{"tickers":[
		{"base":"DOGE","target":"USDT","market":{"identifier":"binance"}},
		{"base":"DOGE","target":"BTC","market":{"identifier":"binance"}},
		{"base":"DOGE","target":"EUR","market":{"identifier":"kraken"}},
		{"base":"DOGE","target":"USD","market":{"identifier":"kraken"}},
		{"base":"DOGE","target":"JPY","market":{"identifier":"bitflyer"}}
	]}`)

	cat := New(client, config.Default(), []string{"binance", "kraken"})
	refs, skipped, err := cat.Markets(context.Background(), market.AssetIdentity{CanonicalID: "dogecoin", Symbol: "DOGE"})
	require.NoError(t, err)

	assert.Equal(t, []market.Ref{
		{Venue: "binance", Pair: "DOGE/USDT"},
		{Venue: "kraken", Pair: "DOGE/USD"},
	}, refs)
	assert.Empty(t, skipped, "non-dollar quotes are dropped silently, not reported")
}

func TestMarkets_UnsupportedAndBlacklisted(t *testing.T) {
	client := tickerServer(t, `{"tickers":[
		{"base":"DOGE","target":"USDT","market":{"identifier":"bitstamp"}},
		{"base":"DOGE","target":"USDT","market":{"identifier":"yobit"}},
		{"base":"DOGE","target":"USDT","market":{"identifier":"binance"}}
	]}`)

	cat := New(client, config.Default(), []string{"binance"})
	refs, skipped, err := cat.Markets(context.Background(), market.AssetIdentity{CanonicalID: "dogecoin"})
	require.NoError(t, err)

	assert.Equal(t, []market.Ref{{Venue: "binance", Pair: "DOGE/USDT"}}, refs)
	assert.Equal(t, []Unsupported{
		{Venue: "bitstamp", Pair: "DOGE/USDT", Reason: "unsupported"},
		{Venue: "yobit", Pair: "DOGE/USDT", Reason: "blacklisted"},
	}, skipped)
}

func TestMarkets_DedupAndAliases(t *testing.T) {
	client := tickerServer(t, `{"tickers":[
		{"base":"XBT","target":"USD","market":{"identifier":"kraken"}},
		{"base":"BTC","target":"USD","market":{"identifier":"kraken"}},
		{"base":"BTC","target":"USDT","market":{"identifier":"mxc"}},
		{"base":"BTC","target":"USDT","market":{"identifier":"gate-io"}}
	]}`)

	cat := New(client, config.Default(), []string{"kraken", "mexc", "gate"})
	refs, skipped, err := cat.Markets(context.Background(), market.AssetIdentity{CanonicalID: "bitcoin"})
	require.NoError(t, err)
	assert.Empty(t, skipped)

	// XBT folds to BTC, so the kraken pair dedups to one ref
	assert.Equal(t, []market.Ref{
		{Venue: "kraken", Pair: "BTC/USD"},
		{Venue: "mexc", Pair: "BTC/USDT"},
		{Venue: "gate", Pair: "BTC/USDT"},
	}, refs)
}

func TestNormalizeVenue(t *testing.T) {
	aliases := config.Default().Aliases

	assert.Equal(t, "mexc", NormalizeVenue("MXC", aliases))
	assert.Equal(t, "gate", NormalizeVenue("gate-io", aliases))
	assert.Equal(t, "bybit", NormalizeVenue("bybit_spot", aliases))
	assert.Equal(t, "okx", NormalizeVenue("okex", aliases))
	assert.Equal(t, "kraken", NormalizeVenue("  Kraken ", aliases))
}

func TestMarkets_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	client := coingecko.NewClient(srv.URL, 1000, 10)

	cat := New(client, config.Default(), nil)
	_, _, err := cat.Markets(context.Background(), market.AssetIdentity{CanonicalID: "dogecoin"})
	assert.ErrorIs(t, err, coingecko.ErrUpstream)
}
