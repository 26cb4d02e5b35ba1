package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPair(t *testing.T) {
	base, quote := SplitPair("BTC/USDT")
	assert.Equal(t, "BTC", base)
	assert.Equal(t, "USDT", quote)

	base, quote = SplitPair("BTCUSDT")
	assert.Equal(t, "BTCUSDT", base)
	assert.Empty(t, quote)
}

func TestSortDedup(t *testing.T) {
	candles := []Candle{
		{Timestamp: 3 * DayMs, Close: 3},
		{Timestamp: 1 * DayMs, Close: 1},
		{Timestamp: 2 * DayMs, Close: 2},
		{Timestamp: 1 * DayMs, Close: 99}, // duplicate, dropped
	}

	out := SortDedup(candles)
	require.Len(t, out, 3)
	assert.Equal(t, int64(1*DayMs), out[0].Timestamp)
	assert.Equal(t, 1.0, out[0].Close, "first occurrence wins")
	assert.Equal(t, int64(3*DayMs), out[2].Timestamp)

	assert.Empty(t, SortDedup(nil))
}

func TestTail(t *testing.T) {
	candles := []Candle{{Timestamp: 1}, {Timestamp: 2}, {Timestamp: 3}}

	assert.Len(t, Tail(candles, 2), 2)
	assert.Equal(t, int64(2), Tail(candles, 2)[0].Timestamp)
	assert.Len(t, Tail(candles, 5), 3)
	assert.Len(t, Tail(candles, 0), 3)
}

func TestSeriesValidate(t *testing.T) {
	good := Series{Venue: "kraken", Candles: []Candle{{Timestamp: 1}, {Timestamp: 2}}}
	assert.NoError(t, good.Validate())

	bad := Series{Venue: "kraken", Candles: []Candle{{Timestamp: 2}, {Timestamp: 2}}}
	assert.Error(t, bad.Validate())
}

func TestCandleTime(t *testing.T) {
	c := Candle{Timestamp: 1700000000000}
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), c.Time())
	assert.Equal(t, time.UTC, c.Time().Location())
}

func TestRefString(t *testing.T) {
	assert.Equal(t, "kraken:BTC/USD", Ref{Venue: "kraken", Pair: "BTC/USD"}.String())
}
