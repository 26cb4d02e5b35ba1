package fetch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/paperhands/internal/config"
	"github.com/sawpanic/paperhands/internal/market"
	"github.com/sawpanic/paperhands/internal/netutil/ratelimit"
	"github.com/sawpanic/paperhands/internal/venue"
)

type fakeExchange struct {
	name       string
	symbols    []string
	symbolsErr error
	ohlcv      func(pair string, since int64, limit int) ([]market.Candle, error)
	trades     func(pair string, since int64, limit int) ([]market.Trade, error)
}

func (f *fakeExchange) Name() string { return f.name }

func (f *fakeExchange) Symbols(ctx context.Context) ([]string, error) {
	return f.symbols, f.symbolsErr
}

func (f *fakeExchange) FetchOHLCV(ctx context.Context, pair string, since int64, limit int) ([]market.Candle, error) {
	if f.ohlcv == nil {
		return nil, errors.New("no ohlcv endpoint")
	}
	return f.ohlcv(pair, since, limit)
}

func (f *fakeExchange) FetchTrades(ctx context.Context, pair string, since int64, limit int) ([]market.Trade, error) {
	if f.trades == nil {
		return nil, errors.New("no trades endpoint")
	}
	return f.trades(pair, since, limit)
}

type fakeAggregator struct {
	days    int
	candles []market.Candle
	err     error
}

func (f *fakeAggregator) OHLC(ctx context.Context, id string, days int) ([]market.Candle, error) {
	f.days = days
	return f.candles, f.err
}

func candleAt(ts int64, v float64) market.Candle {
	return market.Candle{Timestamp: ts, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: v}
}

func testEngine(venues map[string]venue.Exchange, agg AggregatorSource) *Engine {
	cfg := config.Default()
	cfg.Fetch.DaysLimit = 5
	cfg.Fetch.BatchLimit = 3
	e := NewEngine(venues, agg, cfg)
	e.now = func() time.Time { return time.UnixMilli(400 * market.DayMs) }
	return e
}

func TestFetch_TradeReconstructionFallback(t *testing.T) {
	windowStart := (400 - 5) * market.DayMs
	var tradeCalls int
	ex := &fakeExchange{
		name: "kraken",
		ohlcv: func(pair string, since int64, limit int) ([]market.Candle, error) {
			return nil, errors.New("OHLC endpoint gone")
		},
		trades: func(pair string, since int64, limit int) ([]market.Trade, error) {
			tradeCalls++
			if tradeCalls > 1 {
				return nil, nil
			}
			return []market.Trade{
				{Timestamp: windowStart + 10, Price: 1.0, Amount: 5},
				{Timestamp: windowStart + 20, Price: 2.0, Amount: 5},
				{Timestamp: windowStart + market.DayMs, Price: 1.5, Amount: 1},
			}, nil
		},
	}

	e := testEngine(map[string]venue.Exchange{"kraken": ex}, &fakeAggregator{})
	refs := []market.Ref{{Venue: "kraken", Pair: "AAA/USDT"}}

	series, failed, err := e.Fetch(context.Background(), market.AssetIdentity{CanonicalID: "aaa", Symbol: "AAA"}, refs, "")
	require.NoError(t, err)
	assert.Empty(t, failed)

	s, ok := series["kraken"]
	require.True(t, ok, "trade-reconstructed series must land under the venue key")
	require.Equal(t, 2, s.Len())
	assert.False(t, s.PriceOnly)

	first := s.Candles[0]
	assert.Equal(t, windowStart, first.Timestamp)
	assert.Equal(t, 1.0, first.Open)
	assert.Equal(t, 2.0, first.High)
	assert.Equal(t, 2.0, first.Close)
	assert.Equal(t, 10.0, first.Volume)
}

func TestFetch_PaginatesAndTruncates(t *testing.T) {
	all := make([]market.Candle, 10)
	base := (400 - 10) * market.DayMs
	for i := range all {
		all[i] = candleAt(base+int64(i)*market.DayMs, float64(i))
	}
	var sinces []int64
	ex := &fakeExchange{
		name: "binance",
		ohlcv: func(pair string, since int64, limit int) ([]market.Candle, error) {
			sinces = append(sinces, since)
			var batch []market.Candle
			for _, c := range all {
				if c.Timestamp >= since && len(batch) < limit {
					batch = append(batch, c)
				}
			}
			return batch, nil
		},
	}

	e := testEngine(map[string]venue.Exchange{"binance": ex}, &fakeAggregator{})
	refs := []market.Ref{{Venue: "binance", Pair: "AAA/USDT"}}

	series, failed, err := e.Fetch(context.Background(), market.AssetIdentity{Symbol: "AAA"}, refs, "")
	require.NoError(t, err)
	assert.Empty(t, failed)

	s := series["binance"]
	require.Equal(t, 5, s.Len(), "series truncated to the trailing window")
	assert.Equal(t, all[9].Timestamp, s.Candles[4].Timestamp, "keeps the most recent candles")
	require.NoError(t, s.Validate())

	// cursor advances one day past the last candle of each batch
	require.GreaterOrEqual(t, len(sinces), 2)
	for i := 1; i < len(sinces); i++ {
		assert.Greater(t, sinces[i], sinces[i-1])
	}
}

func TestFetch_PartialFailureIsSuccess(t *testing.T) {
	good := &fakeExchange{
		name: "kraken",
		ohlcv: func(pair string, since int64, limit int) ([]market.Candle, error) {
			if since > 399*market.DayMs {
				return nil, nil
			}
			return []market.Candle{candleAt(399*market.DayMs, 1)}, nil
		},
	}
	bad := &fakeExchange{name: "gate"}

	e := testEngine(map[string]venue.Exchange{"kraken": good, "gate": bad}, &fakeAggregator{})
	refs := []market.Ref{
		{Venue: "gate", Pair: "AAA/USDT"},
		{Venue: "kraken", Pair: "AAA/USDT"},
	}

	series, failed, err := e.Fetch(context.Background(), market.AssetIdentity{Symbol: "AAA"}, refs, "")
	require.NoError(t, err)
	assert.Contains(t, series, "kraken")
	assert.NotContains(t, series, "gate")
	assert.Equal(t, []string{"gate"}, failed)
}

func TestFetch_VenueFilter(t *testing.T) {
	queried := map[string]bool{}
	mk := func(name string) *fakeExchange {
		return &fakeExchange{
			name: name,
			ohlcv: func(pair string, since int64, limit int) ([]market.Candle, error) {
				queried[name] = true
				if since > 399*market.DayMs {
					return nil, nil
				}
				return []market.Candle{candleAt(399*market.DayMs, 1)}, nil
			},
		}
	}

	e := testEngine(map[string]venue.Exchange{"kraken": mk("kraken"), "okx": mk("okx")}, &fakeAggregator{})
	refs := []market.Ref{
		{Venue: "kraken", Pair: "AAA/USDT"},
		{Venue: "okx", Pair: "AAA/USDT"},
	}

	series, failed, err := e.Fetch(context.Background(), market.AssetIdentity{Symbol: "AAA"}, refs, "okx")
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Contains(t, series, "okx")
	assert.NotContains(t, series, "kraken")
	assert.False(t, queried["kraken"])
}

func TestFetch_GenericPairProbing(t *testing.T) {
	ex := &fakeExchange{
		name:    "okx",
		symbols: []string{"AAA/USD", "BBB/USDT"},
		ohlcv: func(pair string, since int64, limit int) ([]market.Candle, error) {
			require.Equal(t, "AAA/USD", pair)
			if since > 399*market.DayMs {
				return nil, nil
			}
			return []market.Candle{candleAt(399*market.DayMs, 1)}, nil
		},
	}

	// no catalogued markets at all: only probing can find the pair
	e := testEngine(map[string]venue.Exchange{"okx": ex}, &fakeAggregator{})
	series, failed, err := e.Fetch(context.Background(), market.AssetIdentity{Symbol: "AAA"}, nil, "")
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Contains(t, series, "okx")
}

func TestFetch_RateLimitAbandonsVenue(t *testing.T) {
	var ohlcvCalls int
	tradesCalled := false
	ex := &fakeExchange{
		name: "gate",
		ohlcv: func(pair string, since int64, limit int) ([]market.Candle, error) {
			ohlcvCalls++
			return nil, fmt.Errorf("gate: %w", ratelimit.ErrRateLimited)
		},
		trades: func(pair string, since int64, limit int) ([]market.Trade, error) {
			tradesCalled = true
			return nil, errors.New("throttled")
		},
	}
	agg := &fakeAggregator{candles: []market.Candle{candleAt(100*market.DayMs, 0)}}

	e := testEngine(map[string]venue.Exchange{"gate": ex}, agg)
	refs := []market.Ref{{Venue: "gate", Pair: "AAA/USDT"}}

	series, failed, err := e.Fetch(context.Background(), market.AssetIdentity{Symbol: "AAA"}, refs, "")
	require.NoError(t, err)
	assert.Equal(t, 2, ohlcvCalls, "second throttled attempt abandons the venue")
	assert.False(t, tradesCalled, "remaining tiers are skipped once abandoned")
	assert.Equal(t, []string{"gate"}, failed)
	assert.Contains(t, series, AggregatorKey)
}

func TestFetch_BreakerTripsAfterConsecutiveFailures(t *testing.T) {
	var calls int
	ex := &fakeExchange{
		name: "kraken",
		ohlcv: func(pair string, since int64, limit int) ([]market.Candle, error) {
			calls++
			return nil, errors.New("connection reset")
		},
		trades: func(pair string, since int64, limit int) ([]market.Trade, error) {
			calls++
			return nil, errors.New("connection reset")
		},
	}
	agg := &fakeAggregator{candles: []market.Candle{candleAt(100*market.DayMs, 0)}}

	e := testEngine(map[string]venue.Exchange{"kraken": ex}, agg)
	refs := []market.Ref{
		{Venue: "kraken", Pair: "AAA/USDT"},
		{Venue: "kraken", Pair: "AAA/USD"},
	}

	series, failed, err := e.Fetch(context.Background(), market.AssetIdentity{Symbol: "AAA"}, refs, "")
	require.NoError(t, err)
	// pair 1 burns three attempts, pair 2 two more; the sixth is rejected by
	// the open breaker without reaching the adapter
	assert.Equal(t, 5, calls)
	assert.Equal(t, []string{"kraken"}, failed)
	assert.Contains(t, series, AggregatorKey)
}

func TestFetch_AggregatorFallback(t *testing.T) {
	agg := &fakeAggregator{candles: []market.Candle{
		{Timestamp: 100 * market.DayMs, Open: 1, High: 2, Low: 0.5, Close: 1.5},
		{Timestamp: 101 * market.DayMs, Open: 1.5, High: 2, Low: 1, Close: 2},
	}}

	e := testEngine(map[string]venue.Exchange{}, agg)
	series, failed, err := e.Fetch(context.Background(), market.AssetIdentity{CanonicalID: "aaa", Symbol: "AAA"}, nil, "")
	require.NoError(t, err)
	assert.Empty(t, failed)

	s, ok := series[AggregatorKey]
	require.True(t, ok)
	assert.True(t, s.PriceOnly)
	assert.Equal(t, 7, agg.days, "day count snaps up to the nearest accepted value")
	for _, c := range s.Candles {
		assert.Zero(t, c.Volume)
	}
}

func TestFetch_AggregatorFailureIsNoData(t *testing.T) {
	agg := &fakeAggregator{err: errors.New("HTTP 500")}
	e := testEngine(map[string]venue.Exchange{}, agg)

	_, _, err := e.Fetch(context.Background(), market.AssetIdentity{Symbol: "AAA"}, nil, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestFetch_AggregatorEmptyIsNoData(t *testing.T) {
	e := testEngine(map[string]venue.Exchange{}, &fakeAggregator{})
	_, _, err := e.Fetch(context.Background(), market.AssetIdentity{Symbol: "AAA"}, nil, "")
	assert.ErrorIs(t, err, ErrNoData)
}
