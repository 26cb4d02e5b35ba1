// Package fetch implements the OHLCV acquisition engine: an ordered chain of
// fallback strategies run per venue, from native paginated OHLC down to trade
// reconstruction, generic pair probing and finally the aggregator's own OHLC
// endpoint. Partial success is the success case; only total exhaustion fails.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/paperhands/internal/coingecko"
	"github.com/sawpanic/paperhands/internal/config"
	"github.com/sawpanic/paperhands/internal/market"
	"github.com/sawpanic/paperhands/internal/metrics"
	"github.com/sawpanic/paperhands/internal/netutil/ratelimit"
	"github.com/sawpanic/paperhands/internal/venue"
)

// ErrNoData means every strategy across every venue and the aggregator
// fallback produced nothing.
var ErrNoData = errors.New("no OHLCV data from any source")

// AggregatorKey is the reserved series key for the aggregator fallback.
const AggregatorKey = "coingecko"

// genericQuotes are the canonical pair spellings probed against a venue's
// live symbol list when its catalogued pairs yield nothing.
var genericQuotes = []string{"USDT", "USD", "USDC"}

// rateLimitAbandon is how many throttled attempts on one venue it takes for
// the engine to move on instead of retrying.
const rateLimitAbandon = 2

// AggregatorSource is the terminal price-only fallback (the metadata
// aggregator's own OHLC endpoint).
type AggregatorSource interface {
	OHLC(ctx context.Context, id string, days int) ([]market.Candle, error)
}

// Progress receives venue-loop updates for long-running fetches. Optional.
type Progress interface {
	Step(venue string)
}

// Engine drives the acquisition fallback chain.
type Engine struct {
	venues   map[string]venue.Exchange
	agg      AggregatorSource
	cfg      *config.Config
	breakers map[string]*gobreaker.CircuitBreaker
	progress Progress
	now      func() time.Time
}

// NewEngine creates an engine over the given venue clients and aggregator.
func NewEngine(venues map[string]venue.Exchange, agg AggregatorSource, cfg *config.Config) *Engine {
	return &Engine{
		venues:   venues,
		agg:      agg,
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		now:      time.Now,
	}
}

// SetProgress attaches a progress sink wrapping the venue iteration loop.
func (e *Engine) SetProgress(p Progress) { e.progress = p }

// strategy is one fallback tier sharing the common (venue, pair) signature.
type strategy struct {
	name string
	run  func(ctx context.Context, ex venue.Exchange, pair string) ([]market.Candle, error)
}

func (e *Engine) strategies() []strategy {
	return []strategy{
		{"paginated_ohlc", e.paginatedOHLC},
		{"recent_ohlc", e.recentOHLC},
		{"trade_reconstruction", e.tradeReconstruction},
	}
}

// Fetch acquires daily candle series for the asset from the catalogued
// markets, applying the fallback chain per venue. venueFilter restricts the
// run to one venue when non-empty. The returned map holds every venue that
// produced data; failed lists venues where every tier was exhausted. ErrNoData
// is returned only when the map would be empty even after the aggregator
// fallback.
func (e *Engine) Fetch(ctx context.Context, id market.AssetIdentity, refs []market.Ref, venueFilter string) (map[string]market.Series, []string, error) {
	series := make(map[string]market.Series)
	attempted := make(map[string]bool)

	// Tiers 1-3 over the catalogued (venue, pair) markets.
	for _, group := range groupByVenue(refs) {
		if venueFilter != "" && group.venue != venueFilter {
			continue
		}
		ex, ok := e.venues[group.venue]
		if !ok {
			continue
		}
		attempted[group.venue] = true
		if e.progress != nil {
			e.progress.Step(group.venue)
		}
		for _, pair := range group.pairs {
			if s, ok := e.acquire(ctx, ex, pair); ok {
				series[group.venue] = s
				break
			}
		}
	}

	// Tier 4: generic pair probing on venues that have not yielded data yet.
	for _, name := range e.venueNames() {
		if venueFilter != "" && name != venueFilter {
			continue
		}
		if _, ok := series[name]; ok {
			continue
		}
		ex := e.venues[name]
		s, ok := e.probeGeneric(ctx, ex, id.Symbol)
		attempted[name] = true
		if ok {
			series[name] = s
		}
	}

	var failed []string
	for _, name := range sortedKeys(attempted) {
		if _, ok := series[name]; !ok {
			failed = append(failed, name)
		}
	}

	// Tier 5: aggregator OHLC, only when no venue yielded anything.
	if len(series) == 0 {
		s, err := e.aggregatorOHLC(ctx, id)
		if err != nil {
			return nil, failed, err
		}
		series[AggregatorKey] = s
	}

	return series, failed, nil
}

// acquire runs tiers 1-3 for one venue/pair, short-circuiting at the first
// tier that yields candles. Per-attempt errors downgrade to the next tier.
func (e *Engine) acquire(ctx context.Context, ex venue.Exchange, pair string) (market.Series, bool) {
	rateLimited := 0
	for _, s := range e.strategies() {
		metrics.RequestsTotal.WithLabelValues(ex.Name()).Inc()
		candles, err := e.execute(ex.Name(), func() ([]market.Candle, error) {
			return s.run(ctx, ex, pair)
		})
		if err != nil {
			metrics.FailuresTotal.WithLabelValues(ex.Name()).Inc()
			if errors.Is(err, gobreaker.ErrOpenState) {
				log.Warn().Str("venue", ex.Name()).Msg("Circuit open, skipping venue")
				return market.Series{}, false
			}
			if errors.Is(err, ratelimit.ErrRateLimited) {
				metrics.RateLimitedTotal.WithLabelValues(ex.Name()).Inc()
				rateLimited++
				if rateLimited >= rateLimitAbandon {
					log.Warn().Str("venue", ex.Name()).Str("pair", pair).
						Msg("Repeatedly rate limited, moving on")
					return market.Series{}, false
				}
			}
			log.Debug().Str("venue", ex.Name()).Str("pair", pair).
				Str("strategy", s.name).Err(err).Msg("Strategy failed, trying next tier")
			continue
		}
		if len(candles) > 0 {
			metrics.FallbackTierTotal.WithLabelValues(s.name).Inc()
			log.Info().Str("venue", ex.Name()).Str("pair", pair).
				Str("strategy", s.name).Int("candles", len(candles)).
				Msg("Acquired series")
			return market.Series{Venue: ex.Name(), Candles: candles}, true
		}
	}
	return market.Series{}, false
}

// probeGeneric tries the canonical dollar pairs against the venue's live
// symbol list and re-runs the acquisition tiers for any that exists.
func (e *Engine) probeGeneric(ctx context.Context, ex venue.Exchange, symbol string) (market.Series, bool) {
	symbols, err := ex.Symbols(ctx)
	if err != nil {
		log.Debug().Str("venue", ex.Name()).Err(err).Msg("Symbol list unavailable")
		return market.Series{}, false
	}
	listed := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		listed[s] = true
	}
	for _, quote := range genericQuotes {
		pair := symbol + "/" + quote
		if !listed[pair] {
			continue
		}
		if s, ok := e.acquire(ctx, ex, pair); ok {
			return s, true
		}
	}
	return market.Series{}, false
}

// aggregatorOHLC is the terminal tier. Its own failure propagates as
// ErrNoData; the resulting series is price-only (volume 0 on every candle).
func (e *Engine) aggregatorOHLC(ctx context.Context, id market.AssetIdentity) (market.Series, error) {
	days := coingecko.SnapDays(e.cfg.Fetch.DaysLimit, e.cfg.Aggregator.AcceptedDays)
	candles, err := e.agg.OHLC(ctx, id.CanonicalID, days)
	if err != nil {
		return market.Series{}, fmt.Errorf("%w: aggregator fallback failed: %v", ErrNoData, err)
	}
	candles = market.Tail(market.SortDedup(candles), e.cfg.Fetch.DaysLimit)
	if len(candles) == 0 {
		return market.Series{}, ErrNoData
	}
	metrics.FallbackTierTotal.WithLabelValues("aggregator_ohlc").Inc()
	log.Warn().Str("id", id.CanonicalID).Int("candles", len(candles)).
		Msg("Using aggregator fallback, series is price-only")
	return market.Series{Venue: AggregatorKey, PriceOnly: true, Candles: candles}, nil
}

// paginatedOHLC is tier 1: native OHLC in paginated batches, cursor advanced
// one day past the last returned candle, truncated to the trailing window.
func (e *Engine) paginatedOHLC(ctx context.Context, ex venue.Exchange, pair string) ([]market.Candle, error) {
	since := e.windowStart()
	var acc []market.Candle
	for {
		batch, err := ex.FetchOHLCV(ctx, pair, since, e.cfg.Fetch.BatchLimit)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		acc = market.SortDedup(append(acc, batch...))
		if len(acc) >= e.cfg.Fetch.DaysLimit {
			break
		}
		next := batch[len(batch)-1].Timestamp + market.DayMs
		if next <= since {
			break // cursor must advance
		}
		since = next
	}
	return market.Tail(acc, e.cfg.Fetch.DaysLimit), nil
}

// recentOHLC is tier 2: the most recent window only, for venues whose
// paginated-since semantics are unreliable.
func (e *Engine) recentOHLC(ctx context.Context, ex venue.Exchange, pair string) ([]market.Candle, error) {
	batch, err := ex.FetchOHLCV(ctx, pair, 0, e.cfg.Fetch.DaysLimit)
	if err != nil {
		return nil, err
	}
	return market.Tail(market.SortDedup(batch), e.cfg.Fetch.DaysLimit), nil
}

// tradeReconstruction is tier 3: chronological trade batches bucketed into
// daily candles.
func (e *Engine) tradeReconstruction(ctx context.Context, ex venue.Exchange, pair string) ([]market.Candle, error) {
	since := e.windowStart()
	var trades []market.Trade
	for {
		batch, err := ex.FetchTrades(ctx, pair, since, e.cfg.Fetch.BatchLimit)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		trades = append(trades, batch...)
		next := batch[len(batch)-1].Timestamp + 1
		if next <= since {
			break
		}
		since = next
	}
	return market.Tail(BucketTrades(trades, market.DayMs), e.cfg.Fetch.DaysLimit), nil
}

func (e *Engine) windowStart() int64 {
	return e.now().UnixMilli() - int64(e.cfg.Fetch.DaysLimit)*market.DayMs
}

// execute routes an attempt through the venue's circuit breaker so a venue
// that keeps failing stops being hammered for the rest of the run.
func (e *Engine) execute(name string, fn func() ([]market.Candle, error)) ([]market.Candle, error) {
	br, ok := e.breakers[name]
	if !ok {
		br = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
		e.breakers[name] = br
	}
	out, err := br.Execute(func() (any, error) { return fn() })
	if err != nil {
		return nil, err
	}
	return out.([]market.Candle), nil
}

func (e *Engine) venueNames() []string {
	names := make([]string, 0, len(e.venues))
	for name := range e.venues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type venueGroup struct {
	venue string
	pairs []string
}

// groupByVenue preserves catalog order while collecting each venue's pairs.
func groupByVenue(refs []market.Ref) []venueGroup {
	index := make(map[string]int)
	var groups []venueGroup
	for _, r := range refs {
		i, ok := index[r.Venue]
		if !ok {
			i = len(groups)
			index[r.Venue] = i
			groups = append(groups, venueGroup{venue: r.Venue})
		}
		groups[i].pairs = append(groups[i].pairs, r.Pair)
	}
	return groups
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
