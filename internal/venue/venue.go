// Package venue defines the exchange client contract used by the acquisition
// engine and the registry wiring the concrete adapters.
//
// All adapters speak the same normalized vocabulary: pairs are BASE/QUOTE,
// candle timestamps are bucket starts in milliseconds, series come back
// ascending. since <= 0 on FetchOHLCV asks for the most recent window only,
// for venues whose paginated-since semantics are unreliable.
package venue

import (
	"context"

	"github.com/sawpanic/paperhands/internal/config"
	"github.com/sawpanic/paperhands/internal/market"
	"github.com/sawpanic/paperhands/internal/netutil/ratelimit"
	"github.com/sawpanic/paperhands/internal/venue/binance"
	"github.com/sawpanic/paperhands/internal/venue/gate"
	"github.com/sawpanic/paperhands/internal/venue/kraken"
	"github.com/sawpanic/paperhands/internal/venue/okx"
)

// Exchange is one trading venue's public market-data surface.
type Exchange interface {
	// Name returns the normalized venue id.
	Name() string
	// Symbols returns the venue's live pair list in BASE/QUOTE form.
	Symbols(ctx context.Context) ([]string, error)
	// FetchOHLCV returns up to limit daily candles starting at since (ms).
	FetchOHLCV(ctx context.Context, pair string, since int64, limit int) ([]market.Candle, error)
	// FetchTrades returns up to limit raw trades starting at since (ms).
	FetchTrades(ctx context.Context, pair string, since int64, limit int) ([]market.Trade, error)
}

// Registry builds the enabled venue clients from configuration. Each client
// self-throttles through a shared per-venue limiter.
func Registry(cfg *config.Config) map[string]Exchange {
	limiter := ratelimit.NewLimiter(1, 1)
	for name, vc := range cfg.Venues {
		if vc.Enabled {
			limiter.Configure(name, vc.RPS, vc.Burst)
		}
	}

	exchanges := make(map[string]Exchange)
	add := func(name string, ex Exchange) {
		if vc, ok := cfg.Venues[name]; ok && vc.Enabled {
			exchanges[name] = ex
		}
	}
	add("kraken", kraken.NewAdapter(cfg.Venues["kraken"].BaseURL, limiter))
	add("binance", binance.NewAdapter(cfg.Venues["binance"].BaseURL, limiter))
	add("okx", okx.NewAdapter(cfg.Venues["okx"].BaseURL, limiter))
	add("gate", gate.NewAdapter(cfg.Venues["gate"].BaseURL, limiter))
	return exchanges
}

// Supported lists the venue ids the registry can serve for this config.
func Supported(cfg *config.Config) []string {
	var out []string
	for _, name := range []string{"kraken", "binance", "okx", "gate"} {
		if vc, ok := cfg.Venues[name]; ok && vc.Enabled {
			out = append(out, name)
		}
	}
	return out
}
