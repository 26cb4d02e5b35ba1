// Package resolve maps a ticker symbol to a canonical aggregator asset id.
// Symbol collisions are disambiguated through a pluggable Selector so the
// interactive prompt stays outside the resolver itself.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/paperhands/internal/coingecko"
	"github.com/sawpanic/paperhands/internal/market"
)

// ErrNotFound marks a ticker with no matching asset on the metadata service.
var ErrNotFound = errors.New("ticker not found")

// Selector picks one option index when a symbol maps to several assets.
// Implementations may prompt the user; non-interactive callers supply a
// deterministic selector such as First.
type Selector func(prompt string, options []string) (int, error)

// First is the non-interactive Selector: always the first candidate, which is
// the most prominent listing in upstream order.
func First(prompt string, options []string) (int, error) {
	return 0, nil
}

// Resolver caches ticker resolutions for the process lifetime. The cache is
// append-only and safe for concurrent reads once populated.
type Resolver struct {
	client *coingecko.Client
	pick   Selector

	mu    sync.RWMutex
	cache map[string]market.AssetIdentity
}

// New creates a Resolver around the metadata client. A nil selector defaults
// to First.
func New(client *coingecko.Client, pick Selector) *Resolver {
	if pick == nil {
		pick = First
	}
	return &Resolver{
		client: client,
		pick:   pick,
		cache:  make(map[string]market.AssetIdentity),
	}
}

// Resolve maps a ticker to its canonical asset identity. Ambiguous symbols
// are put to the Selector; invalid indices are rejected and re-prompted.
func (r *Resolver) Resolve(ctx context.Context, ticker string) (market.AssetIdentity, error) {
	key := strings.ToLower(strings.TrimSpace(ticker))
	if key == "" {
		return market.AssetIdentity{}, fmt.Errorf("%w: empty ticker", ErrNotFound)
	}

	r.mu.RLock()
	id, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	coins, err := r.client.ListCoins(ctx)
	if err != nil {
		return market.AssetIdentity{}, err
	}

	var candidates []coingecko.Coin
	for _, c := range coins {
		if strings.EqualFold(c.Symbol, key) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return market.AssetIdentity{}, fmt.Errorf("%w: %s", ErrNotFound, ticker)
	}

	chosen := candidates[0]
	if len(candidates) > 1 {
		options := make([]string, len(candidates))
		for i, c := range candidates {
			options[i] = fmt.Sprintf("%s (%s)", c.Name, c.ID)
		}
		prompt := fmt.Sprintf("Multiple assets share symbol %q, select one", strings.ToUpper(key))
		for {
			idx, err := r.pick(prompt, options)
			if err != nil {
				return market.AssetIdentity{}, fmt.Errorf("selection aborted: %w", err)
			}
			if idx >= 0 && idx < len(candidates) {
				chosen = candidates[idx]
				break
			}
			log.Warn().Int("index", idx).Int("candidates", len(candidates)).Msg("Invalid selection, asking again")
		}
	}

	id = market.AssetIdentity{CanonicalID: chosen.ID, Symbol: strings.ToUpper(key)}
	r.mu.Lock()
	r.cache[key] = id
	r.mu.Unlock()

	log.Info().Str("ticker", key).Str("id", id.CanonicalID).Msg("Resolved asset identity")
	return id, nil
}
