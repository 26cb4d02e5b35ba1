// Package catalog lists an asset's known trading venues and pairs from the
// metadata service, normalizes venue naming through the alias table and keeps
// only dollar-equivalent quote pairs. Venues the engine cannot serve are
// reported as unsupported instead of silently dropped.
package catalog

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/paperhands/internal/coingecko"
	"github.com/sawpanic/paperhands/internal/config"
	"github.com/sawpanic/paperhands/internal/market"
)

// currency spellings folded before the quote filter (legacy venue naming)
var currencyAliases = map[string]string{
	"XBT": "BTC",
}

// Unsupported is a diagnostic record for a market the engine cannot use.
type Unsupported struct {
	Venue  string
	Pair   string
	Reason string // "unsupported" or "blacklisted"
}

// Catalog produces MarketRefs for an asset.
type Catalog struct {
	client    *coingecko.Client
	cfg       *config.Config
	supported map[string]bool
}

// New creates a Catalog. supported is the set of venue ids the acquisition
// engine actually has clients for.
func New(client *coingecko.Client, cfg *config.Config, supported []string) *Catalog {
	set := make(map[string]bool, len(supported))
	for _, v := range supported {
		set[v] = true
	}
	return &Catalog{client: client, cfg: cfg, supported: set}
}

// NormalizeVenue lower-cases a venue id and folds it through the alias table.
func NormalizeVenue(id string, aliases map[string]string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if alias, ok := aliases[id]; ok {
		return alias
	}
	return id
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if alias, ok := currencyAliases[c]; ok {
		return alias
	}
	return c
}

// Markets returns the asset's usable markets plus the diagnostic list of
// markets that passed the quote filter but cannot be served. It fails with
// the metadata service's upstream error when the ticker source is down.
func (c *Catalog) Markets(ctx context.Context, id market.AssetIdentity) ([]market.Ref, []Unsupported, error) {
	tickers, err := c.client.Tickers(ctx, id.CanonicalID)
	if err != nil {
		return nil, nil, err
	}

	var refs []market.Ref
	var skipped []Unsupported
	seen := make(map[market.Ref]bool)

	for _, t := range tickers {
		base := normalizeCurrency(t.Base)
		quote := normalizeCurrency(t.Target)
		if !c.cfg.QuoteAllowed(quote) {
			continue // cross pairs and non-dollar fiat are not markets for us
		}
		venue := NormalizeVenue(t.VenueID, c.cfg.Aliases)
		ref := market.Ref{Venue: venue, Pair: base + "/" + quote}
		if seen[ref] {
			continue
		}
		seen[ref] = true

		switch {
		case c.cfg.Blacklisted(venue):
			skipped = append(skipped, Unsupported{Venue: venue, Pair: ref.Pair, Reason: "blacklisted"})
		case !c.supported[venue]:
			skipped = append(skipped, Unsupported{Venue: venue, Pair: ref.Pair, Reason: "unsupported"})
		default:
			refs = append(refs, ref)
		}
	}

	log.Info().Str("id", id.CanonicalID).
		Int("markets", len(refs)).Int("skipped", len(skipped)).
		Msg("Catalogued markets")
	return refs, skipped, nil
}
