// Package market holds the shared market-data types passed between pipeline
// stages: asset identities, venue/pair references, candles and raw trades.
// Values are built once by their producing stage and never mutated downstream.
package market

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DayMs is the width of one daily candle bucket in milliseconds.
const DayMs int64 = 24 * 60 * 60 * 1000

// AssetIdentity is a resolved ticker: the aggregator's canonical id plus the
// symbol the user asked for. Exactly one identity is used per session.
type AssetIdentity struct {
	CanonicalID string
	Symbol      string
}

// Ref identifies one tradable market: a normalized venue id and a BASE/QUOTE pair.
type Ref struct {
	Venue string
	Pair  string
}

func (r Ref) String() string {
	return r.Venue + ":" + r.Pair
}

// SplitPair returns the base and quote legs of a BASE/QUOTE pair.
func SplitPair(pair string) (base, quote string) {
	parts := strings.SplitN(pair, "/", 2)
	if len(parts) != 2 {
		return pair, ""
	}
	return parts[0], parts[1]
}

// Candle is one daily OHLCV aggregate. Timestamp is the bucket start in
// milliseconds since epoch. Volume is 0.0 when the source does not report it.
type Candle struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Time returns the candle's bucket start as a time.Time in UTC.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// Series is an ascending, timestamp-unique run of daily candles from a single
// source. PriceOnly marks aggregator-sourced series whose volumes are all zero,
// so downstream consumers can treat them as a price approximation.
type Series struct {
	Venue     string
	PriceOnly bool
	Candles   []Candle
}

// Len reports the number of candles in the series.
func (s Series) Len() int { return len(s.Candles) }

// Trade is a single raw trade print used for candle reconstruction.
type Trade struct {
	Timestamp int64
	Price     float64
	Amount    float64
}

// SortDedup sorts candles ascending by timestamp and drops duplicate
// timestamps, keeping the first occurrence.
func SortDedup(candles []Candle) []Candle {
	if len(candles) == 0 {
		return candles
	}
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})
	out := candles[:1]
	for _, c := range candles[1:] {
		if c.Timestamp != out[len(out)-1].Timestamp {
			out = append(out, c)
		}
	}
	return out
}

// Tail returns the most recent n candles (all of them when len <= n).
func Tail(candles []Candle, n int) []Candle {
	if n <= 0 || len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}

// Validate rejects series that violate the ordering/uniqueness invariant.
func (s Series) Validate() error {
	for i := 1; i < len(s.Candles); i++ {
		if s.Candles[i].Timestamp <= s.Candles[i-1].Timestamp {
			return fmt.Errorf("series %s: candle %d timestamp %d not strictly ascending", s.Venue, i, s.Candles[i].Timestamp)
		}
	}
	return nil
}
