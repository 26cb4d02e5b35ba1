package fetch

import (
	"sort"

	"github.com/sawpanic/paperhands/internal/market"
)

// BucketTrades reconstructs fixed-duration candles from raw trade prints.
// Each trade lands in the bucket its timestamp floors into; within a bucket
// the first print sets the open, the last sets the close, extremes set
// high/low and amounts accumulate into volume. Used when a venue exposes
// trades but no native OHLC.
func BucketTrades(trades []market.Trade, bucketMs int64) []market.Candle {
	if bucketMs <= 0 || len(trades) == 0 {
		return nil
	}
	buckets := make(map[int64]*market.Candle)
	order := make([]int64, 0)

	for _, t := range trades {
		ts := t.Timestamp - (t.Timestamp % bucketMs)
		c, ok := buckets[ts]
		if !ok {
			buckets[ts] = &market.Candle{
				Timestamp: ts,
				Open:      t.Price,
				High:      t.Price,
				Low:       t.Price,
				Close:     t.Price,
				Volume:    t.Amount,
			}
			order = append(order, ts)
			continue
		}
		if t.Price > c.High {
			c.High = t.Price
		}
		if t.Price < c.Low {
			c.Low = t.Price
		}
		c.Close = t.Price
		c.Volume += t.Amount
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	candles := make([]market.Candle, 0, len(order))
	for _, ts := range order {
		candles = append(candles, *buckets[ts])
	}
	return candles
}
