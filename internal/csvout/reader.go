package csvout

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sawpanic/paperhands/internal/market"
)

// ReadTokenData parses a token data file written by WriteTokenData back into
// its identity block and candle series, so a previous acquisition run can be
// re-modeled without hitting any venue again.
func ReadTokenData(path string) (Info, market.Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, market.Series{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return Info{}, market.Series{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var info Info
	var s market.Series
	inCandles := false
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if !inCandles {
			switch row[0] {
			case "metric", "":
			case "current_price_usd":
				info.PriceUSD = parseField(row, 1)
			case "circulating_supply":
				info.CirculatingSupply = parseField(row, 1)
			case "venue":
				if len(row) > 1 {
					s.Venue = row[1]
				}
			case "run_id":
				if len(row) > 1 {
					info.RunID = row[1]
				}
			case "timestamp":
				inCandles = true
			}
			continue
		}
		if len(row) < 6 {
			continue
		}
		ts, err := time.Parse(timeLayout, row[0])
		if err != nil {
			return Info{}, market.Series{}, fmt.Errorf("%s: bad timestamp %q: %w", path, row[0], err)
		}
		s.Candles = append(s.Candles, market.Candle{
			Timestamp: ts.UnixMilli(),
			Open:      parseField(row, 1),
			High:      parseField(row, 2),
			Low:       parseField(row, 3),
			Close:     parseField(row, 4),
			Volume:    parseField(row, 5),
		})
	}
	if len(s.Candles) == 0 {
		return Info{}, market.Series{}, fmt.Errorf("%s holds no candle rows", path)
	}

	// a series with no volume anywhere came from the aggregator fallback
	priceOnly := true
	for _, c := range s.Candles {
		if c.Volume != 0 {
			priceOnly = false
			break
		}
	}
	s.PriceOnly = priceOnly
	return info, s, nil
}

func parseField(row []string, i int) float64 {
	if i >= len(row) {
		return 0
	}
	v, _ := strconv.ParseFloat(row[i], 64)
	return v
}
