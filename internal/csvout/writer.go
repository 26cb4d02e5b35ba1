// Package csvout writes the pipeline's output files: the per-venue token
// data file, event-window files and schedule files.
package csvout

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/paperhands/internal/events"
	"github.com/sawpanic/paperhands/internal/market"
	"github.com/sawpanic/paperhands/internal/schedule"
)

// Info is the identity block written at the top of a token data file.
type Info struct {
	RunID             string
	PriceUSD          float64
	CirculatingSupply float64
}

const timeLayout = "2006-01-02T15:04:05"

func f(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeAll(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("rows", len(rows)).Msg("Wrote CSV")
	return nil
}

// WriteTokenData writes the identity metric block followed by the series'
// candle rows with ISO-8601 timestamps.
func WriteTokenData(path string, info Info, s market.Series) error {
	rows := [][]string{
		{"metric", "value"},
		{"current_price_usd", f(info.PriceUSD)},
		{"circulating_supply", f(info.CirculatingSupply)},
		{"venue", s.Venue},
		{"run_id", info.RunID},
		{},
		{"timestamp", "open", "high", "low", "close", "volume"},
	}
	for _, c := range s.Candles {
		rows = append(rows, []string{
			c.Time().Format(timeLayout),
			f(c.Open), f(c.High), f(c.Low), f(c.Close), f(c.Volume),
		})
	}
	return writeAll(path, rows)
}

// WriteEvents writes one row per window candle with the event id and
// event-day flag, separating events with a blank line.
func WriteEvents(path string, evs []events.Event) error {
	rows := [][]string{{
		"timestamp", "open", "high", "low", "close", "volume",
		"event_id", "is_event_day", "ph_volume", "ph_percentage",
	}}
	for i, ev := range evs {
		for _, wc := range ev.Window {
			flag := "0"
			if wc.EventDay {
				flag = "1"
			}
			rows = append(rows, []string{
				wc.Time().Format(timeLayout),
				f(wc.Open), f(wc.High), f(wc.Low), f(wc.Close), f(wc.Volume),
				strconv.Itoa(ev.ID), flag, f(ev.PHVolume), f(ev.PHPercentage),
			})
		}
		if i < len(evs)-1 {
			rows = append(rows, []string{})
		}
	}
	return writeAll(path, rows)
}

// WriteSchedule writes one row per schedule step.
func WriteSchedule(path string, steps []schedule.Step) error {
	rows := [][]string{{
		"step", "price_multiplier", "price_usd", "tokens_sold",
		"tokens_sold_cumulative", "usd_value", "usd_value_cumulative",
		"weighted_avg_price", "freefloat",
	}}
	for _, s := range steps {
		rows = append(rows, []string{
			strconv.Itoa(s.N), f(s.Multiplier), f(s.PriceUSD), f(s.Tokens),
			f(s.TokensCum), f(s.USD), f(s.USDCum), f(s.AvgPrice), f(s.Freefloat),
		})
	}
	return writeAll(path, rows)
}
