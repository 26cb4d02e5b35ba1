// Package events scans a daily candle series for intraday surge or selloff
// days and emits fixed-width windows with the derived paper-hands metrics.
package events

import (
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/paperhands/internal/market"
)

// Direction selects which intraday anomaly qualifies a day.
type Direction int

const (
	// Surge qualifies days where high/open reaches the threshold (>1).
	Surge Direction = iota
	// Selloff qualifies days where low/open falls to the threshold (<1).
	Selloff
)

// DefaultThreshold returns the conventional threshold multiplier for a
// direction: 1.75 for surges (a +75% intraday move), 0.5 for selloffs (-50%).
func DefaultThreshold(dir Direction) float64 {
	if dir == Surge {
		return 1.75
	}
	return 0.5
}

// WindowCandle is one candle of an event window with the event-day flag.
type WindowCandle struct {
	market.Candle
	EventDay bool
}

// Event is one qualifying day with its surrounding window and paper-hands
// metrics. PHVolume is the event day's volume minus the mean volume of up to
// four neighboring days; PHPercentage normalizes it by circulating supply.
type Event struct {
	ID           int
	Window       []WindowCandle
	PHVolume     float64
	PHPercentage float64
}

// Extract returns all qualifying events in series order plus the arithmetic
// mean of their PHPercentage values (0.0 when nothing qualifies). Days with
// open <= 0 never qualify. Overlapping windows are never merged; every
// qualifying day is an independent event with a sequential id from 1.
func Extract(candles []market.Candle, supply float64, dir Direction, threshold float64) ([]Event, float64) {
	var out []Event
	var sum float64

	for i, c := range candles {
		if !qualifies(c, dir, threshold) {
			continue
		}
		lo := i - 2
		if lo < 0 {
			lo = 0
		}
		hi := i + 3
		if hi > len(candles) {
			hi = len(candles)
		}

		window := make([]WindowCandle, 0, hi-lo)
		var neighborSum float64
		neighbors := 0
		for j := lo; j < hi; j++ {
			window = append(window, WindowCandle{Candle: candles[j], EventDay: j == i})
			if j != i {
				neighborSum += candles[j].Volume
				neighbors++
			}
		}

		phVolume := c.Volume
		if neighbors > 0 {
			phVolume -= neighborSum / float64(neighbors)
		}
		phPct := 0.0
		if supply != 0 {
			phPct = phVolume / supply
		}

		out = append(out, Event{
			ID:           len(out) + 1,
			Window:       window,
			PHVolume:     phVolume,
			PHPercentage: phPct,
		})
		sum += phPct
	}

	if len(out) == 0 {
		return nil, 0.0
	}
	avg := sum / float64(len(out))
	log.Info().Int("events", len(out)).Float64("avg_ph_percentage", avg).
		Msg("Extracted events")
	return out, avg
}

func qualifies(c market.Candle, dir Direction, threshold float64) bool {
	if c.Open <= 0 {
		return false
	}
	if dir == Surge {
		return c.High/c.Open >= threshold
	}
	return c.Low/c.Open <= threshold
}
