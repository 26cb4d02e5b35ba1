// Package schedule builds geometric sell-pressure step schedules: a buyback
// schedule walks the price up toward a target while the modeled paper-hands
// pool sells into it; a liquidation schedule walks the price down.
package schedule

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// ErrValidation marks malformed numeric model input.
var ErrValidation = errors.New("invalid model input")

// Direction selects which way the price walks toward the target.
type Direction int

const (
	// Buyback raises the price one step at a time toward the target.
	Buyback Direction = iota
	// Liquidation lowers the price one step at a time toward the target.
	Liquidation
)

// Params are the model inputs.
type Params struct {
	Price        float64 // current price in USD
	Supply       float64 // circulating supply
	PHPercentage float64 // modeled sellable fraction of supply
	FinalPrice   float64 // target price terminating the schedule
	StepPct      float64 // price step per schedule row, percent
	QPct         float64 // sell-rate growth per step, percent
}

// Step is one schedule row. Each row depends only on the previous cumulative
// state; the chain is append-only and terminates at the target price.
type Step struct {
	N          int
	Multiplier float64
	PriceUSD   float64
	Tokens     float64
	TokensCum  float64
	USD        float64
	USDCum     float64
	AvgPrice   float64
	Freefloat  float64
}

// Build generates the schedule. A non-positive sellable pool is a valid
// no-op and yields an empty schedule. Generation stops when the price level
// crosses FinalPrice, not when the pool is exhausted, so cumulative tokens
// may overshoot the estimate by design of the geometric split.
func Build(dir Direction, p Params) ([]Step, error) {
	if err := validate(dir, p); err != nil {
		return nil, err
	}

	tokensToSell := p.Supply * p.PHPercentage
	if tokensToSell <= 0 {
		return nil, nil
	}

	inc := p.StepPct / 100.0
	qFactor := 1.0 + p.QPct/100.0

	// Analytic step count: increments needed to reach the target, plus one
	// for the opening row at the current price.
	var span float64
	if dir == Buyback {
		span = p.FinalPrice/p.Price - 1
	} else {
		span = 1 - p.FinalPrice/p.Price
	}
	steps := int(math.Ceil(span/inc)) + 1
	if steps < 1 {
		steps = 1
	}

	// First term of the geometric series summing to the sellable pool.
	var tokens float64
	if qFactor == 1.0 {
		tokens = tokensToSell / float64(steps)
	} else {
		tokens = tokensToSell * (1 - qFactor) / (1 - math.Pow(qFactor, float64(steps)))
	}

	var out []Step
	multiplier := 1.0
	tokensCum := 0.0
	usdCum := 0.0
	for n := 1; ; n++ {
		priceUSD := p.Price * multiplier
		usd := tokens * priceUSD
		tokensCum += tokens
		usdCum += usd

		freefloat := p.Supply - tokensCum
		if dir == Liquidation {
			freefloat = p.Supply + tokensCum
		}

		out = append(out, Step{
			N:          n,
			Multiplier: multiplier,
			PriceUSD:   priceUSD,
			Tokens:     tokens,
			TokensCum:  tokensCum,
			USD:        usd,
			USDCum:     usdCum,
			AvgPrice:   usdCum / tokensCum,
			Freefloat:  freefloat,
		})

		if dir == Buyback && priceUSD >= p.FinalPrice {
			break
		}
		if dir == Liquidation && priceUSD <= p.FinalPrice {
			break
		}

		if dir == Buyback {
			multiplier += inc
		} else {
			multiplier -= inc
		}
		tokens *= qFactor
	}

	log.Info().Int("steps", len(out)).Float64("tokens_to_sell", tokensToSell).
		Float64("final_price", p.FinalPrice).Msg("Built schedule")
	return out, nil
}

func validate(dir Direction, p Params) error {
	if p.Price <= 0 {
		return fmt.Errorf("%w: current price must be positive, got %g", ErrValidation, p.Price)
	}
	if p.FinalPrice <= 0 {
		return fmt.Errorf("%w: final price must be positive, got %g", ErrValidation, p.FinalPrice)
	}
	if p.StepPct <= 0 {
		return fmt.Errorf("%w: step percentage must be positive, got %g", ErrValidation, p.StepPct)
	}
	if p.QPct < 0 {
		return fmt.Errorf("%w: q percentage must not be negative, got %g", ErrValidation, p.QPct)
	}
	if dir == Buyback && p.FinalPrice < p.Price {
		return fmt.Errorf("%w: buyback target %g below current price %g", ErrValidation, p.FinalPrice, p.Price)
	}
	if dir == Liquidation && p.FinalPrice > p.Price {
		return fmt.Errorf("%w: liquidation target %g above current price %g", ErrValidation, p.FinalPrice, p.Price)
	}
	return nil
}
