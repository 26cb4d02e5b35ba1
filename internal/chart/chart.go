// Package chart renders the buyback schedule curve (price versus cumulative
// USD spent) to a PNG line plot.
package chart

import (
	"fmt"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/sawpanic/paperhands/internal/schedule"
)

// WriteSchedulePNG plots price_usd on the X axis against usd_value_cumulative
// on the Y axis for the given steps.
func WriteSchedulePNG(path, title string, steps []schedule.Step) error {
	if len(steps) < 2 {
		return fmt.Errorf("chart needs at least 2 steps, got %d", len(steps))
	}
	xs := make([]float64, len(steps))
	ys := make([]float64, len(steps))
	for i, s := range steps {
		xs[i] = s.PriceUSD
		ys[i] = s.USDCum
	}

	graph := chart.Chart{
		Title: title,
		XAxis: chart.XAxis{Name: "price (USD)"},
		YAxis: chart.YAxis{Name: "cumulative USD value"},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "schedule",
				XValues: xs,
				YValues: ys,
			},
		},
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer file.Close()
	if err := graph.Render(chart.PNG, file); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
