package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/paperhands/internal/catalog"
	"github.com/sawpanic/paperhands/internal/chart"
	"github.com/sawpanic/paperhands/internal/coingecko"
	"github.com/sawpanic/paperhands/internal/config"
	"github.com/sawpanic/paperhands/internal/csvout"
	"github.com/sawpanic/paperhands/internal/events"
	"github.com/sawpanic/paperhands/internal/fetch"
	"github.com/sawpanic/paperhands/internal/market"
	"github.com/sawpanic/paperhands/internal/metrics"
	"github.com/sawpanic/paperhands/internal/progress"
	"github.com/sawpanic/paperhands/internal/resolve"
	"github.com/sawpanic/paperhands/internal/schedule"
	"github.com/sawpanic/paperhands/internal/venue"
)

func runFetch(cmd *cobra.Command, args []string) error {
	ticker := args[0]
	flags := cmd.Flags()
	debug, _ := flags.GetBool("debug")
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	nonInteractive, _ := flags.GetBool("non-interactive")
	interactive := isTTY() && !nonInteractive

	runID := uuid.New().String()
	log.Logger = log.With().Str("run_id", runID).Logger()

	if interactive {
		animateBanner(2)
	}

	metricsAddr, _ := flags.GetString("metrics-addr")
	metrics.Serve(metricsAddr)

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client := coingecko.NewClient(cfg.Aggregator.BaseURL, cfg.Aggregator.RPS, cfg.Aggregator.Burst)

	selector := resolve.Selector(resolve.First)
	if interactive {
		selector = promptSelect
	}
	resolver := resolve.New(client, selector)

	id, err := resolver.Resolve(ctx, ticker)
	if err != nil {
		return err
	}

	info, err := client.CoinInfo(ctx, id.CanonicalID)
	if err != nil {
		return err
	}
	supply, err := resolveSupply(flags, info, interactive)
	if err != nil {
		return err
	}

	cat := catalog.New(client, cfg, venue.Supported(cfg))
	refs, skipped, err := cat.Markets(ctx, id)
	if err != nil {
		return err
	}
	printVenues(refs, skipped)

	venueFilter, _ := flags.GetString("venue")
	if venueFilter == "" && interactive {
		venueFilter, err = selectVenue(refs)
		if err != nil {
			return err
		}
	}

	engine := fetch.NewEngine(venue.Registry(cfg), client, cfg)
	ind := progress.New("fetching", countVenues(refs), interactive)
	engine.SetProgress(ind)
	series, failed, err := engine.Fetch(ctx, id, refs, venueFilter)
	ind.Stop()
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		log.Warn().Strs("venues", failed).Msg("Some venues produced no data")
	}

	output, _ := flags.GetString("output")
	if output == "" {
		output = strings.ToUpper(ticker) + "_data.csv"
	}
	if err := writeSeries(output, runID, info.PriceUSD, supply, series); err != nil {
		return err
	}

	mode, _ := flags.GetString("mode")
	if mode == "" {
		if !interactive {
			return nil // acquisition-only run
		}
		mode, err = promptMode()
		if err != nil {
			return err
		}
	}
	if mode == "none" {
		return nil
	}

	chosen := chooseSeries(series, venueFilter)
	if chosen.PriceOnly {
		log.Warn().Str("venue", chosen.Venue).
			Msg("Modeling on aggregator data: volumes are a price-only approximation")
	}
	return runModel(flags, interactive, mode, output, info.PriceUSD, supply, chosen)
}

// resolveSupply applies the --supply override or prompts when the aggregator
// reports no circulating supply.
func resolveSupply(flags *pflag.FlagSet, info coingecko.CoinInfo, interactive bool) (float64, error) {
	override, _ := flags.GetFloat64("supply")
	if override > 0 {
		return override, nil
	}
	if info.CirculatingSupply != nil && *info.CirculatingSupply > 0 {
		return *info.CirculatingSupply, nil
	}
	if !interactive {
		return 0, fmt.Errorf("circulating supply unavailable upstream, pass --supply")
	}
	return promptRequiredFloat("Circulating supply unavailable, enter manually")
}

// countVenues reports how many distinct venues the refs span; the engine
// steps the progress indicator once per venue, not per pair.
func countVenues(refs []market.Ref) int {
	seen := map[string]bool{}
	for _, r := range refs {
		seen[r.Venue] = true
	}
	return len(seen)
}

func printVenues(refs []market.Ref, skipped []catalog.Unsupported) {
	for _, r := range refs {
		fmt.Printf("  %-12s %s\n", r.Venue, r.Pair)
	}
	for _, u := range skipped {
		fmt.Printf("  %-12s %s (%s)\n", u.Venue, u.Pair, u.Reason)
	}
}

// selectVenue offers the catalogued venues plus an "all venues" option.
func selectVenue(refs []market.Ref) (string, error) {
	var names []string
	seen := map[string]bool{}
	for _, r := range refs {
		if !seen[r.Venue] {
			seen[r.Venue] = true
			names = append(names, r.Venue)
		}
	}
	if len(names) < 2 {
		return "", nil
	}
	options := append([]string{"all venues"}, names...)
	for {
		idx, err := promptSelect("Select venue to query", options)
		if err != nil {
			return "", err
		}
		if idx == 0 {
			return "", nil
		}
		if idx > 0 && idx < len(options) {
			return names[idx-1], nil
		}
	}
}

// writeSeries writes one data file per venue key, suffixing the venue when
// more than one series came back.
func writeSeries(output, runID string, price, supply float64, series map[string]market.Series) error {
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	info := csvout.Info{RunID: runID, PriceUSD: price, CirculatingSupply: supply}
	for _, k := range keys {
		path := output
		if len(keys) > 1 {
			path = strings.Replace(output, ".csv", "_"+k+".csv", 1)
		}
		if err := csvout.WriteTokenData(path, info, series[k]); err != nil {
			return err
		}
		fmt.Printf("Data written to %s\n", path)
	}
	return nil
}

// chooseSeries picks the series the analytics run on: the filtered venue if
// set, otherwise the longest exchange-native series, falling back to the
// aggregator's price-only series. Length ties break on venue id so the same
// inputs always model the same series.
func chooseSeries(series map[string]market.Series, venueFilter string) market.Series {
	if s, ok := series[venueFilter]; venueFilter != "" && ok {
		return s
	}
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var best market.Series
	have := false
	for _, k := range keys {
		s := series[k]
		switch {
		case !have:
			best, have = s, true
		case best.PriceOnly != s.PriceOnly:
			if best.PriceOnly {
				best = s
			}
		case s.Len() > best.Len():
			best = s
		}
	}
	return best
}

func runModel(flags *pflag.FlagSet, interactive bool, mode, output string, price, supply float64, s market.Series) error {
	dir := events.Surge
	schedDir := schedule.Buyback
	suffix := "_surges"
	schedSuffix := "_buyback"
	if mode == "liquidation" {
		dir = events.Selloff
		schedDir = schedule.Liquidation
		suffix = "_selloffs"
		schedSuffix = "_liquidation"
	}

	thresholdPct, _ := flags.GetFloat64("threshold")
	if thresholdPct == 0 && interactive {
		var err error
		if dir == events.Surge {
			thresholdPct, err = promptFloat("Minimum intraday surge percentage", 75)
		} else {
			thresholdPct, err = promptFloat("Maximum intraday selloff percentage", -50)
		}
		if err != nil {
			return err
		}
	}
	multiplier := thresholdMultiplier(dir, thresholdPct)

	evs, avg := events.Extract(s.Candles, supply, dir, multiplier)
	eventsPath := strings.Replace(output, "_data", suffix, 1)
	if err := csvout.WriteEvents(eventsPath, evs); err != nil {
		return err
	}
	fmt.Printf("Event snippets written to %s\n", eventsPath)
	fmt.Printf("Average PH percentage: %g\n", avg)

	finalPrice, _ := flags.GetFloat64("final-price")
	qPct, _ := flags.GetFloat64("q-pct")
	stepPct, _ := flags.GetFloat64("step-pct")
	if interactive {
		var err error
		if finalPrice == 0 {
			if finalPrice, err = promptRequiredFloat("Final desired price for " + mode); err != nil {
				return err
			}
		}
		if qPct == 0 {
			if qPct, err = promptFloat("Increase in sell rate q percentage", 0); err != nil {
				return err
			}
		}
		if stepPct, err = promptFloat("Price step percentage for schedule", stepPct); err != nil {
			return err
		}
	}
	if finalPrice == 0 {
		return nil // nothing to model against
	}

	steps, err := schedule.Build(schedDir, schedule.Params{
		Price:        price,
		Supply:       supply,
		PHPercentage: avg,
		FinalPrice:   finalPrice,
		StepPct:      stepPct,
		QPct:         qPct,
	})
	if err != nil {
		return err
	}

	schedPath := strings.Replace(output, "_data", schedSuffix, 1)
	if err := csvout.WriteSchedule(schedPath, steps); err != nil {
		return err
	}
	fmt.Printf("%s model written to %s\n", strings.ToUpper(mode[:1])+mode[1:], schedPath)

	if schedDir == schedule.Buyback && len(steps) >= 2 {
		chartPath := strings.Replace(schedPath, ".csv", ".png", 1)
		if err := chart.WriteSchedulePNG(chartPath, strings.ToUpper(mode), steps); err != nil {
			return err
		}
		fmt.Printf("Buyback chart written to %s\n", chartPath)
	}
	return nil
}

// thresholdMultiplier converts a signed percentage into the event threshold:
// +75 → 1.75 for surges, -50 (or 50) → 0.5 for selloffs. Zero falls back to
// the direction's default.
func thresholdMultiplier(dir events.Direction, pct float64) float64 {
	if pct == 0 {
		return events.DefaultThreshold(dir)
	}
	if dir == events.Surge {
		if pct < 0 {
			pct = -pct
		}
		return 1 + pct/100
	}
	if pct > 0 {
		pct = -pct
	}
	return 1 + pct/100
}
