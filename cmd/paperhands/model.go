package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/paperhands/internal/csvout"
)

// runModelFile re-runs the analytics over a token data file from a previous
// acquisition, without touching any venue.
func runModelFile(cmd *cobra.Command, args []string) error {
	path := args[0]
	flags := cmd.Flags()
	if debug, _ := flags.GetBool("debug"); debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	nonInteractive, _ := flags.GetBool("non-interactive")
	interactive := isTTY() && !nonInteractive

	info, series, err := csvout.ReadTokenData(path)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Str("venue", series.Venue).
		Int("candles", series.Len()).Msg("Loaded token data")

	price := info.PriceUSD
	if override, _ := flags.GetFloat64("price"); override > 0 {
		price = override
	}
	supply := info.CirculatingSupply
	if override, _ := flags.GetFloat64("supply"); override > 0 {
		supply = override
	}
	if price <= 0 || supply <= 0 {
		return fmt.Errorf("%s carries no price/supply block, pass --price and --supply", path)
	}

	mode, _ := flags.GetString("mode")
	if mode == "" {
		if !interactive {
			return fmt.Errorf("pass --mode when running non-interactively")
		}
		if mode, err = promptMode(); err != nil {
			return err
		}
	}
	if mode == "none" {
		return nil
	}

	if series.PriceOnly {
		log.Warn().Str("venue", series.Venue).
			Msg("Modeling on aggregator data: volumes are a price-only approximation")
	}
	return runModel(flags, interactive, mode, path, price, supply, series)
}
