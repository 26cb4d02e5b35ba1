package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "paperhands"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Model paper-hands sell pressure from exchange OHLCV history",
		Version: version,
		Long: `paperhands pulls a token's daily OHLCV history from whichever public
exchange actually has usable data, extracts intraday surge/selloff events and
projects a buyback or liquidation schedule from the modeled panic-selling pool.`,
	}

	fetchCmd := &cobra.Command{
		Use:   "fetch <ticker>",
		Short: "Fetch token history and build the sell-pressure model",
		Args:  cobra.ExactArgs(1),
		RunE:  runFetch,
	}
	fetchCmd.Flags().String("venue", "", "Restrict acquisition to one venue id")
	fetchCmd.Flags().String("output", "", "Output CSV filename (default <TICKER>_data.csv)")
	fetchCmd.Flags().String("config", "", "Path to YAML config overriding defaults")
	fetchCmd.Flags().Bool("debug", false, "Enable debug logging")
	fetchCmd.Flags().Bool("non-interactive", false, "Never prompt; use flags and defaults")
	fetchCmd.Flags().String("mode", "", "Model mode: buyback, liquidation or none")
	fetchCmd.Flags().Float64("threshold", 0, "Intraday move percentage qualifying an event (default 75 surge, 50 selloff)")
	fetchCmd.Flags().Float64("final-price", 0, "Target price terminating the schedule")
	fetchCmd.Flags().Float64("q-pct", 0, "Sell-rate growth percentage per step")
	fetchCmd.Flags().Float64("step-pct", 5, "Price step percentage per schedule row")
	fetchCmd.Flags().Float64("supply", 0, "Circulating supply override when the aggregator reports none")
	fetchCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")

	modelCmd := &cobra.Command{
		Use:   "model <data.csv>",
		Short: "Re-run the sell-pressure model over an existing token data file",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelFile,
	}
	modelCmd.Flags().Bool("debug", false, "Enable debug logging")
	modelCmd.Flags().Bool("non-interactive", false, "Never prompt; use flags and defaults")
	modelCmd.Flags().String("mode", "", "Model mode: buyback, liquidation or none")
	modelCmd.Flags().Float64("threshold", 0, "Intraday move percentage qualifying an event (default 75 surge, 50 selloff)")
	modelCmd.Flags().Float64("final-price", 0, "Target price terminating the schedule")
	modelCmd.Flags().Float64("q-pct", 0, "Sell-rate growth percentage per step")
	modelCmd.Flags().Float64("step-pct", 5, "Price step percentage per schedule row")
	modelCmd.Flags().Float64("price", 0, "Current price override when the data file lacks one")
	modelCmd.Flags().Float64("supply", 0, "Circulating supply override when the data file lacks one")

	rootCmd.AddCommand(fetchCmd, modelCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
