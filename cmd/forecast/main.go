package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "v0.3.0"

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "forecast",
		Short:         "Monthly crypto price forecasting with chronological backtests",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "Path to the YAML config")
	rootCmd.PersistentFlags().StringVar(&opts.symbol, "symbol", "", "Asset symbol, overrides pipeline.symbol")
	rootCmd.PersistentFlags().StringVar(&opts.market, "market", "", "Quote market, overrides pipeline.market")
	rootCmd.PersistentFlags().StringVar(&opts.model, "model", "", "Model type, overrides pipeline.model_type")
	rootCmd.PersistentFlags().StringVar(&opts.provider, "provider", "", "Data provider (alphavantage|yahoo|csv|mock)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch data, backtest, forecast and export once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	runCmd.Flags().BoolVar(&opts.noExport, "no-export", false, "Skip writing CSV/JSON artifacts")
	runCmd.Flags().BoolVar(&opts.notify, "notify", false, "Send the run summary to Telegram")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the forecast on a cron schedule with metrics and Telegram commands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	serveCmd.Flags().BoolVar(&opts.runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "Run the forecast immediately")

	rootCmd.AddCommand(runCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		log.Error().Err(err).Msg("forecast failed")
		os.Exit(1)
	}
}
