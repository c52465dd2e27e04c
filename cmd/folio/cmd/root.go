package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ivstorm/folio/internal/app"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Portfolio valuation from broker-report exports",
	Long: `Folio imports Sberbank broker-report exports and values the
portfolio against MOEX ISS market data.

It provides tools for:
  - Importing deal, cash-ledger and payout sheets
  - Building point-in-time portfolio valuations
  - Computing FIFO deal returns and XIRR yields`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults to FOLIO_CONFIG, then folio.toml)")
}

// newApp initializes the application core for a CLI command.
func newApp() (*app.App, error) {
	return app.NewApp(cfgFile)
}
