package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var buildDate string

var buildCmd = &cobra.Command{
	Use:   "build <name>",
	Short: "Value a stored portfolio",
	Long: `Build values the named portfolio against current MOEX ISS market
data and prints the snapshot as JSON. With --date the valuation is
reconstructed as of that day using historical closing prices.

Example:
  folio build main --date 2021-08-27`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildDate, "date", "", "valuation date YYYY-MM-DD (default: now)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var asOf *time.Time
	if buildDate != "" {
		t, err := time.Parse("2006-01-02", buildDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", buildDate)
		}
		asOf = &t
	}

	snap, err := a.Portfolios.Build(cmd.Context(), args[0], asOf)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
