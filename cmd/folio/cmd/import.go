package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivstorm/folio/internal/models"
)

var (
	importName       string
	importDeals      string
	importOperations string
	importPayments   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import broker-report CSV exports into a named portfolio",
	Long: `Import parses the deals, cash-ledger and payout sheets exported
from a broker report and stores them as a named portfolio.

Example:
  folio import --name main --deals deals.csv --operations operations.csv --payments payments.csv`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "portfolio name (required)")
	importCmd.Flags().StringVar(&importDeals, "deals", "", "deals sheet CSV (required)")
	importCmd.Flags().StringVar(&importOperations, "operations", "", "cash-ledger sheet CSV (required)")
	importCmd.Flags().StringVar(&importPayments, "payments", "", "payout sheet CSV")
	importCmd.MarkFlagRequired("name")
	importCmd.MarkFlagRequired("deals")
	importCmd.MarkFlagRequired("operations")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	deals, err := a.Importer.Deals(importDeals)
	if err != nil {
		return err
	}
	operations, err := a.Importer.Operations(importOperations)
	if err != nil {
		return err
	}
	var payments []models.Payment
	if importPayments != "" {
		payments, err = a.Importer.Payments(importPayments)
		if err != nil {
			return err
		}
	}

	portfolio := &models.StoredPortfolio{
		Name:       importName,
		Deals:      deals,
		Operations: operations,
		Payments:   payments,
	}
	if err := a.Store.Save(cmd.Context(), portfolio); err != nil {
		return err
	}

	fmt.Printf("Imported portfolio %q: %d deals, %d operations, %d payments\n",
		importName, len(deals), len(operations), len(payments))
	return nil
}
