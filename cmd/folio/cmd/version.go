package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivstorm/folio/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("folio %s\n", common.GetFullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
