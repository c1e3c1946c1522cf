package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gstportal/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "gstportal",
	Short: "GST CA Portal - purchase invoice reconciliation for GSTR-3B filing",
	Long: `GST CA Portal is a command-line workbench for chartered accountants
managing GST input tax credit claims.

Upload purchase invoices to extract structured data with Gemini, compare
the extracted figures against government records, resolve mismatches,
and file the reconciled set for the GSTR-3B return.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("GST CA Portal executed")

		fmt.Println("Welcome to GST CA Portal!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
