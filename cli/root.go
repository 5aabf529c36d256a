// Package cli implements the loancalc command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "loancalc",
	Short: "Fixed-rate amortizing loan calculator",
	Long: `loancalc computes the periodic payment, totals and full amortization
schedule of a fixed-rate loan. Run it as an HTTP service with "serve" or
compute a single loan with "calculate".`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a TOML configuration file")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
