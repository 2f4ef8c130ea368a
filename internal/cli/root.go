// Package cli holds the niblet command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "niblet",
	Short: "Conversational calorie and weight tracker",
	Long: `niblet serves the calorie and weight tracking API, including the
rule-based chat that logs meals and weigh-ins from free text.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
