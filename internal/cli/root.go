package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "secretguard",
	Short: "Pre-execution guard for sensitive file access",
	Long: "Inspects proposed file operations before an agent runs them and blocks\n" +
		"access to credentials, secrets, and private key material.\n" +
		"Exit code 0 allows the operation, 2 blocks it.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
