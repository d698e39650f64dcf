package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/secretguard/internal/guard"
)

var (
	checkConfig string
	checkFormat string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkConfig, "config", "", "Path to config YAML")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
}

var checkCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Classify a path without running anything",
	Long: "Dry-run classification of a single path against the sensitive-path\n" +
		"rules and exception store. Nothing is audited.\n" +
		"Exits 0 if the path would be allowed, 2 if it would be blocked.",
	Args: cobra.ExactArgs(1),
	Run:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) {
	g, cleanup, err := buildGuard(checkConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "secretguard: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	dec := g.Check(args[0])

	switch checkFormat {
	case "json":
		out, _ := json.MarshalIndent(map[string]any{
			"path":    args[0],
			"blocked": dec.Blocked,
			"reason":  dec.Reason,
		}, "", "  ")
		fmt.Println(string(out))
	default:
		if dec.Blocked {
			fmt.Printf("BLOCKED  %s\n         %s\n", args[0], dec.Reason)
		} else {
			fmt.Printf("allowed  %s\n", args[0])
		}
	}

	cleanup()
	if dec.Blocked {
		os.Exit(guard.CodeBlock)
	}
}
