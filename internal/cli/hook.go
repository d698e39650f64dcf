package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/secretguard/internal/config"
	"github.com/ppiankov/secretguard/internal/exceptions"
	"github.com/ppiankov/secretguard/internal/guard"
	"github.com/ppiankov/secretguard/internal/rules"
)

var hookConfig string

func init() {
	rootCmd.AddCommand(hookCmd)
	hookCmd.Flags().StringVar(&hookConfig, "config", "", "Path to config YAML (default: ~/.secretguard/config.yaml)")
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Evaluate one pre-tool-use request from stdin",
	Long: "Reads a single JSON payload of the form {\"tool_input\":{\"file_path\":...}}\n" +
		"from stdin, classifies the path, and exits 0 (allow) or 2 (block).\n" +
		"Blocked attempts are appended to the audit log.\n\n" +
		"Register as a PreToolUse hook so the caller halts blocked operations.",
	Run: runHook,
}

func runHook(cmd *cobra.Command, args []string) {
	// The payload is one structured document, buffered in full before
	// parsing; stdin is not a stream of events.
	payload, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "secretguard: read stdin: %v\n", err)
		os.Exit(guard.CodeBlock)
	}

	g, cleanup, err := buildGuard(hookConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "secretguard: %v\n", err)
		os.Exit(guard.CodeBlock)
	}
	defer cleanup()

	out := g.Run(payload)
	for _, w := range out.Warnings {
		fmt.Fprintf(os.Stderr, "secretguard: warning: %s\n", w)
	}
	if out.Message != "" {
		fmt.Fprintln(os.Stderr, out.Message)
	}
	cleanup()
	os.Exit(out.Code)
}

// buildGuard assembles a Guard from loaded configuration. The returned
// cleanup closes the exception store; it is safe to call twice.
func buildGuard(configPath string) (*guard.Guard, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	set, err := rules.Load(cfg.Rules)
	if err != nil {
		return nil, nil, err
	}

	gc := guard.Config{
		Rules:      set,
		AuditLog:   cfg.AuditLog,
		LogAllowed: cfg.LogAllowed,
	}

	cleanup := func() {}
	// A missing or unreadable exception store must not break the
	// decision path; the guard just runs without overrides.
	if cfg.ExceptionsDB != "" {
		if store, err := exceptions.Open(cfg.ExceptionsDB); err == nil {
			gc.Exceptions = store
			var closed bool
			cleanup = func() {
				if !closed {
					closed = true
					_ = store.Close()
				}
			}
		}
	}

	return guard.New(gc), cleanup, nil
}
