package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/secretguard/internal/audit"
	"github.com/ppiankov/secretguard/internal/config"
)

var (
	auditConfig string
	tailLines   int
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.PersistentFlags().StringVar(&auditConfig, "config", "", "Path to config YAML")
	auditCmd.AddCommand(auditTailCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditFollowCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent records to show")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for inspecting the append-only JSONL audit log.",
}

var auditTailCmd = &cobra.Command{
	Use:   "tail [path]",
	Short: "Show recent audit records",
	Long:  "Pretty-prints the last N records. A trailing partial line from a\ncrash mid-write is ignored.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditTail,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Check that every log line is an independently parseable record",
	Long:  "Walks the JSONL audit log and reports the first malformed record.\nExits 0 if intact, 1 if corrupted.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditVerify,
}

var auditFollowCmd = &cobra.Command{
	Use:   "follow [path]",
	Short: "Stream records as they are appended",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditFollow,
}

// auditLogPath resolves the log location: positional argument first,
// then the configured default.
func auditLogPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := config.Load(auditConfig)
	if err != nil {
		return "", err
	}
	return cfg.AuditLog, nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	path, err := auditLogPath(args)
	if err != nil {
		return err
	}

	entries, err := audit.Tail(path, tailLines)
	if err != nil {
		return err
	}
	for _, e := range entries {
		out, _ := json.MarshalIndent(e, "", "  ")
		fmt.Println(string(out))
	}
	return nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	path, err := auditLogPath(args)
	if err != nil {
		return err
	}

	res := audit.Verify(path)
	if res.Valid {
		if res.Partial {
			fmt.Printf("OK: %d records verified (trailing partial line ignored)\n", res.Records)
		} else {
			fmt.Printf("OK: %d records verified\n", res.Records)
		}
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", res.ErrorLine, res.Error)
	os.Exit(1)
	return nil
}

func runAuditFollow(cmd *cobra.Command, args []string) error {
	path, err := auditLogPath(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "following %s (Ctrl+C to stop)\n", path)
	return audit.Follow(ctx, path, func(e audit.Entry) {
		line, _ := json.Marshal(e)
		fmt.Println(string(line))
	})
}
