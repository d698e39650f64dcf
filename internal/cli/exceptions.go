package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/secretguard/internal/config"
	"github.com/ppiankov/secretguard/internal/exceptions"
	"github.com/ppiankov/secretguard/internal/rules"
)

var (
	exceptionsConfig string
	addReason        string
	addTTL           time.Duration
)

func init() {
	rootCmd.AddCommand(exceptionsCmd)
	exceptionsCmd.PersistentFlags().StringVar(&exceptionsConfig, "config", "", "Path to config YAML")
	exceptionsCmd.AddCommand(exceptionsAddCmd)
	exceptionsCmd.AddCommand(exceptionsRemoveCmd)
	exceptionsCmd.AddCommand(exceptionsListCmd)
	exceptionsAddCmd.Flags().StringVar(&addReason, "reason", "", "Why this path is safe to allow")
	exceptionsAddCmd.Flags().DurationVar(&addTTL, "ttl", 0, "Expiry (e.g. 24h); 0 = never expires")
}

var exceptionsCmd = &cobra.Command{
	Use:   "exceptions",
	Short: "Manage approved path overrides",
	Long: "An exception allows a path that matches the sensitive rules.\n" +
		"Exception use is always audit-logged.",
}

var exceptionsAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Approve a path",
	Args:  cobra.ExactArgs(1),
	RunE:  runExceptionsAdd,
}

var exceptionsRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Revoke an approved path",
	Args:  cobra.ExactArgs(1),
	RunE:  runExceptionsRemove,
}

var exceptionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List approved paths",
	Args:  cobra.NoArgs,
	RunE:  runExceptionsList,
}

func openExceptionStore() (*exceptions.Store, error) {
	cfg, err := config.Load(exceptionsConfig)
	if err != nil {
		return nil, err
	}
	return exceptions.Open(cfg.ExceptionsDB)
}

func runExceptionsAdd(cmd *cobra.Command, args []string) error {
	store, err := openExceptionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Add(args[0], addReason, addTTL); err != nil {
		return err
	}
	norm := rules.Normalize(args[0])
	if addTTL > 0 {
		fmt.Printf("approved %s until %s\n", norm, time.Now().UTC().Add(addTTL).Format(time.RFC3339))
	} else {
		fmt.Printf("approved %s\n", norm)
	}
	return nil
}

func runExceptionsRemove(cmd *cobra.Command, args []string) error {
	store, err := openExceptionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.Remove(args[0])
	if err != nil {
		return err
	}
	if !removed {
		fmt.Printf("no exception on file for %s\n", rules.Normalize(args[0]))
		return nil
	}
	fmt.Printf("revoked %s\n", rules.Normalize(args[0]))
	return nil
}

func runExceptionsList(cmd *cobra.Command, args []string) error {
	store, err := openExceptionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.Prune(); err != nil {
		return err
	}

	list, err := store.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no exceptions on file")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tEXPIRES\tREASON")
	for _, e := range list {
		expires := "never"
		if e.ExpiresAt != nil {
			expires = e.ExpiresAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Path, expires, e.Reason)
	}
	return w.Flush()
}
