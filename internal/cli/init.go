package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/secretguard/internal/config"
)

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap the secretguard configuration directory",
	Long: "Creates ~/.secretguard/ with a default config.yaml and rules.yaml.\n" +
		"Idempotent: existing files are left alone unless --force is given.",
	RunE: runInit,
}

const defaultConfigYAML = `# secretguard configuration
#
# audit_log is append-only JSONL; one record per blocked attempt.
# Set log_allowed: true to also record ALLOWED events.
audit_log: ~/.secretguard/audit.log
log_allowed: false
rules: ~/.secretguard/rules.yaml
exceptions_db: ~/.secretguard/exceptions.db
`

const defaultRulesYAML = `# Extra sensitive-path rules, merged over the builtin table.
# The builtin rules cannot be disabled. Each entry sets exactly one of
# suffix, contains, or regex.
rules: []
#  - suffix: ".kdbx"
#  - contains: "vault/"
#  - regex: "(^|/)token\\.txt$"
`

func runInit(cmd *cobra.Command, args []string) error {
	dir := config.Dir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var created []string

	configPath := filepath.Join(dir, "config.yaml")
	if wrote, err := writeIfMissing(configPath, defaultConfigYAML); err != nil {
		return err
	} else if wrote {
		created = append(created, configPath)
	}

	rulesPath := filepath.Join(dir, "rules.yaml")
	if wrote, err := writeIfMissing(rulesPath, defaultRulesYAML); err != nil {
		return err
	} else if wrote {
		created = append(created, rulesPath)
	}

	if len(created) == 0 {
		fmt.Printf("Nothing to do; configuration already present in %s\n", dir)
		return nil
	}
	for _, path := range created {
		fmt.Printf("Created %s\n", path)
	}
	fmt.Println("\nRegister the hook with your agent runner, e.g. for Claude Code:")
	fmt.Println(`  {"hooks":{"PreToolUse":[{"matcher":"Read|Write|Edit","hooks":[{"type":"command","command":"secretguard hook"}]}]}}`)
	return nil
}

// writeIfMissing writes content unless the file exists (or --force).
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
