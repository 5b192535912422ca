package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default config file",
	Long:  `Generate a default apiward configuration file at ~/.config/apiward/config.yaml`,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringP("output", "o", "", "output path (default: ~/.config/apiward/config.yaml)")
	configInitCmd.Flags().Bool("force", false, "overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}

	if output == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		output = filepath.Join(home, ".config", "apiward", defaultConfigFile)
	}

	if _, err := os.Stat(output); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", output)
	}

	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(output, []byte(defaultConfigTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("✓ Config file created at %s\n", output)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set the api.base_url for your API")
	fmt.Println("  2. Export APIWARD_API_KEY or set api.key for the authenticated tier")
	fmt.Println("  3. Validate with: apiward config validate")
	fmt.Println("  4. Fetch something: apiward fetch /v1/items")

	return nil
}

const defaultConfigTemplate = `# apiward configuration

api:
  # Base URL of the upstream JSON API.
  base_url: "https://api.example.com"
  # Credential resolution: this value, then the APIWARD_API_KEY env var.
  # ${VAR} references are expanded at load time.
  key: "${APIWARD_API_KEY}"
  # Send the credential as a header (key_header) or query param (key_param).
  key_header: "X-Api-Key"
  # Per-request HTTP timeout.
  timeout_ms: 30000

rate_limit:
  # Published tiers: unauthenticated (40 rpm) or authenticated (240 rpm).
  tier: "authenticated"
  # Uncomment to override the tier preset.
  # requests_per_minute: 120
  # burst: 120
  # How long a request may wait for a permit before failing locally.
  acquire_timeout_ms: 30000

retry:
  max_attempts: 5
  base_delay_ms: 1000
  max_delay_ms: 60000

breaker:
  enabled: true
  failure_threshold: 5
  open_duration_ms: 30000

cache:
  # disk (persistent, integrity checked), memory, or disabled.
  mode: "disk"
  # Entry lifetime. Default is one week; negative disables expiry.
  ttl_seconds: 604800
  # disk:
  #   # Defaults to the user cache directory when unset.
  #   dir: "/var/cache/apiward"

logging:
  level: "info"
  format: "console"
  output: "stderr"
`
