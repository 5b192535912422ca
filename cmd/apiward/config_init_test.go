package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/apiward/apiward/internal/config"
)

// newMockInitCmd creates a mock cobra.Command with the output and force flags
// pre-registered, matching the flags used by the init command.
func newMockInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "init",
	}
	cmd.Flags().StringP("output", "o", "", "output path")
	cmd.Flags().Bool("force", false, "overwrite existing")
	return cmd
}

func TestRunConfigInitExplicitPath(t *testing.T) {
	output := filepath.Join(t.TempDir(), "config.yaml")

	cmd := newMockInitCmd()
	if err := cmd.Flags().Set("output", output); err != nil {
		t.Fatal(err)
	}

	if err := runConfigInit(cmd, nil); err != nil {
		t.Fatalf("runConfigInit failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if !strings.Contains(string(data), "base_url") {
		t.Error("generated config missing api section")
	}

	// The generated template must load and validate.
	cfg, err := config.Load(output)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if _, err := cfg.RateLimit.EffectiveRPM(); err != nil {
		t.Errorf("generated config has no usable rate limit: %v", err)
	}
}

func TestRunConfigInitRefusesOverwrite(t *testing.T) {
	output := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(output, []byte("existing: content"), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := newMockInitCmd()
	if err := cmd.Flags().Set("output", output); err != nil {
		t.Fatal(err)
	}

	err := runConfigInit(cmd, nil)
	if err == nil {
		t.Fatal("expected error for existing config file")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error = %v, want mention of existing file", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "existing: content" {
		t.Error("existing config was overwritten without --force")
	}
}

func TestRunConfigInitForceOverwrites(t *testing.T) {
	output := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(output, []byte("existing: content"), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := newMockInitCmd()
	if err := cmd.Flags().Set("output", output); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("force", "true"); err != nil {
		t.Fatal(err)
	}

	if err := runConfigInit(cmd, nil); err != nil {
		t.Fatalf("runConfigInit failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == "existing: content" {
		t.Error("config not overwritten with --force")
	}
}
