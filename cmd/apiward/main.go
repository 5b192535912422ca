// Package main is the entry point for apiward.
package main

import (
	"context"
	"os"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const (
	defaultConfigFile = "config.yaml"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "apiward",
	Short: "Resilient client for rate-limited JSON APIs",
	Long: `apiward fetches data from rate-limited JSON APIs without tripping their
limits. Requests are paced by a local token bucket, retried with jittered
exponential backoff, and cached on disk with integrity verification so
repeated fetches cost nothing.`,
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/apiward/"+defaultConfigFile+")")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
