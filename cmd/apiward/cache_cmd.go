package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/apiward/apiward/cmd/apiward/di"
	"github.com/apiward/apiward/internal/cache"
	"github.com/apiward/apiward/internal/client"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache management commands",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE:  runCacheStats,
}

var cacheInspectCmd = &cobra.Command{
	Use:   "inspect <endpoint>",
	Short: "Print the cached response for an endpoint",
	Long: `Print the cached response for an endpoint without touching the network
or consuming a rate limit permit. Exits with an error when nothing valid
is cached.`,
	Args: cobra.ExactArgs(1),
	RunE: runCacheInspect,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove all cached entries",
	RunE:  runCachePurge,
}

func init() {
	cacheInspectCmd.Flags().StringArrayP("param", "p", nil, "query parameter as key=value (repeatable)")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheInspectCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

// withCache builds the container, resolves the cache, and runs fn with it.
func withCache(fn func(*cobra.Command, cache.Cache) error, cmd *cobra.Command) error {
	container, err := di.NewContainer(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	defer func() {
		if err := container.Shutdown(); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}()

	cacheSvc, err := di.Invoke[*di.CacheService](container)
	if err != nil {
		return err
	}

	return fn(cmd, cacheSvc.Cache)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	return withCache(func(cmd *cobra.Command, c cache.Cache) error {
		sp, ok := c.(cache.StatsProvider)
		if !ok {
			return fmt.Errorf("configured cache backend does not report statistics")
		}

		out, err := json.MarshalIndent(sp.Stats(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}, cmd)
}

func runCacheInspect(cmd *cobra.Command, args []string) error {
	rawParams, err := cmd.Flags().GetStringArray("param")
	if err != nil {
		return fmt.Errorf("failed to get param flag: %w", err)
	}
	params, err := parseParams(rawParams)
	if err != nil {
		return err
	}

	return withCache(func(cmd *cobra.Command, c cache.Cache) error {
		payload, err := c.Get(cmd.Context(), client.Key(args[0], params))
		if err != nil {
			return fmt.Errorf("no valid cached entry for %s: %w", args[0], err)
		}

		pretty := gjson.GetBytes(payload, "@pretty")
		if _, err := os.Stdout.WriteString(pretty.Raw); err != nil {
			return err
		}
		return nil
	}, cmd)
}

func runCachePurge(cmd *cobra.Command, _ []string) error {
	return withCache(func(cmd *cobra.Command, c cache.Cache) error {
		p, ok := c.(cache.Purger)
		if !ok {
			return fmt.Errorf("configured cache backend does not support purge")
		}

		removed, err := p.Purge(cmd.Context())
		if err != nil {
			return fmt.Errorf("purge failed: %w", err)
		}

		if removed > 0 {
			fmt.Printf("✓ Removed %d cached entries\n", removed)
		} else {
			fmt.Println("✓ Cache purged")
		}
		return nil
	}, cmd)
}
