package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/apiward/apiward/cmd/apiward/di"
	"github.com/apiward/apiward/internal/client"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <endpoint> [endpoint...]",
	Short: "Fetch one or more API endpoints",
	Long: `Fetch endpoints through the rate limiter, retry policy, and cache.
Cached responses are served without a network call. Query parameters are
passed with repeated --param flags:

  apiward fetch /v1/items --param page=2 --param sort=name`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringArrayP("param", "p", nil, "query parameter as key=value (repeatable)")
	fetchCmd.Flags().StringP("query", "q", "", "extract a JSON path from the response")
	fetchCmd.Flags().Bool("no-cache", false, "invalidate the cached entry before fetching")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	rawParams, err := cmd.Flags().GetStringArray("param")
	if err != nil {
		return fmt.Errorf("failed to get param flag: %w", err)
	}
	query, err := cmd.Flags().GetString("query")
	if err != nil {
		return fmt.Errorf("failed to get query flag: %w", err)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}

	params, err := parseParams(rawParams)
	if err != nil {
		return err
	}

	container, err := di.NewContainer(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	defer func() {
		if err := container.Shutdown(); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}()

	clientSvc, err := di.Invoke[*di.ClientService](container)
	if err != nil {
		return err
	}

	// Hot-reload config edits between fetches in the same invocation.
	if watcherSvc, err := di.Invoke[*di.WatcherService](container); err == nil && watcherSvc.Watcher != nil {
		go func() {
			if err := watcherSvc.Watcher.Watch(cmd.Context()); err != nil {
				log.Error().Err(err).Msg("config watcher stopped")
			}
		}()
	}

	ctx := cmd.Context()
	for _, endpoint := range args {
		if noCache {
			if err := clientSvc.Client.Invalidate(ctx, endpoint, params); err != nil {
				log.Warn().Err(err).Str("endpoint", endpoint).Msg("cache invalidation failed")
			}
		}

		resp, err := clientSvc.Client.Request(ctx, endpoint, params)
		if err != nil {
			return describeFailure(endpoint, err)
		}

		payload := resp.Payload
		if query != "" {
			result := gjson.GetBytes(payload, query)
			if !result.Exists() {
				return fmt.Errorf("path %q not found in response from %s", query, endpoint)
			}
			payload = []byte(result.Raw)
		}

		if _, err := os.Stdout.Write(append(payload, '\n')); err != nil {
			return err
		}

		log.Debug().
			Str("endpoint", endpoint).
			Bool("from_cache", resp.FromCache).
			Int("attempts", resp.Attempts).
			Msg("fetch complete")
	}

	return nil
}

// parseParams converts repeated key=value flags into url.Values.
func parseParams(raw []string) (url.Values, error) {
	malformed := lo.Filter(raw, func(p string, _ int) bool {
		return !strings.Contains(p, "=")
	})
	if len(malformed) > 0 {
		return nil, fmt.Errorf("malformed --param %q, expected key=value", malformed[0])
	}

	params := url.Values{}
	for _, p := range raw {
		k, v, _ := strings.Cut(p, "=")
		if k == "" {
			return nil, fmt.Errorf("malformed --param %q, empty key", p)
		}
		params.Add(k, v)
	}
	return params, nil
}

// describeFailure maps client errors to actionable CLI messages.
func describeFailure(endpoint string, err error) error {
	var (
		statusErr    *client.StatusError
		exhaustedErr *client.RetryExhaustedError
	)

	switch {
	case errors.Is(err, client.ErrRateLimitTimeout):
		return fmt.Errorf("%s: local rate limit saturated, try again shortly: %w", endpoint, err)
	case errors.Is(err, client.ErrCircuitOpen):
		return fmt.Errorf("%s: upstream is failing, circuit open: %w", endpoint, err)
	case errors.As(err, &exhaustedErr):
		return fmt.Errorf("%s: gave up after %d attempts: %w", endpoint, exhaustedErr.Attempts, exhaustedErr.LastErr)
	case errors.As(err, &statusErr):
		return fmt.Errorf("%s: %w", endpoint, statusErr)
	default:
		return fmt.Errorf("%s: %w", endpoint, err)
	}
}
