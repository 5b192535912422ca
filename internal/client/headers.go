package client

import (
	"net/http"
	"strconv"
	"time"

	"github.com/apiward/apiward/internal/ratelimit"
)

// Standard rate limit advisory headers.
const (
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
)

// parseRateHeaders extracts the server's rate limit advisory from response
// headers. Returns false when the limit header is absent or unparseable.
// Remaining defaults to the limit and reset to zero when missing, so a
// partial advisory still carries the fields the server did send.
func parseRateHeaders(h http.Header, now time.Time) (ratelimit.Snapshot, bool) {
	limitStr := h.Get(headerRateLimit)
	if limitStr == "" {
		return ratelimit.Snapshot{}, false
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return ratelimit.Snapshot{}, false
	}

	snap := ratelimit.Snapshot{
		Limit:      limit,
		Remaining:  limit,
		ObservedAt: now,
	}

	if remStr := h.Get(headerRateRemaining); remStr != "" {
		if rem, err := strconv.Atoi(remStr); err == nil && rem >= 0 {
			snap.Remaining = rem
		}
	}

	if resetStr := h.Get(headerRateReset); resetStr != "" {
		if epoch, err := strconv.ParseInt(resetStr, 10, 64); err == nil && epoch > 0 {
			snap.Reset = time.Unix(epoch, 0)
		}
	}

	return snap, true
}
