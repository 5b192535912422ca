package client

import (
	"context"
	"time"
)

// SetSleep replaces the backoff sleep function for tests.
func (c *Client) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	c.sleep = fn
}

// BuildURL exposes URL construction for tests.
var BuildURL = buildURL

// ParseRateHeaders exposes header parsing for tests.
var ParseRateHeaders = parseRateHeaders
