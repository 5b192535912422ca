package client

import (
	"sync/atomic"

	"github.com/apiward/apiward/internal/ratelimit"
)

// Stats is a point-in-time snapshot of client counters.
type Stats struct {
	TotalRequests      uint64          `json:"total_requests"`
	CacheHits          uint64          `json:"cache_hits"`
	CacheMisses        uint64          `json:"cache_misses"`
	NetworkCalls       uint64          `json:"network_calls"`
	Retries            uint64          `json:"retries"`
	Failures           uint64          `json:"failures"`
	RateLimitTimeouts  uint64          `json:"rate_limit_timeouts"`
	CacheWriteFailures uint64          `json:"cache_write_failures"`
	BreakerRejections  uint64          `json:"breaker_rejections"`
	BreakerState       string          `json:"breaker_state,omitempty"`
	Limiter            ratelimit.Stats `json:"limiter"`
}

type counters struct {
	totalRequests      atomic.Uint64
	cacheHits          atomic.Uint64
	cacheMisses        atomic.Uint64
	networkCalls       atomic.Uint64
	retries            atomic.Uint64
	failures           atomic.Uint64
	rateLimitTimeouts  atomic.Uint64
	cacheWriteFailures atomic.Uint64
	breakerRejections  atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		TotalRequests:      c.totalRequests.Load(),
		CacheHits:          c.cacheHits.Load(),
		CacheMisses:        c.cacheMisses.Load(),
		NetworkCalls:       c.networkCalls.Load(),
		Retries:            c.retries.Load(),
		Failures:           c.failures.Load(),
		RateLimitTimeouts:  c.rateLimitTimeouts.Load(),
		CacheWriteFailures: c.cacheWriteFailures.Load(),
		BreakerRejections:  c.breakerRejections.Load(),
	}
}
