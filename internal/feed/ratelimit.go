package feed

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiters holds one token-bucket limiter per exchange, mirroring the
// reference's per-exchange REST throttling but scoped to ingest events
// rather than outbound order calls.
type RateLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	default_ rate.Limit
	burst    int
}

// NewRateLimiters returns a RateLimiters using defaultPerSec as the fallback
// rate for any exchange not given an explicit entry in perExchange.
func NewRateLimiters(defaultPerSec float64, burst int, perExchange map[string]float64) *RateLimiters {
	rl := &RateLimiters{
		limiters: make(map[string]*rate.Limiter, len(perExchange)),
		default_: rate.Limit(defaultPerSec),
		burst:    burst,
	}
	for exchange, perSec := range perExchange {
		rl.limiters[exchange] = rate.NewLimiter(rate.Limit(perSec), burst)
	}
	return rl
}

func (rl *RateLimiters) limiterFor(exchange string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[exchange]
	if !ok {
		l = rate.NewLimiter(rl.default_, rl.burst)
		rl.limiters[exchange] = l
	}
	return l
}

// Wait blocks until exchange's limiter admits one event, or ctx is done.
func (rl *RateLimiters) Wait(ctx context.Context, exchange string) error {
	if err := rl.limiterFor(exchange).Wait(ctx); err != nil {
		return fmt.Errorf("feed: rate limit wait for %s: %w", exchange, err)
	}
	return nil
}
