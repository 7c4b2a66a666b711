package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/archon-quant/synthalpha/internal/config"
)

// Circuit breaker states exposed on the feed_circuit_breaker_state gauge.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

// Default per-exchange breaker thresholds, one class for every feed source
// rather than the fixed exchange/llm/database split of a request-serving
// backend: a feed connection either streams or it doesn't.
const (
	MinRequests     = 5
	FailureRatio    = 0.6
	OpenTimeout     = 30 * time.Second
	HalfOpenMaxReqs = 3
	CountInterval   = 10 * time.Second
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "feed_circuit_breaker_state",
		Help: "Per-exchange feed circuit breaker state (0=closed, 1=open, 2=half_open)",
	}, []string{"exchange"})
	breakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_circuit_breaker_requests_total",
		Help: "Total connection attempts through a per-exchange feed circuit breaker",
	}, []string{"exchange", "result"})
)

// ResilientSource wraps a Source with a per-exchange gobreaker.CircuitBreaker
// so a misbehaving exchange connection is tripped out of the aggregator's
// input set instead of repeatedly stalling Run.
type ResilientSource struct {
	inner   Source
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewResilientSource wraps src with circuit-breaking using the package
// defaults.
func NewResilientSource(src Source) *ResilientSource {
	name := src.Name()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: HalfOpenMaxReqs,
		Interval:    CountInterval,
		Timeout:     OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= FailureRatio
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &ResilientSource{inner: src, breaker: breaker, log: config.NewLogger("feed.resilience")}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

func (r *ResilientSource) Name() string { return r.inner.Name() }

// Run invokes the wrapped Source through the circuit breaker. An open
// circuit returns immediately with gobreaker.ErrOpenState rather than
// attempting to reconnect.
func (r *ResilientSource) Run(ctx context.Context, sink Sink) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		runErr := r.inner.Run(ctx, sink)
		return nil, runErr
	})
	result := "success"
	if err != nil {
		result = "failure"
		r.log.Warn().Str("exchange", r.Name()).Err(err).Msg("feed source run failed")
	}
	breakerRequests.WithLabelValues(r.Name(), result).Inc()
	if err != nil {
		return fmt.Errorf("feed: %s: %w", r.Name(), err)
	}
	return nil
}
