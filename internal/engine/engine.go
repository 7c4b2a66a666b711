// Package engine composes the feed aggregator, pricing models, mispricing
// detectors, and arbitrage engine into the pipeline described in spec §4.4,
// driven by a tick loop over the aggregator's published snapshots.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/archon-quant/synthalpha/internal/arbitrage"
	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/metrics"
	"github.com/archon-quant/synthalpha/internal/mispricing"
	"github.com/archon-quant/synthalpha/internal/pricing"
	"github.com/archon-quant/synthalpha/internal/risk"
)

// Engine drives the §4.4 pipeline: on every tick it publishes a snapshot
// from the aggregator, refreshes every pricing model, fans the snapshot
// out to the detector composite, and feeds each emitted mispricing through
// the arbitrage engine.
type Engine struct {
	log zerolog.Logger

	aggregator *market.Aggregator
	models     []pricing.Model
	composite  *mispricing.Composite
	sizer      *risk.Sizer
	arb        *arbitrage.Engine
	counters   *metrics.Counters

	tickInterval time.Duration
	mailbox      *snapshotMailbox
}

// New returns an Engine. models is every pricing model that needs
// per-snapshot parameter refresh (§4.4 step 2, e.g. the funding-table and
// statistical models); sizer, if non-nil, also has its rolling price
// history refreshed each tick. composite fans each snapshot out to every
// detector it holds; arb owns opportunity construction, validation, and state.
func New(
	feedCfg config.FeedConfig,
	aggregator *market.Aggregator,
	models []pricing.Model,
	composite *mispricing.Composite,
	sizer *risk.Sizer,
	arb *arbitrage.Engine,
	counters *metrics.Counters,
) *Engine {
	return &Engine{
		log:          config.NewLogger("engine"),
		aggregator:   aggregator,
		models:       models,
		composite:    composite,
		sizer:        sizer,
		arb:          arb,
		counters:     counters,
		tickInterval: feedCfg.TickInterval,
		mailbox:      newSnapshotMailbox(),
	}
}

// Run drives the pipeline until ctx is cancelled. One goroutine publishes
// aggregator snapshots into the latest-wins mailbox on every tick; another
// drains the mailbox and runs the pricing/detection/arbitrage pass (§4.4).
// Run returns once both goroutines have exited.
func (e *Engine) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return e.publishLoop(gctx) })
	group.Go(func() error { return e.processLoop(gctx) })
	return group.Wait()
}

// publishLoop calls Aggregator.Publish on every tick and hands the result
// to the mailbox. A FeedStale snapshot is counted and skipped rather than
// handed downstream; the pipeline simply waits for the next tick.
func (e *Engine) publishLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap, err := e.aggregator.Publish()
			if err != nil {
				if e.counters != nil {
					e.counters.FeedStaleEvents.Inc()
				}
				e.log.Warn().Err(err).Msg("feed stale, skipping tick")
				continue
			}
			e.mailbox.put(snap)
		}
	}
}

// processLoop drains the mailbox and runs the pipeline pass on every
// snapshot it receives (§5: "only the newest undelivered snapshot per
// consumer is retained").
func (e *Engine) processLoop(ctx context.Context) error {
	for {
		snap, ok := e.mailbox.get(ctx.Done())
		if !ok {
			return ctx.Err()
		}
		e.processSnapshot(snap)
	}
}

// processSnapshot runs the five pipeline steps of §4.4 against one
// snapshot.
func (e *Engine) processSnapshot(snap market.MarketSnapshot) {
	for _, m := range e.models {
		m.UpdateParameters(snap)
	}
	if e.sizer != nil {
		e.sizer.UpdateMarketData(snap)
	}

	e.composite.UpdateMarketData(snap)
	for _, mispriced := range e.composite.DetectOpportunities() {
		if e.counters != nil {
			e.counters.MispricingsDetected.WithLabelValues(string(mispriced.Type)).Inc()
		}

		if _, err := e.arb.ProcessMispricing(mispriced, snap); err != nil {
			e.recordProcessFailure(mispriced, err)
			continue
		}
		if e.counters != nil {
			e.counters.OpportunitiesCreated.Inc()
		}
	}

	expired := e.arb.SweepExpired(snap.SnapshotTime)
	if e.counters != nil {
		for range expired {
			e.counters.OpportunitiesExpired.Inc()
		}
	}
}

func (e *Engine) recordProcessFailure(mispriced mispricing.MispricingOpportunity, err error) {
	var valErr *arbitrage.ValidationFailureError
	check := "sizing"
	if errors.As(err, &valErr) {
		check = string(valErr.Kind)
	}
	if e.counters != nil {
		e.counters.ValidationFailures.WithLabelValues(check).Inc()
	}
	e.log.Debug().Err(err).Str("target", string(mispriced.Target)).Str("check", check).
		Msg("opportunity not promoted")
}
