package market

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/archon-quant/synthalpha/internal/config"
)

const maxTradeHistory = 200

// quoteKey identifies a single-exchange stream for sequencing purposes.
type quoteKey struct {
	exchange string
	id       InstrumentId
}

// Aggregator merges per-exchange Quote/Trade/MarketDepth/FundingRate events
// into unified, immutable MarketSnapshot values (§4.1). It is the one
// place in the core that tolerates mutation: everything it stores is raw,
// per-exchange state; what it hands callers via Publish is a frozen copy.
type Aggregator struct {
	mu sync.Mutex

	staleness time.Duration
	now       func() time.Time
	log       zerolog.Logger

	lastQuoteSeq map[quoteKey]uint64
	lastTradeSeq map[quoteKey]uint64

	quotes  map[InstrumentId]map[string]Quote
	trades  map[InstrumentId][]Trade
	depth   map[InstrumentId]map[string]MarketDepth
	funding map[InstrumentId]FundingRate
}

// Option configures an Aggregator at construction time.
type Option func(*Aggregator)

// WithClock overrides the aggregator's time source; intended for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator returns an Aggregator with the given staleness budget
// (§4.1; pass config.FeedConfig.StalenessBudget in production).
func NewAggregator(staleness time.Duration, opts ...Option) *Aggregator {
	a := &Aggregator{
		staleness:    staleness,
		now:          time.Now,
		log:          config.NewLogger("market.aggregator"),
		lastQuoteSeq: map[quoteKey]uint64{},
		lastTradeSeq: map[quoteKey]uint64{},
		quotes:       map[InstrumentId]map[string]Quote{},
		trades:       map[InstrumentId][]Trade{},
		depth:        map[InstrumentId]map[string]MarketDepth{},
		funding:      map[InstrumentId]FundingRate{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IngestQuote applies a single-exchange quote update. Sequence numbers at
// or below the last seen value are dropped silently (the core merge
// policy); a forward jump of more than one returns a *SequenceGapError as
// a non-fatal warning — the event is still applied.
func (a *Aggregator) IngestQuote(exchange string, q Quote) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := quoteKey{exchange: exchange, id: q.InstrumentID}
	last, seen := a.lastQuoteSeq[key]
	if seen && q.SequenceNumber <= last {
		a.log.Debug().Str("exchange", exchange).Str("instrument", string(q.InstrumentID)).
			Uint64("seq", q.SequenceNumber).Uint64("last", last).Msg("dropping stale-sequence quote")
		return nil
	}

	byExchange, ok := a.quotes[q.InstrumentID]
	if !ok {
		byExchange = map[string]Quote{}
		a.quotes[q.InstrumentID] = byExchange
	}
	byExchange[exchange] = q
	a.lastQuoteSeq[key] = q.SequenceNumber

	if seen && q.SequenceNumber > last+1 {
		return &SequenceGapError{Exchange: exchange, InstrumentID: q.InstrumentID, Previous: last, Got: q.SequenceNumber}
	}
	return nil
}

// IngestTrade applies a trade report, appending it to the instrument's
// bounded recent-trades history (capacity maxTradeHistory, FIFO).
func (a *Aggregator) IngestTrade(exchange string, t Trade) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := quoteKey{exchange: exchange, id: t.InstrumentID}
	last, seen := a.lastTradeSeq[key]
	if seen && t.SequenceNumber <= last {
		return nil
	}

	hist := a.trades[t.InstrumentID]
	hist = append(hist, t)
	if len(hist) > maxTradeHistory {
		hist = hist[len(hist)-maxTradeHistory:]
	}
	a.trades[t.InstrumentID] = hist
	a.lastTradeSeq[key] = t.SequenceNumber

	if seen && t.SequenceNumber > last+1 {
		return &SequenceGapError{Exchange: exchange, InstrumentID: t.InstrumentID, Previous: last, Got: t.SequenceNumber}
	}
	return nil
}

// IngestDepth replaces the per-exchange order-book snapshot for an
// instrument. Depth carries no sequence number; the latest timestamp wins.
func (a *Aggregator) IngestDepth(exchange string, d MarketDepth) {
	a.mu.Lock()
	defer a.mu.Unlock()

	byExchange, ok := a.depth[d.InstrumentID]
	if !ok {
		byExchange = map[string]MarketDepth{}
		a.depth[d.InstrumentID] = byExchange
	}
	if existing, ok := byExchange[exchange]; ok && d.Timestamp.Before(existing.Timestamp) {
		return
	}
	byExchange[exchange] = d
}

// IngestFundingRate records the latest funding rate observation.
func (a *Aggregator) IngestFundingRate(f FundingRate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.funding[f.InstrumentID]; ok && f.Timestamp.Before(existing.Timestamp) {
		return
	}
	a.funding[f.InstrumentID] = f
}

func (a *Aggregator) isStale(ts time.Time) bool {
	return a.now().Sub(ts) > a.staleness
}

// bestQuote picks the tightest-spread quote among candidates, breaking ties
// by the newest timestamp.
func bestQuote(candidates map[string]Quote) (Quote, bool) {
	var best Quote
	var found bool
	for _, q := range candidates {
		if !found {
			best, found = q, true
			continue
		}
		if q.SpreadRatio() < best.SpreadRatio() ||
			(q.SpreadRatio() == best.SpreadRatio() && q.Timestamp.After(best.Timestamp)) {
			best = q
		}
	}
	return best, found
}

// Publish builds and returns a new immutable MarketSnapshot from the
// aggregator's current raw state. Stale quotes and depth are excluded from
// the snapshot (but remain queryable via RawQuote) per §4.1. If every known
// instrument is stale, Publish returns ErrFeedStale.
func (a *Aggregator) Publish() (MarketSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := NewEmptySnapshot()
	var maxTS time.Time
	hadAnyRawQuote := len(a.quotes) > 0

	exchangeQuotes := map[InstrumentId]map[string]Quote{}
	for id, byExchange := range a.quotes {
		fresh := map[string]Quote{}
		for exch, q := range byExchange {
			if a.isStale(q.Timestamp) {
				continue
			}
			fresh[exch] = q
			if q.Timestamp.After(maxTS) {
				maxTS = q.Timestamp
			}
		}
		if len(fresh) == 0 {
			continue
		}
		exchangeQuotes[id] = fresh
		if best, ok := bestQuote(fresh); ok {
			snap.Quotes[id] = best
		}
	}

	for id, byExchange := range a.depth {
		for exch, d := range byExchange {
			if a.isStale(d.Timestamp) {
				continue
			}
			if d.Timestamp.After(maxTS) {
				maxTS = d.Timestamp
			}
			// Single best-liquidity depth per instrument: prefer the
			// exchange backing the selected best quote, else any fresh one.
			if _, already := snap.Depth[id]; !already {
				snap.Depth[id] = d
			} else if q, ok := snap.Quotes[id]; ok && q.Exchange == exch {
				snap.Depth[id] = d
			}
		}
	}

	for id, hist := range a.trades {
		trades := make([]Trade, len(hist))
		copy(trades, hist)
		snap.RecentTrades[id] = trades
	}
	for id, f := range a.funding {
		snap.FundingRates[id] = f
	}

	snap.SnapshotTime = maxTS
	snap.exchangeQuotes = exchangeQuotes

	if hadAnyRawQuote && len(snap.Quotes) == 0 {
		return snap, ErrFeedStale
	}
	return snap, nil
}

// RawQuote returns the latest stored quote for (exchange, instrument)
// regardless of staleness — stale quotes remain queryable even though
// Publish excludes them from detection.
func (a *Aggregator) RawQuote(exchange string, id InstrumentId) (Quote, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	byExchange, ok := a.quotes[id]
	if !ok {
		return Quote{}, false
	}
	q, ok := byExchange[exchange]
	return q, ok
}
