package market

import (
	"errors"
	"time"
)

// Sentinel errors for the kinds enumerated in §7 that originate in this
// package. FeedStale and SequenceGap are produced by the aggregator; the
// other kinds are declared in the downstream packages that own them.
var (
	// ErrFeedStale is returned when every known instrument exceeds the
	// staleness budget at snapshot-publish time.
	ErrFeedStale = errors.New("market: all known instruments are stale")
)

// SequenceGapError is a non-fatal warning raised when a stream's
// sequence_number jumps by more than one. The event is still processed.
type SequenceGapError struct {
	Exchange     string
	InstrumentID InstrumentId
	Previous     uint64
	Got          uint64
}

func (e *SequenceGapError) Error() string {
	return "market: sequence gap on " + e.Exchange + "/" + string(e.InstrumentID)
}

// MarketSnapshot is a point-in-time, immutable composite view of all
// instruments known to the aggregator at the moment of publication (§3).
// Once published, a snapshot is never mutated — a new one is published in
// its place.
type MarketSnapshot struct {
	Quotes       map[InstrumentId]Quote
	RecentTrades map[InstrumentId][]Trade
	Depth        map[InstrumentId]MarketDepth
	FundingRates map[InstrumentId]FundingRate
	SnapshotTime time.Time

	// exchangeQuotes holds the full per-exchange quote map behind the
	// single "best" quote exposed in Quotes, for cross-exchange detectors.
	// Only non-stale quotes are present.
	exchangeQuotes map[InstrumentId]map[string]Quote
}

// ExchangeQuotes returns the per-exchange quote map for instrument id, used
// by cross-exchange detectors (§4.3). The returned map is a defensive copy.
func (s MarketSnapshot) ExchangeQuotes(id InstrumentId) map[string]Quote {
	src := s.exchangeQuotes[id]
	out := make(map[string]Quote, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// NewEmptySnapshot returns a snapshot with initialized, empty maps.
func NewEmptySnapshot() MarketSnapshot {
	return MarketSnapshot{
		Quotes:       map[InstrumentId]Quote{},
		RecentTrades: map[InstrumentId][]Trade{},
		Depth:        map[InstrumentId]MarketDepth{},
		FundingRates: map[InstrumentId]FundingRate{},
	}
}

// Quote returns the instrument's quote and whether it was present.
func (s MarketSnapshot) Quote(id InstrumentId) (Quote, bool) {
	q, ok := s.Quotes[id]
	return q, ok
}

// Clone returns a shallow copy safe for a caller to hold independently of
// future aggregator publications (maps are copied one level deep; the
// individual structs within are already immutable values).
func (s MarketSnapshot) Clone() MarketSnapshot {
	c := NewEmptySnapshot()
	for k, v := range s.Quotes {
		c.Quotes[k] = v
	}
	for k, v := range s.RecentTrades {
		trades := make([]Trade, len(v))
		copy(trades, v)
		c.RecentTrades[k] = trades
	}
	for k, v := range s.Depth {
		c.Depth[k] = v
	}
	for k, v := range s.FundingRates {
		c.FundingRates[k] = v
	}
	c.exchangeQuotes = make(map[InstrumentId]map[string]Quote, len(s.exchangeQuotes))
	for k := range s.exchangeQuotes {
		c.exchangeQuotes[k] = s.ExchangeQuotes(k)
	}
	c.SnapshotTime = s.SnapshotTime
	return c
}
