// Package feed adapts external market-data sources into the internal market
// event shapes consumed by the aggregator. Exchange protocol byte decoding is
// intentionally left to the vendor client libraries; this package only maps
// already-decoded vendor structs onto market.Quote/Trade/MarketDepth/FundingRate.
package feed

import (
	"context"

	"github.com/archon-quant/synthalpha/internal/market"
)

// Source is an external feed boundary (§6): a single exchange connection
// that pushes normalized market events until ctx is cancelled or a
// non-recoverable error occurs.
type Source interface {
	// Name is the exchange tag used as the "exchange" argument in the
	// aggregator's Ingest* calls.
	Name() string
	// Run connects and streams events into sink until ctx is done or the
	// connection fails unrecoverably. Run is expected to retry transient
	// disconnects internally and only return when it gives up.
	Run(ctx context.Context, sink Sink) error
}

// Sink receives normalized events from a Source. *market.Aggregator
// satisfies this interface for the Ingest* methods it shares with Sink.
type Sink interface {
	IngestQuote(exchange string, q market.Quote) error
	IngestTrade(exchange string, t market.Trade) error
	IngestDepth(exchange string, d market.MarketDepth)
	IngestFundingRate(f market.FundingRate)
}
