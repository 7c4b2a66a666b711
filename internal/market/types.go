// Package market holds the shared market-data entities (§3 of the design
// spec) and the feed aggregator that merges per-exchange event streams into
// immutable MarketSnapshot values (§4.1).
package market

import "time"

// InstrumentType enumerates the instrument kinds named in §3.
type InstrumentType string

const (
	InstrumentSpot      InstrumentType = "spot"
	InstrumentForward   InstrumentType = "forward"
	InstrumentFuture    InstrumentType = "future"
	InstrumentPerpetual InstrumentType = "perpetual"
	InstrumentOption    InstrumentType = "option"
	InstrumentSwap      InstrumentType = "swap"
)

// InstrumentId is an opaque per-exchange instrument key. Combined with an
// exchange tag it is globally unique.
type InstrumentId string

// Instrument describes the static properties of a tradable instrument.
type Instrument struct {
	ID         InstrumentId   `json:"id"`
	Exchange   string         `json:"exchange"`
	Type       InstrumentType `json:"type"`
	TickSize   float64        `json:"tick_size"`
	MinSize    float64        `json:"min_size"`
	Expiry     *time.Time     `json:"expiry,omitempty"`
	Strike     float64        `json:"strike,omitempty"`
	IsCall     bool           `json:"is_call,omitempty"`
	Underlying InstrumentId   `json:"underlying,omitempty"`
}

// Quote is a best bid/ask snapshot for one instrument on one exchange.
//
// Invariant: AskPrice >= BidPrice whenever both are non-zero. SequenceNumber
// is monotonically non-decreasing per (exchange, instrument).
type Quote struct {
	InstrumentID   InstrumentId `json:"instrument_id"`
	Exchange       string       `json:"exchange"`
	BidPrice       float64      `json:"bid_price"`
	AskPrice       float64      `json:"ask_price"`
	BidSize        float64      `json:"bid_size"`
	AskSize        float64      `json:"ask_size"`
	Timestamp      time.Time    `json:"timestamp"`
	SequenceNumber uint64       `json:"sequence_number"`
}

// Valid reports whether the quote satisfies its price invariant.
func (q Quote) Valid() bool {
	if q.BidPrice != 0 && q.AskPrice != 0 {
		return q.AskPrice >= q.BidPrice
	}
	return true
}

// Mid returns the mid price, or zero if either side is absent.
func (q Quote) Mid() float64 {
	if q.BidPrice == 0 || q.AskPrice == 0 {
		return 0
	}
	return (q.BidPrice + q.AskPrice) / 2
}

// SpreadRatio returns (ask-bid)/mid, or zero if mid is zero.
func (q Quote) SpreadRatio() float64 {
	mid := q.Mid()
	if mid == 0 {
		return 0
	}
	return (q.AskPrice - q.BidPrice) / mid
}

// TradeSide is the aggressor side of a trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Trade is a single executed trade report.
type Trade struct {
	InstrumentID   InstrumentId `json:"instrument_id"`
	Exchange       string       `json:"exchange"`
	Price          float64      `json:"price"`
	Size           float64      `json:"size"`
	Side           TradeSide    `json:"side"`
	Timestamp      time.Time    `json:"timestamp"`
	SequenceNumber uint64       `json:"sequence_number"`
	TradeID        string       `json:"trade_id"`
}

// DepthLevel is one price/size rung of an order book.
type DepthLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// MarketDepth is an order-book snapshot. Bids are in descending price
// order, asks in ascending price order; every level has Size > 0.
type MarketDepth struct {
	InstrumentID InstrumentId `json:"instrument_id"`
	Exchange     string       `json:"exchange"`
	Bids         []DepthLevel `json:"bids"`
	Asks         []DepthLevel `json:"asks"`
	Timestamp    time.Time    `json:"timestamp"`
}

// BestBid returns the top-of-book bid level, or the zero value if empty.
func (d MarketDepth) BestBid() DepthLevel {
	if len(d.Bids) == 0 {
		return DepthLevel{}
	}
	return d.Bids[0]
}

// BestAsk returns the top-of-book ask level, or the zero value if empty.
func (d MarketDepth) BestAsk() DepthLevel {
	if len(d.Asks) == 0 {
		return DepthLevel{}
	}
	return d.Asks[0]
}

// AvailableSize sums size across depth levels up to and including price,
// on the side the caller expects to trade against. It is the liquidity an
// opposing order could fill without walking past `price`.
func (d MarketDepth) AvailableSize(side TradeSide, upToPrice float64) float64 {
	levels := d.Asks
	ascending := true
	if side == TradeSideSell {
		levels = d.Bids
		ascending = false
	}
	var total float64
	for _, lvl := range levels {
		if ascending && lvl.Price > upToPrice {
			break
		}
		if !ascending && lvl.Price < upToPrice {
			break
		}
		total += lvl.Size
	}
	return total
}

// FundingRate is a perpetual-swap funding rate observation.
type FundingRate struct {
	InstrumentID InstrumentId  `json:"instrument_id"`
	Rate         float64       `json:"rate"`
	Timestamp    time.Time     `json:"timestamp"`
	Frequency    time.Duration `json:"frequency"`
}

// DefaultFundingFrequency is the default funding interval (§3).
const DefaultFundingFrequency = 8 * time.Hour
