package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuoteValid(t *testing.T) {
	assert.True(t, Quote{BidPrice: 100, AskPrice: 101}.Valid())
	assert.False(t, Quote{BidPrice: 101, AskPrice: 100}.Valid())
	assert.True(t, Quote{}.Valid(), "zero-value quote (no two-sided market yet) is not a violation")
}

func TestQuoteMidAndSpreadRatio(t *testing.T) {
	q := Quote{BidPrice: 100, AskPrice: 102}
	assert.Equal(t, 101.0, q.Mid())
	assert.InDelta(t, 2.0/101.0, q.SpreadRatio(), 1e-9)

	oneSided := Quote{BidPrice: 100}
	assert.Equal(t, 0.0, oneSided.Mid())
	assert.Equal(t, 0.0, oneSided.SpreadRatio())
}

func TestMarketDepthBestLevels(t *testing.T) {
	d := MarketDepth{
		Bids: []DepthLevel{{Price: 100, Size: 2}, {Price: 99, Size: 5}},
		Asks: []DepthLevel{{Price: 101, Size: 3}, {Price: 102, Size: 4}},
	}
	assert.Equal(t, DepthLevel{Price: 100, Size: 2}, d.BestBid())
	assert.Equal(t, DepthLevel{Price: 101, Size: 3}, d.BestAsk())
	assert.Equal(t, DepthLevel{}, MarketDepth{}.BestBid())
}

func TestMarketDepthAvailableSize(t *testing.T) {
	d := MarketDepth{
		Asks: []DepthLevel{{Price: 101, Size: 3}, {Price: 102, Size: 4}, {Price: 103, Size: 1}},
		Bids: []DepthLevel{{Price: 100, Size: 2}, {Price: 99, Size: 5}, {Price: 98, Size: 1}},
	}
	assert.Equal(t, 7.0, d.AvailableSize(TradeSideBuy, 102))
	assert.Equal(t, 7.0, d.AvailableSize(TradeSideSell, 99))
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	s := NewEmptySnapshot()
	s.Quotes["BTC-USD"] = Quote{InstrumentID: "BTC-USD", BidPrice: 1, AskPrice: 2}
	s.RecentTrades["BTC-USD"] = []Trade{{InstrumentID: "BTC-USD", Timestamp: time.Now()}}

	c := s.Clone()
	c.Quotes["BTC-USD"] = Quote{InstrumentID: "BTC-USD", BidPrice: 999, AskPrice: 1000}
	c.RecentTrades["BTC-USD"][0].Price = 999

	assert.Equal(t, 1.0, s.Quotes["BTC-USD"].BidPrice, "mutating the clone must not affect the original")
	assert.Equal(t, 0.0, s.RecentTrades["BTC-USD"][0].Price)
}
