package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-quant/synthalpha/internal/market"
)

func TestBusBridgesQuoteToSink(t *testing.T) {
	bus, err := NewEmbeddedBus()
	require.NoError(t, err)
	defer bus.Close()

	sink := &recordingSink{}
	stop, err := bus.Bridge(sink)
	require.NoError(t, err)
	defer stop()

	q := market.Quote{InstrumentID: "BTC-USD", BidPrice: 100, AskPrice: 101, SequenceNumber: 1}
	require.NoError(t, bus.PublishQuote("binance", q))

	require.Eventually(t, func() bool {
		return sink.count() == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "BTC-USD", string(sink.quotes[0].InstrumentID))
}

func TestBusSinkRoutesQuoteOverBusAndDepthDirect(t *testing.T) {
	bus, err := NewEmbeddedBus()
	require.NoError(t, err)
	defer bus.Close()

	direct := &recordingSink{}
	bridged := &recordingSink{}
	stop, err := bus.Bridge(bridged)
	require.NoError(t, err)
	defer stop()

	busSink := &BusSink{Bus: bus, Direct: direct}

	require.NoError(t, busSink.IngestQuote("binance", market.Quote{InstrumentID: "BTC-USD"}))
	busSink.IngestDepth("binance", market.MarketDepth{InstrumentID: "BTC-USD"})

	require.Eventually(t, func() bool {
		return bridged.count() == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, direct.count(), "quotes must not be ingested directly, only via the bus")
}
