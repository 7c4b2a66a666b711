package feed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
)

// BinanceSource streams book-ticker (best bid/ask) and trade updates for a
// fixed symbol set over Binance's public websocket streams. Wire decoding
// is handled entirely by go-binance/v2; this adapter only maps its already
// decoded event structs onto market.Quote/market.Trade.
type BinanceSource struct {
	symbols []string
	limits  *RateLimiters
	log     zerolog.Logger
	seq     atomic.Uint64
}

// NewBinanceSource returns a source streaming the given symbols (e.g.
// "BTCUSDT"), rate-limited per symbol via limits.
func NewBinanceSource(symbols []string, limits *RateLimiters) *BinanceSource {
	return &BinanceSource{symbols: symbols, limits: limits, log: config.NewLogger("feed.binance")}
}

func (b *BinanceSource) Name() string { return "binance" }

// Run opens one book-ticker stream and one aggregate-trade stream per
// symbol and feeds decoded events into sink until ctx is cancelled. A
// stream that fails to open is retried after a fixed 2s backoff; a stream
// that disconnects is reopened as soon as the per-exchange rate limiter
// allows. Run only returns when ctx is done.
func (b *BinanceSource) Run(ctx context.Context, sink Sink) error {
	for _, symbol := range b.symbols {
		symbol := symbol
		go b.streamBookTicker(ctx, symbol, sink)
		go b.streamTrades(ctx, symbol, sink)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (b *BinanceSource) streamBookTicker(ctx context.Context, symbol string, sink Sink) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := b.limits.Wait(ctx, b.Name()); err != nil {
			return
		}

		handler := func(event *binance.WsBookTickerEvent) {
			bid, err1 := strconv.ParseFloat(event.BestBidPrice, 64)
			ask, err2 := strconv.ParseFloat(event.BestAskPrice, 64)
			bidSize, err3 := strconv.ParseFloat(event.BestBidQty, 64)
			askSize, err4 := strconv.ParseFloat(event.BestAskQty, 64)
			if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
				b.log.Warn().Str("symbol", symbol).Msg("dropping book ticker event with unparsable price")
				return
			}
			q := market.Quote{
				InstrumentID:   market.InstrumentId(strings.ToUpper(symbol)),
				Exchange:       b.Name(),
				BidPrice:       bid,
				AskPrice:       ask,
				BidSize:        bidSize,
				AskSize:        askSize,
				Timestamp:      time.Now(),
				SequenceNumber: b.seq.Add(1),
			}
			if err := sink.IngestQuote(b.Name(), q); err != nil {
				b.log.Debug().Err(err).Str("symbol", symbol).Msg("sequence warning on binance quote")
			}
		}
		errHandler := func(err error) {
			b.log.Warn().Err(err).Str("symbol", symbol).Msg("book ticker stream error")
		}

		doneC, stopC, err := binance.WsBookTickerServe(symbol, handler, errHandler)
		if err != nil {
			b.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to open book ticker stream, retrying")
			b.sleepOrDone(ctx, 2*time.Second)
			continue
		}
		b.waitForStreamEnd(ctx, doneC, stopC)
	}
}

func (b *BinanceSource) streamTrades(ctx context.Context, symbol string, sink Sink) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := b.limits.Wait(ctx, b.Name()); err != nil {
			return
		}

		handler := func(event *binance.WsAggTradeEvent) {
			price, err1 := strconv.ParseFloat(event.Price, 64)
			qty, err2 := strconv.ParseFloat(event.Quantity, 64)
			if err1 != nil || err2 != nil {
				b.log.Warn().Str("symbol", symbol).Msg("dropping trade event with unparsable price")
				return
			}
			side := market.TradeSideBuy
			if event.IsBuyerMaker {
				side = market.TradeSideSell
			}
			t := market.Trade{
				InstrumentID:   market.InstrumentId(strings.ToUpper(symbol)),
				Exchange:       b.Name(),
				Price:          price,
				Size:           qty,
				Side:           side,
				Timestamp:      time.UnixMilli(event.TradeTime),
				SequenceNumber: uint64(event.AggTradeID),
				TradeID:        fmt.Sprintf("%d", event.AggTradeID),
			}
			if err := sink.IngestTrade(b.Name(), t); err != nil {
				b.log.Debug().Err(err).Str("symbol", symbol).Msg("sequence warning on binance trade")
			}
		}
		errHandler := func(err error) {
			b.log.Warn().Err(err).Str("symbol", symbol).Msg("trade stream error")
		}

		doneC, stopC, err := binance.WsAggTradeServe(symbol, handler, errHandler)
		if err != nil {
			b.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to open trade stream, retrying")
			b.sleepOrDone(ctx, 2*time.Second)
			continue
		}
		b.waitForStreamEnd(ctx, doneC, stopC)
	}
}

func (b *BinanceSource) waitForStreamEnd(ctx context.Context, doneC, stopC chan struct{}) {
	select {
	case <-ctx.Done():
		close(stopC)
		<-doneC
	case <-doneC:
	}
}

func (b *BinanceSource) sleepOrDone(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
