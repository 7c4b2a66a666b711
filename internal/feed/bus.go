package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
)

// Subjects used on the bus. A BusSink publishes an exchange Source's quotes
// and trades onto SubjectQuote and SubjectTrade, and a single Bridge
// subscribes to those two and replays onto the aggregator; SubjectDepth and
// SubjectFunding are declared but nothing publishes or subscribes to them —
// decoupling the per-exchange producer goroutines from the aggregator's
// single logical consumer, per the multi-producer/multi-consumer model.
const (
	SubjectQuote   = "synthalpha.quote"
	SubjectTrade   = "synthalpha.trade"
	SubjectDepth   = "synthalpha.depth"
	SubjectFunding = "synthalpha.funding"
)

type quoteMsg struct {
	Exchange string       `json:"exchange"`
	Quote    market.Quote `json:"quote"`
}

type tradeMsg struct {
	Exchange string       `json:"exchange"`
	Trade    market.Trade `json:"trade"`
}

// Bus is a thin wrapper over a NATS connection, optionally backed by an
// embedded in-process server for tests and single-binary deployments where
// standing up an external NATS cluster is unwarranted.
type Bus struct {
	conn   *nats.Conn
	server *server.Server
	log    zerolog.Logger
}

// NewEmbeddedBus starts an in-process NATS server and connects to it. The
// returned Bus owns the server; call Close to shut both down.
func NewEmbeddedBus() (*Bus, error) {
	opts := &server.Options{
		Host:           "127.0.0.1",
		Port:           server.RANDOM_PORT,
		NoLog:          true,
		NoSigs:         true,
		MaxControlLine: 4096,
	}
	return newBusFromOptions(opts)
}

func newBusFromOptions(opts *server.Options) (*Bus, error) {
	srv, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("feed: starting embedded nats server: %w", err)
	}
	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		return nil, fmt.Errorf("feed: embedded nats server did not become ready")
	}
	conn, err := nats.Connect(srv.ClientURL())
	if err != nil {
		srv.Shutdown()
		return nil, fmt.Errorf("feed: connecting to embedded nats server: %w", err)
	}
	return &Bus{conn: conn, server: srv, log: config.NewLogger("feed.bus")}, nil
}

// NewBus connects to an external NATS deployment at url (production use;
// §E.3 names github.com/nats-io/nats.go as the client here).
func NewBus(url string) (*Bus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("feed: connecting to nats at %s: %w", url, err)
	}
	return &Bus{conn: conn, log: config.NewLogger("feed.bus")}, nil
}

// Close drains the connection and, for an embedded bus, shuts down the
// in-process server.
func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
	if b.server != nil {
		b.server.Shutdown()
	}
}

// PublishQuote publishes a decoded quote from exchange onto the bus.
func (b *Bus) PublishQuote(exchange string, q market.Quote) error {
	payload, err := json.Marshal(quoteMsg{Exchange: exchange, Quote: q})
	if err != nil {
		return fmt.Errorf("feed: marshalling quote: %w", err)
	}
	return b.conn.Publish(SubjectQuote, payload)
}

// PublishTrade publishes a decoded trade from exchange onto the bus.
func (b *Bus) PublishTrade(exchange string, t market.Trade) error {
	payload, err := json.Marshal(tradeMsg{Exchange: exchange, Trade: t})
	if err != nil {
		return fmt.Errorf("feed: marshalling trade: %w", err)
	}
	return b.conn.Publish(SubjectTrade, payload)
}

// BusSink publishes quotes and trades onto a Bus instead of ingesting them
// directly, so a Source can run in one process while the aggregator
// consuming its output runs in another (or the same process, decoupled by
// the embedded bus). Depth and funding-rate updates are not sent over the
// bus — they're lower-frequency, venue-scoped inputs with no cross-process
// consumer in this engine's topology — so BusSink forwards those straight
// to Direct.
type BusSink struct {
	Bus    *Bus
	Direct Sink
}

func (s *BusSink) IngestQuote(exchange string, q market.Quote) error {
	return s.Bus.PublishQuote(exchange, q)
}

func (s *BusSink) IngestTrade(exchange string, t market.Trade) error {
	return s.Bus.PublishTrade(exchange, t)
}

func (s *BusSink) IngestDepth(exchange string, d market.MarketDepth) {
	s.Direct.IngestDepth(exchange, d)
}

func (s *BusSink) IngestFundingRate(f market.FundingRate) {
	s.Direct.IngestFundingRate(f)
}

// Bridge subscribes to SubjectQuote and SubjectTrade and replays each
// message into sink, until unsubscribed via the returned stop function.
func (b *Bus) Bridge(sink Sink) (stop func(), err error) {
	quoteSub, err := b.conn.Subscribe(SubjectQuote, func(msg *nats.Msg) {
		var m quoteMsg
		if jerr := json.Unmarshal(msg.Data, &m); jerr != nil {
			b.log.Warn().Err(jerr).Msg("dropping malformed quote message")
			return
		}
		if ierr := sink.IngestQuote(m.Exchange, m.Quote); ierr != nil {
			b.log.Warn().Err(ierr).Str("exchange", m.Exchange).Msg("sequence gap on bridged quote")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("feed: subscribing to %s: %w", SubjectQuote, err)
	}

	tradeSub, err := b.conn.Subscribe(SubjectTrade, func(msg *nats.Msg) {
		var m tradeMsg
		if jerr := json.Unmarshal(msg.Data, &m); jerr != nil {
			b.log.Warn().Err(jerr).Msg("dropping malformed trade message")
			return
		}
		if ierr := sink.IngestTrade(m.Exchange, m.Trade); ierr != nil {
			b.log.Warn().Err(ierr).Str("exchange", m.Exchange).Msg("sequence gap on bridged trade")
		}
	})
	if err != nil {
		_ = quoteSub.Unsubscribe()
		return nil, fmt.Errorf("feed: subscribing to %s: %w", SubjectTrade, err)
	}

	return func() {
		_ = quoteSub.Unsubscribe()
		_ = tradeSub.Unsubscribe()
	}, nil
}
