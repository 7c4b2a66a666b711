package arbitrage

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/mispricing"
	"github.com/archon-quant/synthalpha/internal/pricing"
)

// SizeFunc returns the base position size for a target instrument, given
// the current snapshot (§4.6: position sizing feeds opportunity
// construction).
type SizeFunc func(target market.InstrumentId, snapshot market.MarketSnapshot) (float64, error)

// OpportunityCallback is invoked once per opportunity that reaches
// Validated (§6: "Opportunity callback (produced)").
type OpportunityCallback func(Opportunity)

// PortfolioRiskSource supplies the Sharpe and drawdown context of the
// portfolio an opportunity would join (§3: "risk metrics ... Sharpe ...
// max drawdown"). Declared here rather than imported from internal/risk
// since risk.Portfolio itself imports this package for Leg/Side — any
// concrete *risk.Portfolio satisfies this interface structurally.
type PortfolioRiskSource interface {
	Sharpe(riskFreeRate float64) (float64, error)
	Drawdown() (current, max float64)
}

// Engine runs the arbitrage engine's single logical thread (§5):
// opportunity construction, validation, and state tracking are serialized
// behind one mutex.
type Engine struct {
	mu     sync.Mutex
	log    zerolog.Logger
	params config.ArbitrageParameters
	sizer  SizeFunc
	basket *pricing.BasketModel
	corr   *pricing.CorrelationCache

	active map[string]Opportunity
	idGen  IDGenerator
	now    func() time.Time

	portfolioRisk PortfolioRiskSource
	riskFreeRate  float64
	onValidated   OpportunityCallback
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithClock overrides the engine's time source; intended for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides the default epoch/random id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.idGen = g }
}

// WithPortfolioRiskSource attaches the portfolio an opportunity would join,
// used to populate Sharpe/MaxDrawdown at construction time, and the
// risk-free rate Sharpe is computed against. Without this option those
// fields stay zero, e.g. before any daily return has been recorded.
func WithPortfolioRiskSource(src PortfolioRiskSource, riskFreeRate float64) Option {
	return func(e *Engine) {
		e.portfolioRisk = src
		e.riskFreeRate = riskFreeRate
	}
}

// NewEngine returns an Engine using params for validation gates, sizer for
// position sizing, and basket/corr for the VaR and correlation-risk
// estimators.
func NewEngine(params config.ArbitrageParameters, sizer SizeFunc, basket *pricing.BasketModel, corr *pricing.CorrelationCache, opts ...Option) *Engine {
	e := &Engine{
		log:    config.NewLogger("arbitrage.engine"),
		params: params,
		sizer:  sizer,
		basket: basket,
		corr:   corr,
		active: make(map[string]Opportunity),
		idGen:  NewEpochRandomIDGenerator(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnValidated registers the callback invoked for every opportunity that
// reaches Validated status.
func (e *Engine) OnValidated(cb OpportunityCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onValidated = cb
}

// ProcessMispricing constructs, validates, and tracks an opportunity from a
// detected mispricing (§4.4 step 4: "arbitrage engine process_mispricing +
// identify_opportunities"). It returns the resulting opportunity in
// whatever terminal-or-live state it reached.
func (e *Engine) ProcessMispricing(source mispricing.MispricingOpportunity, snapshot market.MarketSnapshot) (Opportunity, error) {
	baseSize, err := e.sizer(source.Target, snapshot)
	if err != nil {
		return Opportunity{}, err
	}

	opp, err := Construct(source, snapshot, baseSize, e.idGen)
	if err != nil {
		return Opportunity{}, err
	}

	opp.VaR = EstimateVaR(e.basket, legInstruments(opp.Legs), legWeights(opp.Legs), legVolatilities(opp.Legs), totalCost(opp.Legs))
	opp.ES = EstimateES(opp.VaR)
	opp.CorrelationRisk = EstimateCorrelationRisk(e.corr, opp.Legs)
	opp.MarketImpact = EstimateMarketImpact(opp.TotalVolume)
	opp.SlippageEstimate = EstimateSlippage(snapshot, opp.Legs)
	opp.TransactionCost = EstimateTransactionCost(opp.Legs)
	opp.EstimatedDuration = e.params.MaxHoldingPeriod

	if e.portfolioRisk != nil {
		if sharpe, err := e.portfolioRisk.Sharpe(e.riskFreeRate); err == nil {
			opp.Sharpe = sharpe
		}
		_, maxDrawdown := e.portfolioRisk.Drawdown()
		opp.MaxDrawdown = maxDrawdown
	}

	now := e.now()
	if valErr := Validate(opp, snapshot, e.params, now); valErr != nil {
		failed, _ := opp.WithStatus(StatusFailed)
		e.track(failed)
		return failed, valErr
	}

	validated, err := opp.WithStatus(StatusValidated)
	if err != nil {
		return opp, err
	}
	e.track(validated)

	e.mu.Lock()
	cb := e.onValidated
	e.mu.Unlock()
	if cb != nil {
		cb(validated)
	}
	return validated, nil
}

// track records an opportunity's latest state in the active set.
// Completed/Failed/Expired opportunities are dropped rather than tracked.
func (e *Engine) track(opp Opportunity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch opp.Status {
	case StatusCompleted, StatusFailed, StatusExpired:
		delete(e.active, opp.ID)
	default:
		e.active[opp.ID] = opp
	}
}

// ActiveOpportunities returns a defensive copy of the live opportunity set
// (§5: "iteration yields a defensive copy").
func (e *Engine) ActiveOpportunities() []Opportunity {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Opportunity, 0, len(e.active))
	for _, o := range e.active {
		out = append(out, o)
	}
	return out
}

// SweepExpired transitions every active opportunity whose expiry_time has
// elapsed to Expired (§5: "a background sweep on each snapshot update").
func (e *Engine) SweepExpired(now time.Time) []Opportunity {
	e.mu.Lock()
	var expired []Opportunity
	for id, o := range e.active {
		if !now.Before(o.ExpiryTime) {
			next, err := o.WithStatus(StatusExpired)
			if err == nil {
				expired = append(expired, next)
				delete(e.active, id)
			}
		}
	}
	e.mu.Unlock()
	return expired
}

func legInstruments(legs []Leg) []market.InstrumentId {
	out := make([]market.InstrumentId, len(legs))
	for i, l := range legs {
		out[i] = l.InstrumentID
	}
	return out
}

func legWeights(legs []Leg) []float64 {
	out := make([]float64, len(legs))
	for i, l := range legs {
		out[i] = l.Weight
	}
	return out
}

// legVolatilities returns defaultPortfolioVolatility for every leg; the
// basket model's correlation cache supplies only the correlations that
// EstimateVaR combines these volatilities with.
func legVolatilities(legs []Leg) []float64 {
	out := make([]float64, len(legs))
	for i := range legs {
		out[i] = defaultPortfolioVolatility
	}
	return out
}
