// Package arbitrage constructs, validates, and tracks ArbitrageOpportunity
// values from detected mispricings (§4.5), including the position-sizing
// and portfolio-risk estimators they depend on (§4.6).
package arbitrage

import (
	"time"

	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/mispricing"
)

// Status is a state in the opportunity lifecycle state machine (§4.5).
type Status string

const (
	StatusIdentified Status = "identified"
	StatusValidated  Status = "validated"
	StatusExecuting  Status = "executing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
)

// transitions enumerates the allowed state machine edges (§4.5). The
// machine is monotonic: no listed transition ever returns to an earlier
// state.
var transitions = map[Status]map[Status]bool{
	StatusIdentified: {StatusValidated: true, StatusFailed: true, StatusExpired: true},
	StatusValidated:  {StatusExecuting: true, StatusFailed: true, StatusExpired: true},
	StatusExecuting:  {StatusCompleted: true, StatusFailed: true, StatusExpired: true},
	StatusCompleted:  {},
	StatusFailed:     {},
	StatusExpired:    {},
}

// CanTransition reports whether from → to is a legal state machine edge.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// Side is which side of the book a leg trades against.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// Leg is one instrument position within an opportunity (§3: ArbitrageLeg).
//
// Invariant: Σ weight·price·size over an opportunity's legs equals its net
// exposure to within a small tolerance.
type Leg struct {
	InstrumentID market.InstrumentId
	Side         Side
	Size         float64
	EntryPrice   float64
	ExitPrice    float64
	Weight       float64
	EntryTime    time.Time
	ExitTime     time.Time
}

// Notional returns weight * entry price * size, this leg's contribution to
// net exposure.
func (l Leg) Notional() float64 {
	return l.Weight * l.EntryPrice * l.Size
}

// Opportunity is a fully-formed arbitrage trade package (§3:
// ArbitrageOpportunity). Once constructed it is treated as an immutable
// value; state transitions produce a new Opportunity via WithStatus.
type Opportunity struct {
	ID          string
	Type        mispricing.OpportunityType
	Status      Status
	Legs        []Leg
	Source      mispricing.MispricingOpportunity

	ExpectedProfit float64
	MaxLoss        float64
	BreakEven      float64
	TotalCost      float64
	NetExposure    float64

	VaR             float64
	ES              float64
	Sharpe          float64
	CorrelationRisk float64
	MaxDrawdown     float64

	IdentifiedTime time.Time
	ValidatedTime  time.Time
	ExpiryTime     time.Time
	EstimatedDuration time.Duration

	SlippageEstimate   float64
	TransactionCost    float64
	TotalVolume        float64
	MarketImpact       float64
}

// WithStatus returns a copy of o transitioned to status, or an error if the
// transition is illegal.
func (o Opportunity) WithStatus(status Status) (Opportunity, error) {
	if !CanTransition(o.Status, status) {
		return o, &InvalidTransitionError{From: o.Status, To: status}
	}
	next := o
	next.Status = status
	if status == StatusValidated {
		next.ValidatedTime = time.Now()
	}
	return next, nil
}

// InvalidTransitionError reports an illegal state machine edge.
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return "arbitrage: illegal transition " + string(e.From) + " -> " + string(e.To)
}
