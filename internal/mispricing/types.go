// Package mispricing implements the six mispricing detectors plus their
// composite fan-out (§4.3): each watches a MarketSnapshot stream and emits
// MispricingOpportunity values once its significance gate is satisfied.
package mispricing

import (
	"time"

	"github.com/archon-quant/synthalpha/internal/market"
)

// OpportunityType tags which detector produced a MispricingOpportunity.
type OpportunityType string

const (
	TypeStatistical    OpportunityType = "statistical"
	TypeTriangular     OpportunityType = "triangular"
	TypeVolatility     OpportunityType = "volatility"
	TypeBasis          OpportunityType = "basis"
	TypeCrossExchange  OpportunityType = "cross_exchange"
	TypeSpotDerivative OpportunityType = "spot_derivative"
)

// Severity classifies a mispricing by the magnitude of its deviation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityFor maps |deviation| to a Severity per §4.3's thresholds.
func SeverityFor(absDeviation float64) Severity {
	switch {
	case absDeviation > 0.05:
		return SeverityCritical
	case absDeviation > 0.02:
		return SeverityHigh
	case absDeviation > 0.01:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// MispricingOpportunity is one detector's emitted signal (§3).
type MispricingOpportunity struct {
	Type                 OpportunityType
	Target               market.InstrumentId
	Components           []market.InstrumentId
	Weights              []float64
	Severity             Severity
	ObservedPrice        float64
	TheoreticalPrice     float64
	DeviationPercentage  float64
	ZScore               float64
	Confidence           float64
	ExpectedProfit       float64
	MaxLoss              float64
	VaR                  float64
	ES                    float64
	DetectionTime        time.Time
	ExpiryTime           time.Time

	// Extra carries detector-specific fields (capital efficiency, execution
	// probability for cross-exchange, triangle legs for triangular) that do
	// not generalize across all six detectors.
	Extra map[string]float64
}

// Key identifies an opportunity for composite de-duplication: (type, target).
type Key struct {
	Type   OpportunityType
	Target market.InstrumentId
}

// KeyOf returns the de-duplication key for an opportunity.
func (o MispricingOpportunity) KeyOf() Key {
	return Key{Type: o.Type, Target: o.Target}
}
