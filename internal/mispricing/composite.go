package mispricing

import (
	"sort"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
)

// Composite fans a snapshot out to every child detector and consolidates
// their findings into one de-duplicated, profit-sorted list (§4.3:
// "composite").
type Composite struct {
	children []Detector
}

// NewComposite returns a composite over the given child detectors.
func NewComposite(children ...Detector) *Composite {
	return &Composite{children: children}
}

// UpdateMarketData forwards the snapshot to every child.
func (c *Composite) UpdateMarketData(snapshot market.MarketSnapshot) {
	for _, child := range c.children {
		child.UpdateMarketData(snapshot)
	}
}

// UpdateParameters forwards the new thresholds to every child.
func (c *Composite) UpdateParameters(params config.DetectionParameters) {
	for _, child := range c.children {
		child.UpdateParameters(params)
	}
}

// DetectOpportunities polls every child, de-duplicates by (type, target)
// keeping the highest expected_profit, and returns the result sorted by
// expected_profit descending.
func (c *Composite) DetectOpportunities() []MispricingOpportunity {
	best := make(map[Key]MispricingOpportunity)
	for _, child := range c.children {
		for _, opp := range child.DetectOpportunities() {
			key := opp.KeyOf()
			if existing, ok := best[key]; !ok || opp.ExpectedProfit > existing.ExpectedProfit {
				best[key] = opp
			}
		}
	}

	out := make([]MispricingOpportunity, 0, len(best))
	for _, opp := range best {
		out = append(out, opp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpectedProfit > out[j].ExpectedProfit
	})
	return out
}
