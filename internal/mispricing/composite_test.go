package mispricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
)

type fixedDetector struct {
	opps []MispricingOpportunity
}

func (f fixedDetector) UpdateMarketData(market.MarketSnapshot)            {}
func (f fixedDetector) DetectOpportunities() []MispricingOpportunity      { return f.opps }
func (f fixedDetector) UpdateParameters(params config.DetectionParameters) {}

func TestCompositeDedupKeepsHighestProfit(t *testing.T) {
	now := time.Now()
	low := MispricingOpportunity{Type: TypeStatistical, Target: "BTC-USD", ExpectedProfit: 10, DetectionTime: now}
	high := MispricingOpportunity{Type: TypeStatistical, Target: "BTC-USD", ExpectedProfit: 50, DetectionTime: now}
	other := MispricingOpportunity{Type: TypeTriangular, Target: "EUR-JPY", ExpectedProfit: 5, DetectionTime: now}

	c := NewComposite(
		fixedDetector{opps: []MispricingOpportunity{low}},
		fixedDetector{opps: []MispricingOpportunity{high, other}},
	)

	out := c.DetectOpportunities()
	require.Len(t, out, 2)
	assert.Equal(t, 50.0, out[0].ExpectedProfit)
	assert.Equal(t, 5.0, out[1].ExpectedProfit)
}
