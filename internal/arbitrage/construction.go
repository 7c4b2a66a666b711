package arbitrage

import (
	"fmt"
	"time"

	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/mispricing"
)

// Construct builds an Opportunity from a detected mispricing (§4.5:
// "Opportunity construction from mispricing"). baseSize scales the hedge
// legs; the primary leg trades one unit of the target instrument times
// baseSize.
func Construct(source mispricing.MispricingOpportunity, snapshot market.MarketSnapshot, baseSize float64, idGen IDGenerator) (Opportunity, error) {
	targetQuote, ok := snapshot.Quote(source.Target)
	if !ok {
		return Opportunity{}, fmt.Errorf("arbitrage: no quote for target %s", source.Target)
	}

	primarySide := SideAsk
	if source.ObservedPrice < source.TheoreticalPrice {
		primarySide = SideBid
	}
	primaryEntry := entryPrice(targetQuote, primarySide)

	legs := []Leg{{
		InstrumentID: source.Target,
		Side:         primarySide,
		Size:         baseSize,
		EntryPrice:   primaryEntry,
		Weight:       1,
		EntryTime:    source.DetectionTime,
	}}

	for i, componentID := range source.Components {
		if componentID == source.Target && len(source.Components) == 1 {
			continue
		}
		w := 1.0
		if i < len(source.Weights) {
			w = source.Weights[i]
		}
		quote, ok := snapshot.Quote(componentID)
		if !ok {
			return Opportunity{}, fmt.Errorf("arbitrage: no quote for component %s", componentID)
		}
		side := SideAsk
		if w > 0 {
			side = oppositeSide(primarySide)
		} else {
			side = primarySide
		}
		legs = append(legs, Leg{
			InstrumentID: componentID,
			Side:         side,
			Size:         abs(w) * baseSize,
			EntryPrice:   entryPrice(quote, side),
			Weight:       -w,
			EntryTime:    source.DetectionTime,
		})
	}

	triangular := source.Type == mispricing.TypeTriangular
	opp := Opportunity{
		ID:             idGen.NewID(triangular),
		Type:           source.Type,
		Status:         StatusIdentified,
		Legs:           legs,
		Source:         source,
		ExpectedProfit: source.ExpectedProfit,
		IdentifiedTime: source.DetectionTime,
		ExpiryTime:     source.ExpiryTime,
	}
	if opp.IdentifiedTime.IsZero() {
		opp.IdentifiedTime = time.Now()
	}

	opp.TotalCost = totalCost(legs)
	opp.NetExposure = netExposure(legs)
	opp.TotalVolume = totalVolume(legs)
	if opp.ExpectedProfit == 0 {
		opp.ExpectedProfit = abs(source.DeviationPercentage) * opp.TotalCost
	}
	opp.BreakEven = breakEven(legs)
	opp.MaxLoss = opp.TotalCost

	return opp, nil
}

func entryPrice(q market.Quote, side Side) float64 {
	if side == SideBid {
		return q.BidPrice
	}
	return q.AskPrice
}

func oppositeSide(s Side) Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func totalCost(legs []Leg) float64 {
	var total float64
	for _, l := range legs {
		total += l.EntryPrice * l.Size
	}
	return total
}

func netExposure(legs []Leg) float64 {
	var net float64
	for _, l := range legs {
		net += l.Notional()
	}
	return net
}

func totalVolume(legs []Leg) float64 {
	var total float64
	for _, l := range legs {
		total += l.Size
	}
	return total
}

func breakEven(legs []Leg) float64 {
	if len(legs) == 0 {
		return 0
	}
	return legs[0].EntryPrice
}
