package pricing

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/archon-quant/synthalpha/internal/market"
)

// Greeks holds the standard analytic sensitivities of a Black-Scholes price.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

const (
	impliedVolTolerance  = 1e-6
	impliedVolMaxIter    = 50
	impliedVolLowerBound = 1e-4
	impliedVolUpperBound = 5.0
)

// OptionsModel prices options off a per-underlying VolatilitySurface via
// Black-Scholes, with analytic Greeks and bisection-based implied vol.
type OptionsModel struct {
	mu       sync.RWMutex
	surfaces map[market.InstrumentId]*market.VolatilitySurface
	contracts map[market.InstrumentId]OptionContract
}

// OptionContract names the static terms of a quoted option target: its
// underlying, strike, expiry, side, and discount rate. CalculateSyntheticPrice
// needs these alongside the registered VolatilitySurface since the shared
// Model contract only carries instrument ids, not contract terms.
type OptionContract struct {
	Underlying   market.InstrumentId
	Strike       float64
	Expiry       time.Time
	IsCall       bool
	RiskFreeRate float64
}

// NewOptionsModel returns a model with no surfaces or contracts registered;
// register a surface per underlying with RegisterSurface and a contract per
// option target with RegisterContract before pricing.
func NewOptionsModel() *OptionsModel {
	return &OptionsModel{
		surfaces:  make(map[market.InstrumentId]*market.VolatilitySurface),
		contracts: make(map[market.InstrumentId]OptionContract),
	}
}

// RegisterSurface associates a VolatilitySurface with an underlying.
func (m *OptionsModel) RegisterSurface(underlying market.InstrumentId, surface *market.VolatilitySurface) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.surfaces[underlying] = surface
}

// RegisterContract associates an option target instrument with its static
// contract terms, so CalculateSyntheticPrice can price it through the shared
// Model interface.
func (m *OptionsModel) RegisterContract(target market.InstrumentId, contract OptionContract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[target] = contract
}

func (m *OptionsModel) surfaceFor(underlying market.InstrumentId) (*market.VolatilitySurface, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.surfaces[underlying]
	return s, ok
}

func (m *OptionsModel) contractFor(target market.InstrumentId) (OptionContract, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contracts[target]
	return c, ok
}

// UpdateParameters is a no-op: surfaces are maintained out-of-band by
// RegisterSurface/Surface.Set as implied vols are observed.
func (m *OptionsModel) UpdateParameters(_ market.MarketSnapshot) {}

// stdNormCDF is the standard normal cumulative distribution function.
func stdNormCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// stdNormPDF is the standard normal probability density function.
func stdNormPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

func d1d2(spot, strike, r, vol, tau float64) (d1, d2 float64) {
	d1 = (math.Log(spot/strike) + (r+0.5*vol*vol)*tau) / (vol * math.Sqrt(tau))
	d2 = d1 - vol*math.Sqrt(tau)
	return
}

// BlackScholesPrice returns the theoretical price of a European option.
func BlackScholesPrice(spot, strike, r, vol, tau float64, isCall bool) (float64, error) {
	if tau <= 0 || vol <= 0 || spot <= 0 || strike <= 0 {
		return 0, fmt.Errorf("pricing: invalid black-scholes inputs (tau=%f vol=%f spot=%f strike=%f): %w", tau, vol, spot, strike, ErrModelDomain)
	}
	d1, d2 := d1d2(spot, strike, r, vol, tau)
	if isCall {
		return spot*stdNormCDF(d1) - strike*math.Exp(-r*tau)*stdNormCDF(d2), nil
	}
	return strike*math.Exp(-r*tau)*stdNormCDF(-d2) - spot*stdNormCDF(-d1), nil
}

// BlackScholesGreeks returns the analytic Greeks for a European option.
func BlackScholesGreeks(spot, strike, r, vol, tau float64, isCall bool) (Greeks, error) {
	if tau <= 0 || vol <= 0 || spot <= 0 || strike <= 0 {
		return Greeks{}, fmt.Errorf("pricing: invalid black-scholes inputs: %w", ErrModelDomain)
	}
	d1, d2 := d1d2(spot, strike, r, vol, tau)
	sqrtTau := math.Sqrt(tau)
	pdf := stdNormPDF(d1)

	gamma := pdf / (spot * vol * sqrtTau)
	vega := spot * pdf * sqrtTau / 100 // per 1 vol-point (1%)

	if isCall {
		delta := stdNormCDF(d1)
		theta := (-(spot*pdf*vol)/(2*sqrtTau) - r*strike*math.Exp(-r*tau)*stdNormCDF(d2)) / 365
		rho := strike * tau * math.Exp(-r*tau) * stdNormCDF(d2) / 100
		return Greeks{Delta: delta, Gamma: gamma, Theta: theta, Vega: vega, Rho: rho}, nil
	}
	delta := stdNormCDF(d1) - 1
	theta := (-(spot*pdf*vol)/(2*sqrtTau) + r*strike*math.Exp(-r*tau)*stdNormCDF(-d2)) / 365
	rho := -strike * tau * math.Exp(-r*tau) * stdNormCDF(-d2) / 100
	return Greeks{Delta: delta, Gamma: gamma, Theta: theta, Vega: vega, Rho: rho}, nil
}

// ImpliedVolatility solves for the volatility that reproduces marketPrice
// via bisection, per §4.2 (tolerance 1e-6, at most 50 iterations).
func ImpliedVolatility(marketPrice, spot, strike, r, tau float64, isCall bool) (float64, error) {
	if marketPrice <= 0 || tau <= 0 || spot <= 0 || strike <= 0 {
		return 0, fmt.Errorf("pricing: invalid implied-vol inputs: %w", ErrModelDomain)
	}

	lo, hi := impliedVolLowerBound, impliedVolUpperBound
	priceLo, err := BlackScholesPrice(spot, strike, r, lo, tau, isCall)
	if err != nil {
		return 0, err
	}
	priceHi, err := BlackScholesPrice(spot, strike, r, hi, tau, isCall)
	if err != nil {
		return 0, err
	}
	if marketPrice < priceLo || marketPrice > priceHi {
		return 0, fmt.Errorf("pricing: market price %f outside bisection bracket [%f,%f]: %w", marketPrice, priceLo, priceHi, ErrModelDomain)
	}

	for i := 0; i < impliedVolMaxIter; i++ {
		mid := (lo + hi) / 2
		price, err := BlackScholesPrice(spot, strike, r, mid, tau, isCall)
		if err != nil {
			return 0, err
		}
		diff := price - marketPrice
		if math.Abs(diff) < impliedVolTolerance {
			return mid, nil
		}
		if diff > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}
	return (lo + hi) / 2, nil
}

// CalculateSyntheticPrice prices an option target against the contract
// terms registered for it via RegisterContract, delegating to PriceOption.
// components is unused beyond a sanity check against the registered
// underlying: the contract (strike/expiry/side) is looked up by target,
// since the shared Model contract has nowhere else to carry it.
func (m *OptionsModel) CalculateSyntheticPrice(target market.InstrumentId, components []market.InstrumentId, snapshot market.MarketSnapshot) (SyntheticPrice, error) {
	contract, ok := m.contractFor(target)
	if !ok {
		return SyntheticPrice{}, fmt.Errorf("pricing: no option contract registered for %s: %w", target, ErrInsufficientHistory)
	}
	if len(components) != 1 || components[0] != contract.Underlying {
		return SyntheticPrice{}, fmt.Errorf("pricing: option %s expects underlying component %s: %w", target, contract.Underlying, ErrModelDomain)
	}
	tau := contract.Expiry.Sub(snapshot.SnapshotTime).Hours() / (24 * 365)
	if tau <= 0 {
		return SyntheticPrice{}, fmt.Errorf("pricing: option %s has expired as of %s: %w", target, snapshot.SnapshotTime, ErrModelDomain)
	}
	return m.PriceOption(contract.Underlying, target, contract.Strike, tau, contract.RiskFreeRate, contract.IsCall, snapshot)
}

// PriceOption is the full-signature options pricer: spot is looked up from
// snapshot, vol from the underlying's registered surface at (strike, tau).
func (m *OptionsModel) PriceOption(underlying, target market.InstrumentId, strike, tau, r float64, isCall bool, snapshot market.MarketSnapshot) (SyntheticPrice, error) {
	if tau <= 0 {
		return SyntheticPrice{}, fmt.Errorf("pricing: non-positive time to maturity: %w", ErrModelDomain)
	}
	spot, ok := snapshot.Quote(underlying)
	if !ok {
		return SyntheticPrice{}, fmt.Errorf("pricing: underlying %s: %w", underlying, ErrUnknownInstrument)
	}
	if spot.Mid() == 0 {
		return SyntheticPrice{}, fmt.Errorf("pricing: underlying %s has no two-sided market: %w", underlying, ErrModelDomain)
	}

	surface, ok := m.surfaceFor(underlying)
	if !ok {
		return SyntheticPrice{}, fmt.Errorf("pricing: no volatility surface registered for %s: %w", underlying, ErrInsufficientHistory)
	}
	vol, err := surface.Interpolate(strike, tau)
	if err != nil {
		return SyntheticPrice{}, fmt.Errorf("pricing: interpolating vol surface: %w", err)
	}

	price, err := BlackScholesPrice(spot.Mid(), strike, r, vol, tau, isCall)
	if err != nil {
		return SyntheticPrice{}, err
	}

	spreadHalf := spot.SpreadRatio() / 2 * price
	age := time.Duration(0)
	if !snapshot.SnapshotTime.IsZero() {
		age = snapshot.SnapshotTime.Sub(spot.Timestamp)
	}
	conf := confidence(
		freshnessPenalty(age, defaultMaxAge),
		spreadPenalty(spot.SpreadRatio(), defaultMaxSpreadRatio),
		1,
	)

	return SyntheticPrice{
		Target:               target,
		TheoreticalPrice:     price,
		BidPrice:             price - spreadHalf,
		AskPrice:             price + spreadHalf,
		ConfidenceScore:      conf,
		ComponentInstruments: []market.InstrumentId{underlying},
		Weights:              []float64{1},
		CalculationTime:      snapshot.SnapshotTime,
	}, nil
}

// CalculateWeights mirrors the single-leg convention of the carry models.
func (m *OptionsModel) CalculateWeights(instruments []market.InstrumentId, _ market.MarketSnapshot) ([]float64, error) {
	weights := make([]float64, len(instruments))
	for i := range weights {
		weights[i] = 1
	}
	return weights, nil
}

// CalculateCorrelation delegates to the shared Pearson estimator.
func (m *OptionsModel) CalculateCorrelation(inst1, inst2 market.InstrumentId, history map[market.InstrumentId][]float64) (float64, error) {
	return historyCorrelation(inst1, inst2, history)
}
