// Package indicators provides rolling statistical primitives used by the
// pricing package: Bollinger bands and a rolling mean for the statistical
// arbitrage model, a rolling standard deviation for realized volatility,
// and an EMA helper.
package indicators

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/volatility"
)

// BollingerBands is the most recent upper/middle/lower band values computed
// over a price series.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger computes Bollinger bands over prices using a k-standard-deviation
// envelope around the period-length rolling mean. cinar/indicator fixes the
// envelope at 2 sigma internally; for k != 2 the envelope is rescaled from
// the computed middle/upper spread.
func Bollinger(prices []float64, period int, k float64) (BollingerBands, error) {
	if period < 2 || period > len(prices) {
		return BollingerBands{}, fmt.Errorf("indicators: invalid period %d for %d prices", period, len(prices))
	}
	if k <= 0 {
		return BollingerBands{}, fmt.Errorf("indicators: k must be > 0, got %f", k)
	}

	in := make(chan float64, len(prices))
	for _, p := range prices {
		in <- p
	}
	close(in)

	bb := volatility.NewBollingerBandsWithPeriod[float64](period)
	lowerCh, middleCh, upperCh := bb.Compute(in)

	var lower, middle, upper []float64
	for {
		l, lok := <-lowerCh
		m, mok := <-middleCh
		u, uok := <-upperCh
		if !lok || !mok || !uok {
			break
		}
		lower = append(lower, l)
		middle = append(middle, m)
		upper = append(upper, u)
	}
	if len(middle) == 0 {
		return BollingerBands{}, fmt.Errorf("indicators: no bollinger values computed")
	}

	m := middle[len(middle)-1]
	spread := (upper[len(upper)-1] - m) * (k / 2.0)

	return BollingerBands{
		Upper:  m + spread,
		Middle: m,
		Lower:  m - spread,
	}, nil
}

// RollingMean returns the arithmetic mean of samples.
func RollingMean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

// RollingStdDev returns the unbiased (n-1) sample standard deviation of
// samples. Returns 0 for fewer than two samples.
func RollingStdDev(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	mean := RollingMean(samples)
	var sumSq float64
	for _, s := range samples {
		d := s - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(samples)-1))
}
