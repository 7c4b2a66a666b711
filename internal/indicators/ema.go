package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/trend"
)

// EMA returns the most recent exponential moving average value over prices
// with the given period.
func EMA(prices []float64, period int) (float64, error) {
	if period < 1 || period > len(prices) {
		return 0, fmt.Errorf("indicators: invalid period %d for %d prices", period, len(prices))
	}

	in := make(chan float64, len(prices))
	for _, p := range prices {
		in <- p
	}
	close(in)

	ind := trend.NewEmaWithPeriod[float64](period)
	out := ind.Compute(in)

	var values []float64
	for v := range out {
		values = append(values, v)
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("indicators: no ema values computed")
	}
	return values[len(values)-1], nil
}
