package market

import (
	"fmt"
	"sort"
	"sync"
)

// volPoint is one (strike, time-to-expiry) -> implied-vol observation.
type volPoint struct {
	strike float64
	tau    float64
	vol    float64
}

// VolatilitySurface maps (strike, time-to-expiry) to implied volatility and
// supports bilinear interpolation plus an ATM query by spot price (§3).
// Safe for concurrent use; callers get a consistent read even while the
// model feeding it is appending new points.
type VolatilitySurface struct {
	mu     sync.RWMutex
	points []volPoint
}

// NewVolatilitySurface returns an empty surface.
func NewVolatilitySurface() *VolatilitySurface {
	return &VolatilitySurface{}
}

// Set records or overwrites the implied vol at (strike, tau).
func (s *VolatilitySurface) Set(strike, tau, vol float64) error {
	if vol <= 0 {
		return fmt.Errorf("market: implied vol must be > 0, got %f", vol)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.points {
		if p.strike == strike && p.tau == tau {
			s.points[i].vol = vol
			return nil
		}
	}
	s.points = append(s.points, volPoint{strike: strike, tau: tau, vol: vol})
	return nil
}

// strikes and taus return the sorted, de-duplicated grid axes.
func (s *VolatilitySurface) strikes() []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, p := range s.points {
		if !seen[p.strike] {
			seen[p.strike] = true
			out = append(out, p.strike)
		}
	}
	sort.Float64s(out)
	return out
}

func (s *VolatilitySurface) taus() []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, p := range s.points {
		if !seen[p.tau] {
			seen[p.tau] = true
			out = append(out, p.tau)
		}
	}
	sort.Float64s(out)
	return out
}

func (s *VolatilitySurface) lookup(strike, tau float64) (float64, bool) {
	for _, p := range s.points {
		if p.strike == strike && p.tau == tau {
			return p.vol, true
		}
	}
	return 0, false
}

// bracket finds the two grid values surrounding x, returning (lo, hi, frac)
// where frac in [0,1] is x's position between lo and hi. If x is outside
// the grid or the grid has one point, lo == hi and frac == 0.
func bracket(axis []float64, x float64) (lo, hi, frac float64) {
	if len(axis) == 0 {
		return 0, 0, 0
	}
	if len(axis) == 1 || x <= axis[0] {
		return axis[0], axis[0], 0
	}
	if x >= axis[len(axis)-1] {
		last := axis[len(axis)-1]
		return last, last, 0
	}
	for i := 1; i < len(axis); i++ {
		if x <= axis[i] {
			lo, hi = axis[i-1], axis[i]
			if hi == lo {
				return lo, hi, 0
			}
			return lo, hi, (x - lo) / (hi - lo)
		}
	}
	last := axis[len(axis)-1]
	return last, last, 0
}

// Interpolate performs bilinear interpolation of implied vol at
// (strike, tau). Missing corners fall back to the ATM volatility for tau
// (the average of vols observed at the closest tau across all strikes).
// Interpolate is idempotent at stored grid points.
func (s *VolatilitySurface) Interpolate(strike, tau float64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.points) == 0 {
		return 0, fmt.Errorf("market: volatility surface is empty")
	}

	if v, ok := s.lookup(strike, tau); ok {
		return v, nil
	}

	kAxis := s.strikes()
	tAxis := s.taus()

	kLo, kHi, kFrac := bracket(kAxis, strike)
	tLo, tHi, tFrac := bracket(tAxis, tau)

	v00, ok00 := s.lookup(kLo, tLo)
	v10, ok10 := s.lookup(kHi, tLo)
	v01, ok01 := s.lookup(kLo, tHi)
	v11, ok11 := s.lookup(kHi, tHi)

	if !ok00 || !ok10 || !ok01 || !ok11 {
		atm, err := s.atmLocked(tau)
		if err != nil {
			return 0, err
		}
		return atm, nil
	}

	top := v00*(1-kFrac) + v10*kFrac
	bottom := v01*(1-kFrac) + v11*kFrac
	return top*(1-tFrac) + bottom*tFrac, nil
}

// ATM returns the average implied volatility across strikes at the grid
// tau closest to the requested time-to-expiry.
func (s *VolatilitySurface) ATM(tau float64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.atmLocked(tau)
}

func (s *VolatilitySurface) atmLocked(tau float64) (float64, error) {
	if len(s.points) == 0 {
		return 0, fmt.Errorf("market: volatility surface is empty")
	}
	best := s.points[0].tau
	bestDist := abs(s.points[0].tau - tau)
	for _, p := range s.points {
		d := abs(p.tau - tau)
		if d < bestDist {
			best = p.tau
			bestDist = d
		}
	}
	var sum float64
	var n int
	for _, p := range s.points {
		if p.tau == best {
			sum += p.vol
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("market: no volatility points at tau=%f", best)
	}
	return sum / float64(n), nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
