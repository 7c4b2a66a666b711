package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGridSurface(t *testing.T) *VolatilitySurface {
	t.Helper()
	s := NewVolatilitySurface()
	require.NoError(t, s.Set(100, 0.25, 0.50))
	require.NoError(t, s.Set(110, 0.25, 0.55))
	require.NoError(t, s.Set(100, 0.50, 0.60))
	require.NoError(t, s.Set(110, 0.50, 0.65))
	return s
}

func TestInterpolateIdempotentAtStoredPoints(t *testing.T) {
	s := buildGridSurface(t)
	v, err := s.Interpolate(100, 0.25)
	require.NoError(t, err)
	assert.Equal(t, 0.50, v)
}

func TestInterpolateBilinearMidpoint(t *testing.T) {
	s := buildGridSurface(t)
	v, err := s.Interpolate(105, 0.375)
	require.NoError(t, err)
	assert.InDelta(t, 0.575, v, 1e-9)
}

func TestInterpolateFallsBackToATMWhenCornerMissing(t *testing.T) {
	s := NewVolatilitySurface()
	require.NoError(t, s.Set(100, 0.25, 0.40))
	require.NoError(t, s.Set(110, 0.25, 0.45))
	require.NoError(t, s.Set(100, 0.50, 0.60))

	// (105, 0.3) brackets to the corners (100|110, 0.25|0.5); (110, 0.5) has
	// no point, so ATM fallback at the nearest tau (0.25) applies:
	// (0.40 + 0.45) / 2.
	v, err := s.Interpolate(105, 0.3)
	require.NoError(t, err)
	assert.InDelta(t, 0.425, v, 1e-9)
}

func TestSetRejectsNonPositiveVol(t *testing.T) {
	s := NewVolatilitySurface()
	assert.Error(t, s.Set(100, 0.25, 0))
	assert.Error(t, s.Set(100, 0.25, -0.1))
}

func TestInterpolateOnEmptySurfaceErrors(t *testing.T) {
	s := NewVolatilitySurface()
	_, err := s.Interpolate(100, 0.25)
	assert.Error(t, err)
}

func TestATMAveragesAcrossStrikesAtNearestTau(t *testing.T) {
	s := buildGridSurface(t)
	v, err := s.ATM(0.2)
	require.NoError(t, err)
	assert.InDelta(t, 0.525, v, 1e-9)
}
