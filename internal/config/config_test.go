package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDetectionParameters(), cfg.Detection)
	assert.Equal(t, DefaultRiskParameters(), cfg.Risk)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := Default()
	cfg.Detection.MinObservationWindow = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Risk.MaxLeverage = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Feed.StalenessBudget = 0
	assert.Error(t, cfg.Validate())
}
