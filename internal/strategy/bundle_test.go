package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultBundleValidates(t *testing.T) {
	bundle := NewDefaultBundle("conservative")
	require.NoError(t, bundle.Validate())
	assert.Equal(t, SchemaVersion, bundle.Metadata.SchemaVersion)
	assert.NotEmpty(t, bundle.Metadata.ID)
}

func TestValidateCatchesMissingName(t *testing.T) {
	bundle := NewDefaultBundle("")
	err := bundle.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata.name")
}

func TestValidateCatchesInvertedVaRLimits(t *testing.T) {
	bundle := NewDefaultBundle("bad-var")
	bundle.Risk.MaxIndividualVaR = bundle.Risk.MaxPortfolioVaR + 0.01
	err := bundle.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk.max_individual_var")
}

func TestValidateQuickAcceptsDefaults(t *testing.T) {
	bundle := NewDefaultBundle("quick")
	assert.NoError(t, bundle.ValidateQuick())
}

func TestValidateQuickRejectsUnsupportedSchema(t *testing.T) {
	bundle := NewDefaultBundle("old")
	bundle.Metadata.SchemaVersion = "0.1"
	assert.ErrorIs(t, bundle.ValidateQuick(), ErrInvalidSchema)
}
