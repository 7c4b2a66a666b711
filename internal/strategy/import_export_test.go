package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportRoundTripYAML(t *testing.T) {
	bundle := NewDefaultBundle("round-trip")
	data, err := Export(bundle, DefaultExportOptions())
	require.NoError(t, err)

	imported, err := Import(data, DefaultImportOptions())
	require.NoError(t, err)
	assert.Equal(t, bundle.Arbitrage.MinProfitThreshold, imported.Arbitrage.MinProfitThreshold)
	assert.Equal(t, bundle.Detection.MinZScore, imported.Detection.MinZScore)
	assert.NotEqual(t, bundle.Metadata.ID, imported.Metadata.ID) // GenerateNewID
}

func TestExportImportRoundTripJSON(t *testing.T) {
	bundle := NewDefaultBundle("round-trip-json")
	data, err := Export(bundle, ExportOptions{Format: FormatJSON, PrettyPrint: true})
	require.NoError(t, err)

	imported, err := Import(data, ImportOptions{ValidateStrict: true})
	require.NoError(t, err)
	assert.Equal(t, bundle.Metadata.ID, imported.Metadata.ID) // GenerateNewID false
	assert.Equal(t, bundle.Risk.MaxLeverage, imported.Risk.MaxLeverage)
}

func TestImportRejectsEmptyData(t *testing.T) {
	_, err := Import(nil, DefaultImportOptions())
	assert.Error(t, err)
}

func TestImportRejectsInvalidBundle(t *testing.T) {
	bundle := NewDefaultBundle("invalid")
	bundle.Risk.MaxLeverage = -1
	data, err := Export(bundle, ExportOptions{Format: FormatJSON})
	require.NoError(t, err)

	_, err = Import(data, ImportOptions{ValidateStrict: true})
	assert.Error(t, err)
}

func TestCloneProducesIndependentCopy(t *testing.T) {
	bundle := NewDefaultBundle("clone-me")
	clone, err := Clone(bundle)
	require.NoError(t, err)
	assert.NotEqual(t, bundle.Metadata.ID, clone.Metadata.ID)

	clone.Arbitrage.MinProfitThreshold = 0.5
	assert.NotEqual(t, bundle.Arbitrage.MinProfitThreshold, clone.Arbitrage.MinProfitThreshold)
}

func TestMergeOverlaysNonZeroFields(t *testing.T) {
	base := NewDefaultBundle("base")
	override := NewDefaultBundle("override")
	override.Arbitrage.MinProfitThreshold = 0.01
	override.Risk.MaxLeverage = 5

	merged, err := Merge(base, override)
	require.NoError(t, err)
	assert.Equal(t, "override", merged.Metadata.Name)
	assert.Equal(t, 0.01, merged.Arbitrage.MinProfitThreshold)
	assert.Equal(t, 5.0, merged.Risk.MaxLeverage)
	assert.Equal(t, base.Detection.MinZScore, merged.Detection.MinZScore) // untouched field retained
}

func TestMergeNilOverrideReturnsCloneOfBase(t *testing.T) {
	base := NewDefaultBundle("base-only")
	merged, err := Merge(base, nil)
	require.NoError(t, err)
	assert.Equal(t, base.Arbitrage, merged.Arbitrage)
}
