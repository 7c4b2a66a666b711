package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateNoOpAtCurrentVersion(t *testing.T) {
	bundle := NewDefaultBundle("current")
	require.NoError(t, Migrate(bundle))
	assert.Equal(t, SchemaVersion, bundle.Metadata.SchemaVersion)
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	bundle := NewDefaultBundle("future")
	bundle.Metadata.SchemaVersion = "2.0"
	assert.Error(t, Migrate(bundle))
}

func TestCheckCompatibilityAcceptsCurrentVersion(t *testing.T) {
	bundle := NewDefaultBundle("compat")
	assert.NoError(t, CheckCompatibility(bundle))
}

func TestCheckCompatibilityRejectsMissingVersion(t *testing.T) {
	bundle := NewDefaultBundle("no-version")
	bundle.Metadata.SchemaVersion = ""
	assert.Error(t, CheckCompatibility(bundle))
}

func TestCompareVersionsOrdering(t *testing.T) {
	cmp, err := CompareVersions("1.0", "2.0")
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)

	cmp, err = CompareVersions("1.0", "1.0")
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)
}
