// Package strategy provides import/export and versioning for the parameter
// bundles that drive detection, arbitrage, and risk behavior (§6
// Configuration), so a tuned configuration can be captured, shared, and
// restored as a single artifact.
package strategy

import (
	"time"

	"github.com/google/uuid"

	"github.com/archon-quant/synthalpha/internal/config"
)

// SchemaVersion is the current parameter bundle schema version.
const SchemaVersion = "1.0"

// ParameterBundle is an exportable snapshot of the three parameter groups
// that govern the engine: detection thresholds, arbitrage risk/profit
// limits, and portfolio-level risk limits.
type ParameterBundle struct {
	Metadata  BundleMetadata             `yaml:"metadata" json:"metadata"`
	Detection config.DetectionParameters `yaml:"detection" json:"detection"`
	Arbitrage config.ArbitrageParameters `yaml:"arbitrage" json:"arbitrage"`
	Risk      config.RiskParameters      `yaml:"risk" json:"risk"`
}

// BundleMetadata identifies and describes a parameter bundle.
type BundleMetadata struct {
	SchemaVersion string    `yaml:"schema_version" json:"schema_version"`
	ID            string    `yaml:"id,omitempty" json:"id,omitempty"`
	Name          string    `yaml:"name" json:"name"`
	Description   string    `yaml:"description,omitempty" json:"description,omitempty"`
	Tags          []string  `yaml:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt     time.Time `yaml:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt     time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
	Source        string    `yaml:"source,omitempty" json:"source,omitempty"`
}

// NewDefaultBundle returns a named bundle seeded with the package defaults
// from internal/config.
func NewDefaultBundle(name string) *ParameterBundle {
	now := time.Now()
	return &ParameterBundle{
		Metadata: BundleMetadata{
			SchemaVersion: SchemaVersion,
			ID:            uuid.New().String(),
			Name:          name,
			CreatedAt:     now,
			UpdatedAt:     now,
			Source:        "default",
		},
		Detection: config.DefaultDetectionParameters(),
		Arbitrage: config.DefaultArbitrageParameters(),
		Risk:      config.DefaultRiskParameters(),
	}
}
