package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/archon-quant/synthalpha/internal/config"
)

// Format specifies the serialization used for a parameter bundle.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ExportOptions configures Export.
type ExportOptions struct {
	Format      Format
	PrettyPrint bool
	AddComments bool
}

// DefaultExportOptions returns the conventional export options: pretty
// YAML with a header comment.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{Format: FormatYAML, PrettyPrint: true, AddComments: true}
}

// ImportOptions configures Import.
type ImportOptions struct {
	ValidateStrict bool
	GenerateNewID  bool
}

// DefaultImportOptions returns strict validation with a freshly generated
// bundle id, appropriate for importing a bundle authored elsewhere.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{ValidateStrict: true, GenerateNewID: true}
}

// Export serializes a parameter bundle to the requested format.
func Export(bundle *ParameterBundle, opts ExportOptions) ([]byte, error) {
	if bundle == nil {
		return nil, fmt.Errorf("strategy: bundle cannot be nil")
	}

	export := *bundle
	export.Metadata.UpdatedAt = time.Now()
	if export.Metadata.ID == "" {
		export.Metadata.ID = uuid.New().String()
	}
	if export.Metadata.SchemaVersion == "" {
		export.Metadata.SchemaVersion = SchemaVersion
	}
	if export.Metadata.Source == "" {
		export.Metadata.Source = "export"
	}

	switch opts.Format {
	case FormatYAML, "":
		return exportToYAML(&export, opts)
	case FormatJSON:
		return exportToJSON(&export, opts)
	default:
		return nil, fmt.Errorf("strategy: unsupported export format: %s", opts.Format)
	}
}

func exportToYAML(bundle *ParameterBundle, opts ExportOptions) ([]byte, error) {
	var buf bytes.Buffer
	if opts.AddComments {
		buf.WriteString("# synthalpha parameter bundle\n")
		buf.WriteString(fmt.Sprintf("# Schema Version: %s\n", bundle.Metadata.SchemaVersion))
		buf.WriteString(fmt.Sprintf("# Exported: %s\n\n", time.Now().Format(time.RFC3339)))
	}

	encoder := yaml.NewEncoder(&buf)
	if opts.PrettyPrint {
		encoder.SetIndent(2)
	}
	if err := encoder.Encode(bundle); err != nil {
		return nil, fmt.Errorf("strategy: encode to yaml: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("strategy: close yaml encoder: %w", err)
	}
	return buf.Bytes(), nil
}

func exportToJSON(bundle *ParameterBundle, opts ExportOptions) ([]byte, error) {
	if opts.PrettyPrint {
		return json.MarshalIndent(bundle, "", "  ")
	}
	return json.Marshal(bundle)
}

// ExportToFile writes the bundle to path, inferring format from extension
// when opts.Format is unset.
func ExportToFile(bundle *ParameterBundle, path string, opts ExportOptions) error {
	if opts.Format == "" {
		switch filepath.Ext(path) {
		case ".json":
			opts.Format = FormatJSON
		default:
			opts.Format = FormatYAML
		}
	}

	data, err := Export(bundle, opts)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("strategy: create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("strategy: write bundle file: %w", err)
	}
	return nil
}

// Import deserializes a parameter bundle, detecting YAML vs JSON from the
// first non-whitespace byte, then applies ImportOptions and validates.
func Import(data []byte, opts ImportOptions) (*ParameterBundle, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("strategy: empty bundle data")
	}

	var bundle ParameterBundle
	isJSON := false
	for _, b := range data {
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		isJSON = b == '{' || b == '['
		break
	}

	var err error
	if isJSON {
		err = json.Unmarshal(data, &bundle)
	} else {
		err = yaml.Unmarshal(data, &bundle)
	}
	if err != nil {
		return nil, fmt.Errorf("strategy: parse bundle: %w", err)
	}

	if opts.GenerateNewID {
		bundle.Metadata.ID = uuid.New().String()
	}
	bundle.Metadata.UpdatedAt = time.Now()
	if bundle.Metadata.Source == "" {
		bundle.Metadata.Source = "import"
	}

	if opts.ValidateStrict {
		if err := bundle.Validate(); err != nil {
			return nil, fmt.Errorf("strategy: bundle validation failed: %w", err)
		}
	} else if err := bundle.ValidateQuick(); err != nil {
		return nil, fmt.Errorf("strategy: bundle validation failed: %w", err)
	}

	return &bundle, nil
}

// ImportFromFile reads and imports a bundle from path.
func ImportFromFile(path string, opts ImportOptions) (*ParameterBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("strategy: read bundle file: %w", err)
	}
	bundle, err := Import(data, opts)
	if err != nil {
		return nil, fmt.Errorf("strategy: import from %s: %w", path, err)
	}
	return bundle, nil
}

// ImportFromReader reads and imports a bundle from r.
func ImportFromReader(r io.Reader, opts ImportOptions) (*ParameterBundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("strategy: read bundle: %w", err)
	}
	return Import(data, opts)
}

// Clone returns a deep, independent copy of bundle with a fresh id.
func Clone(bundle *ParameterBundle) (*ParameterBundle, error) {
	if bundle == nil {
		return nil, fmt.Errorf("strategy: bundle cannot be nil")
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("strategy: marshal bundle: %w", err)
	}
	var clone ParameterBundle
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("strategy: unmarshal bundle: %w", err)
	}
	clone.Metadata.ID = uuid.New().String()
	now := time.Now()
	clone.Metadata.CreatedAt = now
	clone.Metadata.UpdatedAt = now
	clone.Metadata.Source = "clone"
	return &clone, nil
}

// Merge clones base and overlays override's non-zero fields on top of it.
// As with any zero-value merge, an override field explicitly set to zero
// is indistinguishable from "not specified" and will not replace base.
func Merge(base, override *ParameterBundle) (*ParameterBundle, error) {
	if base == nil {
		return nil, fmt.Errorf("strategy: base bundle cannot be nil")
	}
	result, err := Clone(base)
	if err != nil {
		return nil, err
	}
	if override == nil {
		return result, nil
	}

	if override.Metadata.Name != "" {
		result.Metadata.Name = override.Metadata.Name
	}
	if override.Metadata.Description != "" {
		result.Metadata.Description = override.Metadata.Description
	}
	if len(override.Metadata.Tags) > 0 {
		result.Metadata.Tags = override.Metadata.Tags
	}

	mergeDetection(&result.Detection, &override.Detection)
	mergeArbitrage(&result.Arbitrage, &override.Arbitrage)
	mergeRisk(&result.Risk, &override.Risk)

	result.Metadata.UpdatedAt = time.Now()
	result.Metadata.Source = "merge"
	return result, nil
}

func mergeDetection(base, override *config.DetectionParameters) {
	if override.MinDeviationThreshold > 0 {
		base.MinDeviationThreshold = override.MinDeviationThreshold
	}
	if override.MinZScore > 0 {
		base.MinZScore = override.MinZScore
	}
	if override.MinConfidenceLevel > 0 {
		base.MinConfidenceLevel = override.MinConfidenceLevel
	}
	if override.MaxSpreadRatio > 0 {
		base.MaxSpreadRatio = override.MaxSpreadRatio
	}
	if override.MinObservationWindow > 0 {
		base.MinObservationWindow = override.MinObservationWindow
	}
	if override.VolatilityThreshold > 0 {
		base.VolatilityThreshold = override.VolatilityThreshold
	}
	if override.LiquidityThreshold > 0 {
		base.LiquidityThreshold = override.LiquidityThreshold
	}
	if override.MaxOpportunityTTL > 0 {
		base.MaxOpportunityTTL = override.MaxOpportunityTTL
	}
}

func mergeArbitrage(base, override *config.ArbitrageParameters) {
	if override.MinProfitThreshold > 0 {
		base.MinProfitThreshold = override.MinProfitThreshold
	}
	if override.MaxRiskPerTrade > 0 {
		base.MaxRiskPerTrade = override.MaxRiskPerTrade
	}
	if override.MaxCorrelationRisk > 0 {
		base.MaxCorrelationRisk = override.MaxCorrelationRisk
	}
	if override.MaxMarketImpact > 0 {
		base.MaxMarketImpact = override.MaxMarketImpact
	}
	if override.MaxSlippage > 0 {
		base.MaxSlippage = override.MaxSlippage
	}
	if override.MaxPositionSize > 0 {
		base.MaxPositionSize = override.MaxPositionSize
	}
	if override.MaxHoldingPeriod > 0 {
		base.MaxHoldingPeriod = override.MaxHoldingPeriod
	}
	if override.MinLiquidityRequirement > 0 {
		base.MinLiquidityRequirement = override.MinLiquidityRequirement
	}
	if override.ConfidenceThreshold > 0 {
		base.ConfidenceThreshold = override.ConfidenceThreshold
	}
	if override.ExecutionHeadroom > 0 {
		base.ExecutionHeadroom = override.ExecutionHeadroom
	}
}

func mergeRisk(base, override *config.RiskParameters) {
	if override.MaxPositionSizePercentage > 0 {
		base.MaxPositionSizePercentage = override.MaxPositionSizePercentage
	}
	if override.MaxPortfolioVaR > 0 {
		base.MaxPortfolioVaR = override.MaxPortfolioVaR
	}
	if override.MaxIndividualVaR > 0 {
		base.MaxIndividualVaR = override.MaxIndividualVaR
	}
	if override.MaxCorrelationRisk > 0 {
		base.MaxCorrelationRisk = override.MaxCorrelationRisk
	}
	if override.MaxLeverage > 0 {
		base.MaxLeverage = override.MaxLeverage
	}
	if override.MarginRequirementMultiple > 0 {
		base.MarginRequirementMultiple = override.MarginRequirementMultiple
	}
	if override.StopLossPercentage > 0 {
		base.StopLossPercentage = override.StopLossPercentage
	}
	if override.TakeProfitPercentage > 0 {
		base.TakeProfitPercentage = override.TakeProfitPercentage
	}
	if override.MaxDrawdownThreshold > 0 {
		base.MaxDrawdownThreshold = override.MaxDrawdownThreshold
	}
	if override.LiquidityRequirement > 0 {
		base.LiquidityRequirement = override.LiquidityRequirement
	}
}
