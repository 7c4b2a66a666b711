package strategy

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// MigrationFunc upgrades a bundle in place from one schema version to the next.
type MigrationFunc func(*ParameterBundle) error

// Migration describes a single schema step.
type Migration struct {
	FromVersion string
	ToVersion   string
	Name        string
	Migrate     MigrationFunc
}

// registeredMigrations holds all known migrations, oldest first. There are
// none yet: SchemaVersion has only ever been "1.0".
var registeredMigrations []Migration

func init() {
	for _, m := range registeredMigrations {
		if _, err := semver.NewVersion(m.FromVersion); err != nil {
			panic(fmt.Sprintf("strategy: invalid FromVersion %q in migration %q: %v", m.FromVersion, m.Name, err))
		}
		if _, err := semver.NewVersion(m.ToVersion); err != nil {
			panic(fmt.Sprintf("strategy: invalid ToVersion %q in migration %q: %v", m.ToVersion, m.Name, err))
		}
	}
}

// Migrate upgrades bundle to SchemaVersion in place, applying any
// registered migrations in order.
func Migrate(bundle *ParameterBundle) error {
	if bundle == nil {
		return fmt.Errorf("strategy: bundle cannot be nil")
	}
	if bundle.Metadata.SchemaVersion == SchemaVersion {
		return nil
	}

	current, err := parseVersion(bundle.Metadata.SchemaVersion)
	if err != nil {
		return fmt.Errorf("strategy: invalid schema version %s: %w", bundle.Metadata.SchemaVersion, err)
	}
	target, err := parseVersion(SchemaVersion)
	if err != nil {
		return fmt.Errorf("strategy: invalid target schema version %s: %w", SchemaVersion, err)
	}
	if current.GreaterThan(target) {
		return fmt.Errorf("strategy: bundle schema %s is newer than supported version %s",
			bundle.Metadata.SchemaVersion, SchemaVersion)
	}

	for _, m := range registeredMigrations {
		migFrom := semver.MustParse(m.FromVersion)
		if current.LessThan(migFrom) || current.Equal(migFrom) {
			if err := m.Migrate(bundle); err != nil {
				return fmt.Errorf("strategy: migration %q failed: %w", m.Name, err)
			}
		}
	}

	bundle.Metadata.SchemaVersion = SchemaVersion
	return nil
}

// CheckCompatibility reports whether bundle can be migrated to SchemaVersion.
func CheckCompatibility(bundle *ParameterBundle) error {
	if bundle == nil {
		return fmt.Errorf("strategy: bundle cannot be nil")
	}
	if bundle.Metadata.SchemaVersion == "" {
		return fmt.Errorf("strategy: missing schema version")
	}

	current, err := parseVersion(bundle.Metadata.SchemaVersion)
	if err != nil {
		return fmt.Errorf("strategy: invalid schema version %s: %w", bundle.Metadata.SchemaVersion, err)
	}
	target, err := parseVersion(SchemaVersion)
	if err != nil {
		return fmt.Errorf("strategy: invalid target schema version %s: %w", SchemaVersion, err)
	}
	if current.GreaterThan(target) {
		return fmt.Errorf("strategy: bundle requires schema %s, only %s is supported",
			bundle.Metadata.SchemaVersion, SchemaVersion)
	}
	if current.LessThan(target) && current.Major() != target.Major() {
		return fmt.Errorf("strategy: no migration path from %s to %s", bundle.Metadata.SchemaVersion, SchemaVersion)
	}
	return nil
}

// parseVersion accepts both "1.0" and "1.0.0" style schema versions.
func parseVersion(v string) (*semver.Version, error) {
	parsed, err := semver.NewVersion(v)
	if err == nil {
		return parsed, nil
	}
	return semver.NewVersion(v + ".0")
}

// CompareVersions returns -1, 0, or 1 as a is less than, equal to, or
// greater than b.
func CompareVersions(a, b string) (int, error) {
	va, err := parseVersion(a)
	if err != nil {
		return 0, fmt.Errorf("strategy: invalid version %s: %w", a, err)
	}
	vb, err := parseVersion(b)
	if err != nil {
		return 0, fmt.Errorf("strategy: invalid version %s: %w", b, err)
	}
	return va.Compare(vb), nil
}
