package arbitrage

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// IDGenerator produces opportunity ids. Injectable so tests can assert on
// deterministic ids.
type IDGenerator interface {
	NewID(triangular bool) string
}

// EpochRandomIDGenerator is the production IDGenerator: format
// ARB_<epoch_ms>_<4-digit-random> (or TRIANG_<…> for triangular
// specializations), per §4.5.
type EpochRandomIDGenerator struct {
	now func() time.Time
}

// NewEpochRandomIDGenerator returns the default production generator.
func NewEpochRandomIDGenerator() *EpochRandomIDGenerator {
	return &EpochRandomIDGenerator{now: time.Now}
}

func (g *EpochRandomIDGenerator) NewID(triangular bool) string {
	prefix := "ARB"
	if triangular {
		prefix = "TRIANG"
	}
	epochMS := g.now().UnixMilli()
	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		suffix = big.NewInt(0)
	}
	return fmt.Sprintf("%s_%d_%04d", prefix, epochMS, suffix.Int64())
}
