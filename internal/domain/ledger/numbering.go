package ledger

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/hirosato/ledger-engine/backend/internal/common/utils"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
)

// NumberPattern matches generated transaction numbers
var NumberPattern = regexp.MustCompile(`^TXN-\d{4}-\d{6,}$`)

// FormatNumber renders a transaction number as TXN-<year>-<6-digit sequence>
func FormatNumber(year int, seq int64) string {
	return fmt.Sprintf("TXN-%04d-%06d", year, seq)
}

// NumberGenerator allocates human-readable transaction numbers.
// Sequences are bucketed per tenant and calendar year and come from the
// storage layer, so concurrent callers never observe the same value.
type NumberGenerator struct {
	seq SequenceStore
}

// NewNumberGenerator creates a new number generator
func NewNumberGenerator(seq SequenceStore) *NumberGenerator {
	return &NumberGenerator{seq: seq}
}

// Next returns the next number for the tenant in the year of at
func (g *NumberGenerator) Next(ctx context.Context, tenantID string, at time.Time) (string, error) {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return "", err
	}

	year := at.UTC().Year()
	value, err := g.seq.NextSequence(ctx, tenantID, year)
	if err != nil {
		return "", errors.NewPersistenceError("failed to allocate transaction number", err)
	}

	return FormatNumber(year, value), nil
}
