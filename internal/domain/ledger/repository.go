package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository defines the interface for ledger persistence.
// Every query is partitioned by tenant.
type Repository interface {
	// CreateTransaction writes the header and its lines in one storage transaction.
	// It fails with ErrNumberConflict when the number is taken in the tenant and with
	// ErrDuplicatePosting when (tenant, source, sourceID) is already posted. On any
	// failure no row is left behind.
	CreateTransaction(ctx context.Context, tx *Transaction, lines []Line) error

	// GetTransaction returns a header with its lines
	GetTransaction(ctx context.Context, tenantID string, transactionID string) (*Transaction, error)

	// GetTransactionByNumber returns a header with its lines by its generated number
	GetTransactionByNumber(ctx context.Context, tenantID string, number string) (*Transaction, error)

	// FindBySource returns the transaction posted for a source document
	FindBySource(ctx context.Context, tenantID string, source Source, sourceID string) (*Transaction, error)

	// MarkReconciled flags a transaction reconciled. It reports false, without
	// touching the row, when the transaction was already reconciled.
	MarkReconciled(ctx context.Context, tenantID string, transactionID string, userID string, at time.Time) (bool, error)

	// QueryTrail returns headers filtered by date range and source, newest first by
	// (date, id), at most filter.Limit rows. SearchText is not applied here.
	QueryTrail(ctx context.Context, tenantID string, filter TrailFilter) ([]*Transaction, error)

	// SumLines aggregates the debit and credit amounts posted to an account
	SumLines(ctx context.Context, tenantID string, accountID string) (decimal.Decimal, decimal.Decimal, error)
}

// SequenceStore hands out per-tenant, per-year sequence values.
// Implementations must be atomic at the storage layer; a value is never returned twice.
type SequenceStore interface {
	NextSequence(ctx context.Context, tenantID string, year int) (int64, error)
}
