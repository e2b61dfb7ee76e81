package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
)

// LedgerRepository keeps transaction headers and lines in process memory.
// Writes hold one lock for the header and both lines, so readers never see
// a header without its lines.
type LedgerRepository struct {
	mu       sync.RWMutex
	headers  map[string]*ledger.Transaction // tenantID|transactionID
	lines    map[string][]ledger.Line       // tenantID|transactionID
	numbers  map[string]string              // tenantID|number -> transactionID
	bySource map[string]string              // tenantID|source|sourceID -> transactionID

	// BeforeLineWrite runs after the header is staged and before the lines are
	// stored. A non-nil error rolls the header back.
	BeforeLineWrite func(tx *ledger.Transaction) error
}

// NewLedgerRepository creates an empty ledger repository
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		headers:  make(map[string]*ledger.Transaction),
		lines:    make(map[string][]ledger.Line),
		numbers:  make(map[string]string),
		bySource: make(map[string]string),
	}
}

// CreateTransaction implements ledger.Repository
func (r *LedgerRepository) CreateTransaction(ctx context.Context, tx *ledger.Transaction, lines []ledger.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	numberKey := key(tx.TenantID, tx.Number)
	if _, taken := r.numbers[numberKey]; taken {
		return errors.NewNumberConflictError(tx.Number)
	}
	sourceKey := key(tx.TenantID, string(tx.Source), tx.SourceID)
	if _, posted := r.bySource[sourceKey]; posted {
		return errors.NewDuplicatePostingError(string(tx.Source), tx.SourceID)
	}

	txKey := key(tx.TenantID, tx.TransactionID)
	header := *tx
	header.Lines = nil
	r.headers[txKey] = &header
	r.numbers[numberKey] = tx.TransactionID
	r.bySource[sourceKey] = tx.TransactionID

	if r.BeforeLineWrite != nil {
		if err := r.BeforeLineWrite(tx); err != nil {
			delete(r.headers, txKey)
			delete(r.numbers, numberKey)
			delete(r.bySource, sourceKey)
			return errors.NewPersistenceError("failed to write transaction lines", err)
		}
	}

	r.lines[txKey] = append([]ledger.Line(nil), lines...)
	return nil
}

// GetTransaction implements ledger.Repository
func (r *LedgerRepository) GetTransaction(ctx context.Context, tenantID, transactionID string) (*ledger.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.withLines(tenantID, transactionID)
}

// GetTransactionByNumber implements ledger.Repository
func (r *LedgerRepository) GetTransactionByNumber(ctx context.Context, tenantID, number string) (*ledger.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transactionID, ok := r.numbers[key(tenantID, number)]
	if !ok {
		return nil, errors.NewNotFoundError("transaction not found")
	}
	return r.withLines(tenantID, transactionID)
}

// FindBySource implements ledger.Repository
func (r *LedgerRepository) FindBySource(ctx context.Context, tenantID string, source ledger.Source, sourceID string) (*ledger.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transactionID, ok := r.bySource[key(tenantID, string(source), sourceID)]
	if !ok {
		return nil, errors.NewNotFoundError("transaction not found")
	}
	return r.withLines(tenantID, transactionID)
}

// MarkReconciled implements ledger.Repository
func (r *LedgerRepository) MarkReconciled(ctx context.Context, tenantID, transactionID, userID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	header, ok := r.headers[key(tenantID, transactionID)]
	if !ok {
		return false, errors.NewNotFoundError("transaction not found")
	}
	if header.Reconciled {
		return false, nil
	}

	reconciledAt := at
	header.Reconciled = true
	header.ReconciledAt = &reconciledAt
	header.ReconciledBy = userID
	header.UpdatedAt = at
	return true, nil
}

// QueryTrail implements ledger.Repository
func (r *LedgerRepository) QueryTrail(ctx context.Context, tenantID string, filter ledger.TrailFilter) ([]*ledger.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*ledger.Transaction
	for _, header := range r.headers {
		if header.TenantID != tenantID {
			continue
		}
		if filter.DateFrom != nil && header.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && header.Date.After(*filter.DateTo) {
			continue
		}
		if filter.Source != "" && header.Source != filter.Source {
			continue
		}
		out := *header
		result = append(result, &out)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].TransactionID > result[j].TransactionID
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// SumLines implements ledger.Repository
func (r *LedgerRepository) SumLines(ctx context.Context, tenantID, accountID string) (decimal.Decimal, decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []ledger.Line
	for _, lines := range r.lines {
		for _, line := range lines {
			if line.TenantID == tenantID && line.AccountID == accountID {
				matched = append(matched, line)
			}
		}
	}

	debits, credits := ledger.SumLineAmounts(matched)
	return debits, credits, nil
}

// Count returns the number of stored headers and lines for a tenant
func (r *LedgerRepository) Count(tenantID string) (headers int, lines int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, header := range r.headers {
		if header.TenantID == tenantID {
			headers++
		}
	}
	for _, stored := range r.lines {
		for _, line := range stored {
			if line.TenantID == tenantID {
				lines++
			}
		}
	}
	return headers, lines
}

func (r *LedgerRepository) withLines(tenantID, transactionID string) (*ledger.Transaction, error) {
	txKey := key(tenantID, transactionID)
	header, ok := r.headers[txKey]
	if !ok {
		return nil, errors.NewNotFoundError("transaction not found")
	}

	out := *header
	out.Lines = append([]ledger.Line(nil), r.lines[txKey]...)
	return &out, nil
}

// SequenceStore hands out per-tenant, per-year sequence values under a mutex
type SequenceStore struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewSequenceStore creates an empty sequence store
func NewSequenceStore() *SequenceStore {
	return &SequenceStore{values: make(map[string]int64)}
}

// NextSequence implements ledger.SequenceStore
func (s *SequenceStore) NextSequence(ctx context.Context, tenantID string, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(tenantID, strconv.Itoa(year))
	s.values[k]++
	return s.values[k], nil
}
