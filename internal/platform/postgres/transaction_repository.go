package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	commonErrors "github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
)

const nextSequenceSQL = `INSERT INTO ledger_transaction_sequences (tenant_id, year, value)
VALUES (?, ?, 1)
ON CONFLICT (tenant_id, year) DO UPDATE SET value = ledger_transaction_sequences.value + 1
RETURNING value`

// TransactionRepository implements ledger.Repository and ledger.SequenceStore on PostgreSQL
type TransactionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *gorm.DB, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{db: db, logger: logger}
}

// CreateTransaction inserts the header and its lines in one database transaction
func (r *TransactionRepository) CreateTransaction(ctx context.Context, tx *ledger.Transaction, lines []ledger.Line) error {
	header := newTransactionModel(tx)
	rows := make([]TransactionLineModel, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, newLineModel(line))
	}

	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Omit("Lines").Create(header).Error; err != nil {
			return err
		}
		return db.Create(&rows).Error
	})
	if err != nil {
		return mapWriteError(tx, err)
	}
	return nil
}

func mapWriteError(tx *ledger.Transaction, err error) error {
	switch uniqueConstraint(err) {
	case idxTransactionsTenantSource:
		return commonErrors.NewDuplicatePostingError(string(tx.Source), tx.SourceID)
	case idxTransactionsTenantNumber:
		return commonErrors.NewNumberConflictError(tx.Number)
	}
	return commonErrors.NewPersistenceError("failed to write transaction", err)
}

// GetTransaction returns a header with its lines, debit side first
func (r *TransactionRepository) GetTransaction(ctx context.Context, tenantID, transactionID string) (*ledger.Transaction, error) {
	return r.first(ctx, "tenant_id = ? AND id = ?", tenantID, transactionID)
}

// GetTransactionByNumber returns a header with its lines by number
func (r *TransactionRepository) GetTransactionByNumber(ctx context.Context, tenantID, number string) (*ledger.Transaction, error) {
	return r.first(ctx, "tenant_id = ? AND number = ?", tenantID, number)
}

// FindBySource returns the transaction posted for a source document
func (r *TransactionRepository) FindBySource(ctx context.Context, tenantID string, source ledger.Source, sourceID string) (*ledger.Transaction, error) {
	return r.first(ctx, "tenant_id = ? AND source = ? AND source_id = ?", tenantID, string(source), sourceID)
}

func (r *TransactionRepository) first(ctx context.Context, query string, args ...interface{}) (*ledger.Transaction, error) {
	var model TransactionModel
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("debit DESC, id ASC")
		}).
		Where(query, args...).
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, commonErrors.NewNotFoundError("transaction not found")
		}
		return nil, commonErrors.NewInternalError("failed to get transaction", err)
	}
	return model.toTransaction(), nil
}

// MarkReconciled sets the reconciliation fields only while the row is unreconciled
func (r *TransactionRepository) MarkReconciled(ctx context.Context, tenantID, transactionID, userID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&TransactionModel{}).
		Where("tenant_id = ? AND id = ? AND reconciled = ?", tenantID, transactionID, false).
		Updates(map[string]interface{}{
			"reconciled":    true,
			"reconciled_at": at,
			"reconciled_by": userID,
			"updated_at":    at,
		})
	if res.Error != nil {
		return false, commonErrors.NewPersistenceError("failed to reconcile transaction", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&TransactionModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, transactionID).
		Count(&count).Error
	if err != nil {
		return false, commonErrors.NewInternalError("failed to get transaction", err)
	}
	if count == 0 {
		return false, commonErrors.NewNotFoundError("transaction not found")
	}
	return false, nil
}

// QueryTrail returns headers newest first by (date, id)
func (r *TransactionRepository) QueryTrail(ctx context.Context, tenantID string, filter ledger.TrailFilter) ([]*ledger.Transaction, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.DateFrom != nil {
		query = query.Where("date >= ?", filter.DateFrom.Format("2006-01-02"))
	}
	if filter.DateTo != nil {
		query = query.Where("date <= ?", filter.DateTo.Format("2006-01-02"))
	}
	if filter.Source != "" {
		query = query.Where("source = ?", string(filter.Source))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var models []TransactionModel
	if err := query.Order("date DESC, id DESC").Find(&models).Error; err != nil {
		return nil, commonErrors.NewInternalError("failed to query transactions", err)
	}

	trail := make([]*ledger.Transaction, 0, len(models))
	for i := range models {
		trail = append(trail, models[i].toTransaction())
	}
	return trail, nil
}

// SumLines aggregates the line amounts posted to an account
func (r *TransactionRepository) SumLines(ctx context.Context, tenantID, accountID string) (decimal.Decimal, decimal.Decimal, error) {
	var totals struct {
		Debit  decimal.Decimal
		Credit decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&TransactionLineModel{}).
		Select("COALESCE(SUM(debit), 0) AS debit, COALESCE(SUM(credit), 0) AS credit").
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID).
		Scan(&totals).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, commonErrors.NewInternalError("failed to sum transaction lines", err)
	}
	return totals.Debit, totals.Credit, nil
}

// NextSequence increments the (tenant, year) counter with a single upsert
func (r *TransactionRepository) NextSequence(ctx context.Context, tenantID string, year int) (int64, error) {
	var value int64
	if err := r.db.WithContext(ctx).Raw(nextSequenceSQL, tenantID, year).Scan(&value).Error; err != nil {
		return 0, commonErrors.NewPersistenceError("failed to allocate transaction number", err)
	}
	return value, nil
}
