package ledger

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/common/utils"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
)

// maxNumberAttempts bounds the retries on a transaction number collision
const maxNumberAttempts = 5

// Recorder turns a posting event into one header and two balanced lines
type Recorder struct {
	repo      Repository
	numbers   *NumberGenerator
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewRecorder creates a new transaction recorder
func NewRecorder(repo Repository, numbers *NumberGenerator, logger *zap.Logger) *Recorder {
	return &Recorder{
		repo:    repo,
		numbers: numbers,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithPublisher emits a TransactionRecorded event after every successful write
func (r *Recorder) WithPublisher(p EventPublisher) *Recorder {
	r.publisher = p
	return r
}

// Record posts a balanced transaction. Header and both lines are written
// atomically; on failure nothing is persisted.
func (r *Recorder) Record(ctx context.Context, req RecordRequest) (*Transaction, error) {
	if err := validateRecordRequest(req); err != nil {
		return nil, err
	}

	now := r.now()
	date := req.Date
	if date.IsZero() {
		date = now
	}

	tx := &Transaction{
		TenantID:        req.TenantID,
		TransactionID:   ulid.Make().String(),
		Description:     req.Description,
		Reference:       req.Reference,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Source:          req.Source,
		SourceID:        req.SourceID,
		SourceReference: req.SourceReference,
		DebitAccountID:  req.DebitAccountID,
		CreditAccountID: req.CreditAccountID,
		Date:            utils.TruncateToDate(date),
		Status:          StatusPosted,
		Reconciled:      false,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	lines := buildLines(tx)

	var lastErr error
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		number, err := r.numbers.Next(ctx, req.TenantID, now)
		if err != nil {
			return nil, err
		}
		tx.Number = number

		err = r.repo.CreateTransaction(ctx, tx, lines)
		if err == nil {
			tx.Lines = lines
			r.logger.Info("transaction recorded",
				zap.String("tenantId", tx.TenantID),
				zap.String("transactionId", tx.TransactionID),
				zap.String("number", tx.Number),
				zap.String("source", string(tx.Source)),
				zap.String("sourceId", tx.SourceID),
				zap.String("amount", tx.Amount.StringFixed(2)))
			r.publish(ctx, tx)
			return tx, nil
		}

		if !stderrors.Is(err, errors.ErrNumberConflict) {
			return nil, asPersistenceError(err)
		}

		lastErr = err
		r.logger.Warn("transaction number collision, retrying",
			zap.String("tenantId", tx.TenantID),
			zap.String("number", number),
			zap.Int("attempt", attempt))
	}

	return nil, errors.NewPersistenceError(
		fmt.Sprintf("could not allocate a unique transaction number after %d attempts", maxNumberAttempts), lastErr)
}

// publish is best effort: the transaction is already committed, so a
// delivery failure is logged and never surfaces to the caller
func (r *Recorder) publish(ctx context.Context, tx *Transaction) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, newTransactionRecorded(tx)); err != nil {
		r.logger.Warn("failed to publish transaction recorded event",
			zap.String("tenantId", tx.TenantID),
			zap.String("transactionId", tx.TransactionID),
			zap.Error(err))
	}
}

// buildLines creates the debit and credit line of a two-sided posting
func buildLines(tx *Transaction) []Line {
	return []Line{
		{
			LineID:        ulid.Make().String(),
			TenantID:      tx.TenantID,
			TransactionID: tx.TransactionID,
			AccountID:     tx.DebitAccountID,
			Debit:         tx.Amount,
			Credit:        decimal.Zero,
			Description:   tx.Description,
			CreatedAt:     tx.CreatedAt,
		},
		{
			LineID:        ulid.Make().String(),
			TenantID:      tx.TenantID,
			TransactionID: tx.TransactionID,
			AccountID:     tx.CreditAccountID,
			Debit:         decimal.Zero,
			Credit:        tx.Amount,
			Description:   tx.Description,
			CreatedAt:     tx.CreatedAt,
		},
	}
}

func validateRecordRequest(req RecordRequest) error {
	if err := utils.ValidateTenantID(req.TenantID); err != nil {
		return err
	}
	if req.Amount.IsNegative() {
		return errors.NewValidationError("amount must not be negative")
	}
	if err := utils.ValidateCurrency(req.Currency); err != nil {
		return err
	}
	if !req.Source.Valid() {
		return errors.NewValidationError(fmt.Sprintf("unknown transaction source %q", req.Source))
	}
	if err := utils.ValidateRequiredString(req.SourceID, "source id"); err != nil {
		return err
	}
	if strings.TrimSpace(req.DebitAccountID) == "" || strings.TrimSpace(req.CreditAccountID) == "" {
		return errors.NewValidationError("debit and credit accounts are required")
	}
	if req.DebitAccountID == req.CreditAccountID {
		return errors.NewValidationError("debit and credit accounts must differ")
	}
	return nil
}

// asPersistenceError keeps domain errors intact and wraps anything else
func asPersistenceError(err error) error {
	var appErr errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return errors.NewPersistenceError("failed to write transaction", err)
}

// ValidateBalanced checks the double-entry invariants of a stored transaction:
// debits equal credits equal the header amount, with one debit and one credit line.
func ValidateBalanced(tx *Transaction) error {
	if len(tx.Lines) != 2 {
		return errors.NewValidationError(fmt.Sprintf("transaction %s has %d lines, expected 2", tx.Number, len(tx.Lines)))
	}

	debits, credits := decimal.Zero, decimal.Zero
	debitLines, creditLines := 0, 0
	for _, line := range tx.Lines {
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
		switch {
		case line.Debit.Equal(tx.Amount) && line.Credit.IsZero():
			debitLines++
		case line.Credit.Equal(tx.Amount) && line.Debit.IsZero():
			creditLines++
		}
	}

	if !debits.Equal(credits) || !debits.Equal(tx.Amount) {
		return errors.NewValidationError(fmt.Sprintf("transaction %s is unbalanced: debits %s, credits %s, total %s",
			tx.Number, debits.String(), credits.String(), tx.Amount.String()))
	}
	if tx.Amount.IsZero() {
		return nil
	}
	if debitLines != 1 || creditLines != 1 {
		return errors.NewValidationError(fmt.Sprintf("transaction %s must have one debit and one credit line", tx.Number))
	}
	return nil
}
