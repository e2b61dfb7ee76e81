package ledger_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
	"github.com/hirosato/ledger-engine/backend/internal/platform/memory"
)

func newRecorder(repo ledger.Repository) *ledger.Recorder {
	return ledger.NewRecorder(repo, ledger.NewNumberGenerator(memory.NewSequenceStore()), zap.NewNop())
}

func invoiceRequest(tenantID, sourceID string, amount string) ledger.RecordRequest {
	return ledger.RecordRequest{
		TenantID:        tenantID,
		Description:     "Invoice " + sourceID,
		Amount:          decimal.RequireFromString(amount),
		Currency:        "USD",
		Source:          ledger.SourceInvoice,
		SourceID:        sourceID,
		SourceReference: "INV-" + sourceID,
		DebitAccountID:  "acc-receivable",
		CreditAccountID: "acc-revenue",
		CreatedBy:       "user-1",
	}
}

func TestRecorder_Record(t *testing.T) {
	repo := memory.NewLedgerRepository()
	recorder := newRecorder(repo)
	ctx := context.Background()

	tx, err := recorder.Record(ctx, invoiceRequest("tenant-1", "inv-1", "5450.00"))
	require.NoError(t, err)

	assert.Regexp(t, ledger.NumberPattern, tx.Number)
	assert.Equal(t, ledger.FormatNumber(time.Now().UTC().Year(), 1), tx.Number)
	assert.Equal(t, ledger.StatusPosted, tx.Status)
	assert.False(t, tx.Reconciled)
	assert.Nil(t, tx.ReconciledAt)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("5450.00")))
	assert.Equal(t, 0, tx.Date.Hour())
	require.Len(t, tx.Lines, 2)

	debit, credit := tx.Lines[0], tx.Lines[1]
	assert.Equal(t, "acc-receivable", debit.AccountID)
	assert.True(t, debit.Debit.Equal(tx.Amount))
	assert.True(t, debit.Credit.IsZero())
	assert.Equal(t, "acc-revenue", credit.AccountID)
	assert.True(t, credit.Debit.IsZero())
	assert.True(t, credit.Credit.Equal(tx.Amount))
	assert.NoError(t, ledger.ValidateBalanced(tx))

	stored, err := repo.GetTransaction(ctx, "tenant-1", tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, tx.Number, stored.Number)
	assert.Len(t, stored.Lines, 2)
	assert.NoError(t, ledger.ValidateBalanced(stored))
}

func TestRecorder_Record_UsesPostingDate(t *testing.T) {
	recorder := newRecorder(memory.NewLedgerRepository())

	req := invoiceRequest("tenant-1", "inv-1", "10")
	req.Date = time.Date(2024, 3, 15, 17, 45, 0, 0, time.UTC)

	tx, err := recorder.Record(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), tx.Date)
}

func TestRecorder_Record_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ledger.RecordRequest)
		code   string
	}{
		{
			name:   "missing tenant",
			mutate: func(r *ledger.RecordRequest) { r.TenantID = "" },
			code:   errors.CodeTenant,
		},
		{
			name:   "negative amount",
			mutate: func(r *ledger.RecordRequest) { r.Amount = decimal.NewFromInt(-1) },
			code:   errors.CodeValidation,
		},
		{
			name:   "bad currency",
			mutate: func(r *ledger.RecordRequest) { r.Currency = "usd" },
			code:   errors.CodeValidation,
		},
		{
			name:   "unknown source",
			mutate: func(r *ledger.RecordRequest) { r.Source = "refund" },
			code:   errors.CodeValidation,
		},
		{
			name:   "missing source id",
			mutate: func(r *ledger.RecordRequest) { r.SourceID = " " },
			code:   errors.CodeValidation,
		},
		{
			name:   "same debit and credit account",
			mutate: func(r *ledger.RecordRequest) { r.CreditAccountID = r.DebitAccountID },
			code:   errors.CodeValidation,
		},
		{
			name:   "missing credit account",
			mutate: func(r *ledger.RecordRequest) { r.CreditAccountID = "" },
			code:   errors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.NewLedgerRepository()
			req := invoiceRequest("tenant-1", "inv-1", "100")
			tt.mutate(&req)

			tx, err := newRecorder(repo).Record(context.Background(), req)
			require.Error(t, err)
			assert.Nil(t, tx)
			assert.Equal(t, tt.code, errors.As(err).Code)

			headers, lines := repo.Count("tenant-1")
			assert.Zero(t, headers)
			assert.Zero(t, lines)
		})
	}
}

func TestRecorder_Record_ZeroAmount(t *testing.T) {
	tx, err := newRecorder(memory.NewLedgerRepository()).Record(context.Background(), invoiceRequest("tenant-1", "inv-0", "0"))
	require.NoError(t, err)
	assert.True(t, tx.Amount.IsZero())
	assert.NoError(t, ledger.ValidateBalanced(tx))
}

func TestRecorder_Record_RollsBackWhenLineWriteFails(t *testing.T) {
	repo := memory.NewLedgerRepository()
	repo.BeforeLineWrite = func(tx *ledger.Transaction) error {
		return fmt.Errorf("disk full")
	}
	ctx := context.Background()

	tx, err := newRecorder(repo).Record(ctx, invoiceRequest("tenant-1", "inv-1", "99.99"))
	require.Error(t, err)
	assert.Nil(t, tx)
	assert.True(t, stderrors.Is(err, errors.ErrPersistence))

	_, err = repo.GetTransactionByNumber(ctx, "tenant-1", ledger.FormatNumber(time.Now().UTC().Year(), 1))
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))

	_, err = repo.FindBySource(ctx, "tenant-1", ledger.SourceInvoice, "inv-1")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))

	headers, lines := repo.Count("tenant-1")
	assert.Zero(t, headers)
	assert.Zero(t, lines)
}

func TestRecorder_Record_ConcurrentNumbersAreUnique(t *testing.T) {
	const n = 50
	repo := memory.NewLedgerRepository()
	recorder := newRecorder(repo)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]struct{}, n)
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx, err := recorder.Record(ctx, invoiceRequest("tenant-1", fmt.Sprintf("inv-%d", i), "1.00"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[tx.Number] = struct{}{}
		}(i)
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, numbers, n)

	headers, lines := repo.Count("tenant-1")
	assert.Equal(t, n, headers)
	assert.Equal(t, 2*n, lines)
}

func TestRecorder_Record_RetriesOnNumberConflict(t *testing.T) {
	repo := memory.NewLedgerRepository()
	ctx := context.Background()
	year := time.Now().UTC().Year()

	// A row imported with the number the sequence is about to hand out
	require.NoError(t, repo.CreateTransaction(ctx, &ledger.Transaction{
		TenantID:      "tenant-1",
		TransactionID: "imported",
		Number:        ledger.FormatNumber(year, 1),
		Source:        ledger.SourceInvoice,
		SourceID:      "legacy",
	}, nil))

	tx, err := newRecorder(repo).Record(ctx, invoiceRequest("tenant-1", "inv-1", "10"))
	require.NoError(t, err)
	assert.Equal(t, ledger.FormatNumber(year, 2), tx.Number)
}

type conflictingRepository struct {
	ledger.Repository
	calls int
}

func (r *conflictingRepository) CreateTransaction(ctx context.Context, tx *ledger.Transaction, lines []ledger.Line) error {
	r.calls++
	return errors.NewNumberConflictError(tx.Number)
}

func TestRecorder_Record_GivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := &conflictingRepository{Repository: memory.NewLedgerRepository()}

	tx, err := newRecorder(repo).Record(context.Background(), invoiceRequest("tenant-1", "inv-1", "10"))
	require.Error(t, err)
	assert.Nil(t, tx)
	assert.True(t, stderrors.Is(err, errors.ErrPersistence))
	assert.Equal(t, 5, repo.calls)
}

func TestRecorder_Record_DuplicatePosting(t *testing.T) {
	recorder := newRecorder(memory.NewLedgerRepository())
	ctx := context.Background()

	_, err := recorder.Record(ctx, invoiceRequest("tenant-1", "inv-1", "10"))
	require.NoError(t, err)

	_, err = recorder.Record(ctx, invoiceRequest("tenant-1", "inv-1", "10"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrDuplicatePosting))

	// The same document id under another tenant is a different posting
	_, err = recorder.Record(ctx, invoiceRequest("tenant-2", "inv-1", "10"))
	assert.NoError(t, err)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []ledger.TransactionRecorded
	err    error
}

func (p *capturePublisher) Publish(ctx context.Context, event ledger.TransactionRecorded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func TestRecorder_Record_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	publisher := &capturePublisher{}
	recorder := newRecorder(memory.NewLedgerRepository()).WithPublisher(publisher)

	tx, err := recorder.Record(ctx, invoiceRequest("tenant-1", "inv-1", "99.95"))
	require.NoError(t, err)
	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, tx.TransactionID, event.TransactionID)
	assert.Equal(t, tx.Number, event.Number)
	assert.Equal(t, "INV-inv-1", event.SourceReference)
	assert.True(t, event.Amount.Equal(decimal.RequireFromString("99.95")))

	// Rejected postings emit nothing
	_, err = recorder.Record(ctx, invoiceRequest("tenant-1", "inv-1", "99.95"))
	require.Error(t, err)
	assert.Len(t, publisher.events, 1)

	// A broken publisher never fails a committed posting
	publisher.err = fmt.Errorf("broker unavailable")
	_, err = recorder.Record(ctx, invoiceRequest("tenant-1", "inv-2", "5"))
	assert.NoError(t, err)
	assert.Len(t, publisher.events, 2)
}

func TestValidateBalanced(t *testing.T) {
	amount := decimal.RequireFromString("12.50")
	line := func(debit, credit string) ledger.Line {
		return ledger.Line{Debit: decimal.RequireFromString(debit), Credit: decimal.RequireFromString(credit)}
	}

	tests := []struct {
		name    string
		lines   []ledger.Line
		wantErr bool
	}{
		{name: "balanced", lines: []ledger.Line{line("12.50", "0"), line("0", "12.50")}},
		{name: "single line", lines: []ledger.Line{line("12.50", "0")}, wantErr: true},
		{name: "three lines", lines: []ledger.Line{line("12.50", "0"), line("0", "12.50"), line("0", "0")}, wantErr: true},
		{name: "unbalanced", lines: []ledger.Line{line("12.50", "0"), line("0", "12.00")}, wantErr: true},
		{name: "two debits", lines: []ledger.Line{line("6.25", "0"), line("6.25", "0")}, wantErr: true},
		{name: "mixed sides", lines: []ledger.Line{line("12.50", "12.50"), line("0", "0")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ledger.ValidateBalanced(&ledger.Transaction{Number: "TXN-2024-000001", Amount: amount, Lines: tt.lines})
			if tt.wantErr {
				assert.True(t, stderrors.Is(err, errors.ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
