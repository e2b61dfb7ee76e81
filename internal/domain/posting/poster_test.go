package posting_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	"github.com/hirosato/ledger-engine/backend/internal/domain/document"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
	"github.com/hirosato/ledger-engine/backend/internal/domain/posting"
	"github.com/hirosato/ledger-engine/backend/internal/platform/memory"
)

type harness struct {
	docs     *memory.DocumentStore
	repo     *memory.LedgerRepository
	accounts *account.Service
	service  *ledger.Service
	adapters posting.Registry
	logs     *observer.ObservedLogs
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	accountRepo := memory.NewAccountRepository()
	h := &harness{
		docs:     memory.NewDocumentStore(),
		repo:     memory.NewLedgerRepository(),
		accounts: account.NewService(accountRepo, logger),
		logs:     logs,
	}
	h.service = ledger.NewService(h.repo, accountRepo, logger)

	recorder := ledger.NewRecorder(h.repo, ledger.NewNumberGenerator(memory.NewSequenceStore()), logger)
	poster := posting.NewPoster(recorder, h.accounts, h.repo, logger)
	h.adapters = posting.NewRegistry(poster, h.docs)
	return h
}

func (h *harness) setupChart(t *testing.T, tenantID string) {
	t.Helper()
	_, err := h.accounts.SetupDefaultChart(context.Background(), tenantID, "USD")
	require.NoError(t, err)
}

func (h *harness) accountByCode(t *testing.T, tenantID, code string) *account.Account {
	t.Helper()
	acc, err := h.accounts.FindAccountByCode(context.Background(), tenantID, code)
	require.NoError(t, err)
	return acc
}

func (h *harness) putDocument(kind document.Kind, tenantID, id, number, amount string, date time.Time) {
	h.docs.Put(&document.Document{
		ID:       id,
		TenantID: tenantID,
		Kind:     kind,
		Number:   number,
		Amount:   decimal.RequireFromString(amount),
		Currency: "USD",
		Date:     date,
	})
}

func TestAdapters_Scenarios(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	postedOn := time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC)
	h.setupChart(t, "1")

	// Scenario 1: invoice INV-1001
	h.putDocument(document.Invoice, "1", "inv-1", "INV-1001", "5450.00", postedOn)
	invoiceTx, err := h.adapters[document.Invoice].PostFor(ctx, "inv-1", "1", "user-1")
	require.NoError(t, err)

	receivable := h.accountByCode(t, "1", account.CodeAccountsReceivable)
	revenue := h.accountByCode(t, "1", account.CodeSalesRevenue)
	assert.Equal(t, ledger.SourceInvoice, invoiceTx.Source)
	assert.Equal(t, "inv-1", invoiceTx.SourceID)
	assert.Equal(t, "INV-1001", invoiceTx.SourceReference)
	assert.Equal(t, "5450.00", invoiceTx.Amount.StringFixed(2))
	assert.Equal(t, receivable.AccountID, invoiceTx.DebitAccountID)
	assert.Equal(t, revenue.AccountID, invoiceTx.CreditAccountID)
	require.Len(t, invoiceTx.Lines, 2)
	assert.Equal(t, "5450.00", invoiceTx.Lines[0].Debit.StringFixed(2))
	assert.Equal(t, "0.00", invoiceTx.Lines[0].Credit.StringFixed(2))
	assert.Equal(t, "0.00", invoiceTx.Lines[1].Debit.StringFixed(2))
	assert.Equal(t, "5450.00", invoiceTx.Lines[1].Credit.StringFixed(2))

	// Scenario 2: bill BILL-2002 against 500/210
	h.putDocument(document.Bill, "1", "bill-1", "BILL-2002", "1200.50", postedOn.AddDate(0, 0, 1))
	billTx, err := h.adapters[document.Bill].PostFor(ctx, "bill-1", "1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.SourceBill, billTx.Source)
	assert.Equal(t, h.accountByCode(t, "1", account.CodeOperatingExpense).AccountID, billTx.DebitAccountID)
	assert.Equal(t, h.accountByCode(t, "1", account.CodeAccountsPayable).AccountID, billTx.CreditAccountID)
	assert.True(t, billTx.Lines[0].Debit.Equal(decimal.RequireFromString("1200.50")))
	assert.True(t, billTx.Lines[1].Credit.Equal(decimal.RequireFromString("1200.50")))
	assert.NoError(t, ledger.ValidateBalanced(billTx))

	// Scenario 3: tenant 5 has no Cash account
	for _, entry := range account.DefaultChart {
		if entry.Code == account.CodeCash {
			continue
		}
		_, err := h.accounts.CreateAccount(ctx, "5", &account.CreateAccountRequest{
			Code: entry.Code, Name: entry.Name, AccountType: entry.AccountType, Currency: "USD",
		})
		require.NoError(t, err)
	}
	h.putDocument(document.Payment, "5", "pay-1", "PAY-1", "100.00", postedOn)
	paymentTx, err := h.adapters[document.Payment].PostFor(ctx, "pay-1", "5", "user-1")
	require.Error(t, err)
	assert.Nil(t, paymentTx)
	assert.True(t, stderrors.Is(err, errors.ErrAccountNotFound))
	assert.True(t, errors.IsConfigurationError(err))
	headers, lines := h.repo.Count("5")
	assert.Zero(t, headers)
	assert.Zero(t, lines)

	// Scenario 4: trail for tenant 1, invoices on scenario 1's date
	from, to := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	entries, err := h.service.QueryTrail(ctx, "1", ledger.TrailFilter{DateFrom: &from, DateTo: &to, Source: ledger.SourceInvoice})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, invoiceTx.TransactionID, entries[0].TransactionID)
	assert.Equal(t, "Accounts Receivable", entries[0].DebitAccount.Name)
	assert.Equal(t, "Sales Revenue", entries[0].CreditAccount.Name)

	// Scenario 5: reconcile twice
	require.NoError(t, h.service.Reconcile(ctx, "1", invoiceTx.TransactionID, "user-1"))
	reconciled, err := h.service.GetTransaction(ctx, "1", invoiceTx.TransactionID)
	require.NoError(t, err)
	assert.True(t, reconciled.Reconciled)
	require.NoError(t, h.service.Reconcile(ctx, "1", invoiceTx.TransactionID, "user-1"))
	again, err := h.service.GetTransaction(ctx, "1", invoiceTx.TransactionID)
	require.NoError(t, err)
	assert.True(t, again.Reconciled)
	assert.Equal(t, reconciled.ReconciledAt, again.ReconciledAt)
}

func TestAdapters_AccountPairs(t *testing.T) {
	tests := []struct {
		kind       document.Kind
		source     ledger.Source
		debitCode  string
		creditCode string
	}{
		{document.Invoice, ledger.SourceInvoice, account.CodeAccountsReceivable, account.CodeSalesRevenue},
		{document.Bill, ledger.SourceBill, account.CodeOperatingExpense, account.CodeAccountsPayable},
		{document.Payment, ledger.SourcePayment, account.CodeCash, account.CodeAccountsReceivable},
		{document.CreditNote, ledger.SourceCreditNote, account.CodeSalesReturns, account.CodeAccountsReceivable},
		{document.Expense, ledger.SourceExpense, account.CodeOperatingExpense, account.CodeCash},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			h := newHarness(t)
			h.setupChart(t, "tenant-1")
			h.putDocument(tt.kind, "tenant-1", "doc-1", "DOC-1", "42.10", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))

			adapter := h.adapters[tt.kind]
			require.NotNil(t, adapter)
			assert.Equal(t, tt.source, adapter.Source())

			tx, err := adapter.PostFor(context.Background(), "doc-1", "tenant-1", "user-1")
			require.NoError(t, err)
			assert.Equal(t, tt.source, tx.Source)
			assert.Equal(t, h.accountByCode(t, "tenant-1", tt.debitCode).AccountID, tx.DebitAccountID)
			assert.Equal(t, h.accountByCode(t, "tenant-1", tt.creditCode).AccountID, tx.CreditAccountID)
			assert.Equal(t, "USD", tx.Currency)
			assert.Equal(t, "user-1", tx.CreatedBy)
			assert.NoError(t, ledger.ValidateBalanced(tx))
		})
	}
}

func TestAdapter_PostFor_IsNoOpForPostedDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setupChart(t, "tenant-1")
	h.putDocument(document.Invoice, "tenant-1", "inv-1", "INV-1", "10.00", time.Now())

	first, err := h.adapters[document.Invoice].PostFor(ctx, "inv-1", "tenant-1", "user-1")
	require.NoError(t, err)
	second, err := h.adapters[document.Invoice].PostFor(ctx, "inv-1", "tenant-1", "user-2")
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, first.Number, second.Number)
	headers, lines := h.repo.Count("tenant-1")
	assert.Equal(t, 1, headers)
	assert.Equal(t, 2, lines)
}

func TestAdapter_PostFor_DocumentNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setupChart(t, "tenant-1")
	h.setupChart(t, "tenant-2")
	h.putDocument(document.Invoice, "tenant-1", "inv-1", "INV-1", "10.00", time.Now())

	tests := []struct {
		name       string
		documentID string
		tenantID   string
	}{
		{"absent", "inv-404", "tenant-1"},
		{"other tenant", "inv-1", "tenant-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := h.adapters[document.Invoice].PostFor(ctx, tt.documentID, tt.tenantID, "user-1")
			assert.Nil(t, tx)
			assert.True(t, stderrors.Is(err, errors.ErrDocumentNotFound))
			assert.False(t, errors.IsConfigurationError(err))
		})
	}

	headers, _ := h.repo.Count("tenant-2")
	assert.Zero(t, headers)
}

func TestAdapter_PostFor_InactiveAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setupChart(t, "tenant-1")
	h.putDocument(document.Expense, "tenant-1", "exp-1", "EXP-1", "15.00", time.Now())

	cash := h.accountByCode(t, "tenant-1", account.CodeCash)
	require.NoError(t, h.accounts.DeactivateAccount(ctx, "tenant-1", cash.AccountID))

	_, err := h.adapters[document.Expense].PostFor(ctx, "exp-1", "tenant-1", "user-1")
	assert.True(t, stderrors.Is(err, errors.ErrAccountInactive))
	assert.True(t, errors.IsConfigurationError(err))

	headers, lines := h.repo.Count("tenant-1")
	assert.Zero(t, headers)
	assert.Zero(t, lines)
}

func TestAdapter_PostFor_ZeroAmountIsFlagged(t *testing.T) {
	h := newHarness(t)
	h.setupChart(t, "tenant-1")
	h.putDocument(document.CreditNote, "tenant-1", "cn-1", "CN-1", "0", time.Now())

	tx, err := h.adapters[document.CreditNote].PostFor(context.Background(), "cn-1", "tenant-1", "user-1")
	require.NoError(t, err)
	assert.True(t, tx.Amount.IsZero())

	warnings := h.logs.FilterMessage("posting zero-amount document").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
}

type failingDocuments struct{}

func (failingDocuments) GetByID(ctx context.Context, id, tenantID string) (*document.Document, error) {
	return nil, fmt.Errorf("connection reset")
}

func TestAdapter_PostFor_PropagatesLoadErrors(t *testing.T) {
	h := newHarness(t)
	recorder := ledger.NewRecorder(h.repo, ledger.NewNumberGenerator(memory.NewSequenceStore()), zap.NewNop())
	adapter := posting.NewInvoiceAdapter(posting.NewPoster(recorder, h.accounts, h.repo, zap.NewNop()), failingDocuments{})

	_, err := adapter.PostFor(context.Background(), "inv-1", "tenant-1", "user-1")
	require.Error(t, err)
	assert.EqualError(t, err, "connection reset")
}

func TestAdapter_PostFor_DescriptionDefaults(t *testing.T) {
	h := newHarness(t)
	h.setupChart(t, "tenant-1")
	h.putDocument(document.Payment, "tenant-1", "pay-1", "PAY-77", "3.00", time.Now())
	h.docs.Put(&document.Document{
		ID: "pay-2", TenantID: "tenant-1", Kind: document.Payment, Number: "PAY-78",
		Amount: decimal.NewFromInt(4), Currency: "USD", Description: "Wire from ACME",
	})

	tx, err := h.adapters[document.Payment].PostFor(context.Background(), "pay-1", "tenant-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Payment PAY-77", tx.Description)

	tx, err = h.adapters[document.Payment].PostFor(context.Background(), "pay-2", "tenant-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Wire from ACME", tx.Description)
}
