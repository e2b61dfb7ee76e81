package tools

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	"github.com/hirosato/ledger-engine/backend/internal/domain/document"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
	"github.com/hirosato/ledger-engine/backend/internal/domain/mcp"
	"github.com/hirosato/ledger-engine/backend/internal/domain/posting"
	"github.com/hirosato/ledger-engine/backend/internal/domain/tenant"
	"github.com/hirosato/ledger-engine/backend/internal/platform/memory"
)

type fixture struct {
	docs     *memory.DocumentStore
	accounts *account.Service
	tools    map[string]mcp.ToolHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	accountRepo := memory.NewAccountRepository()
	ledgerRepo := memory.NewLedgerRepository()
	docs := memory.NewDocumentStore()

	accounts := account.NewService(accountRepo, logger)
	recorder := ledger.NewRecorder(ledgerRepo, ledger.NewNumberGenerator(memory.NewSequenceStore()), logger)
	poster := posting.NewPoster(recorder, accounts, ledgerRepo, logger)

	f := &fixture{docs: docs, accounts: accounts, tools: map[string]mcp.ToolHandler{}}
	for _, tool := range LedgerTools(posting.NewRegistry(poster, docs), ledger.NewService(ledgerRepo, accountRepo, logger)) {
		f.tools[tool.GetName()] = tool
	}
	return f
}

func tenantCtx(tenantID string) context.Context {
	return tenant.WithContext(context.Background(), &tenant.TenantContext{TenantID: tenantID, UserID: "user-1"})
}

// run executes a tool and decodes its JSON text into out
func (f *fixture) run(t *testing.T, ctx context.Context, name, args string, out any) error {
	t.Helper()
	result, err := f.tools[name].Execute(ctx, json.RawMessage(args))
	if err != nil {
		return err
	}
	require.Len(t, result.Content, 1)
	assert.False(t, result.IsError)
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), out))
	}
	return nil
}

func TestLedgerTools_Schemas(t *testing.T) {
	f := newFixture(t)
	require.Len(t, f.tools, 5)
	for name, tool := range f.tools {
		assert.Equal(t, "object", tool.GetInputSchema().Type, name)
		assert.NotEmpty(t, tool.GetDescription(), name)
	}
	assert.ElementsMatch(t, []string{"source", "documentId"}, f.tools["post-document"].GetInputSchema().Required)
}

func TestLedgerTools_PostReconcileAndReport(t *testing.T) {
	f := newFixture(t)
	ctx := tenantCtx("tenant-1")
	_, err := f.accounts.SetupDefaultChart(ctx, "tenant-1", "USD")
	require.NoError(t, err)

	f.docs.Put(&document.Document{
		ID:       "bill-1",
		TenantID: "tenant-1",
		Kind:     document.Bill,
		Number:   "BILL-88",
		Amount:   decimal.RequireFromString("320.50"),
		Currency: "USD",
		Date:     time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC),
	})

	var tx ledger.Transaction
	require.NoError(t, f.run(t, ctx, "post-document", `{"source":"bill","documentId":"bill-1"}`, &tx))
	assert.Equal(t, ledger.SourceBill, tx.Source)
	assert.Equal(t, "BILL-88", tx.SourceReference)
	assert.Equal(t, "user-1", tx.CreatedBy)

	var again ledger.Transaction
	require.NoError(t, f.run(t, ctx, "post-document", `{"source":"bill","documentId":"bill-1"}`, &again))
	assert.Equal(t, tx.TransactionID, again.TransactionID)

	var byNumber ledger.Transaction
	require.NoError(t, f.run(t, ctx, "get-transaction", `{"number":"`+tx.Number+`"}`, &byNumber))
	assert.Equal(t, tx.TransactionID, byNumber.TransactionID)

	var reconciled ledger.Transaction
	require.NoError(t, f.run(t, ctx, "reconcile-transaction", `{"transactionId":"`+tx.TransactionID+`"}`, &reconciled))
	assert.True(t, reconciled.Reconciled)
	assert.Equal(t, "user-1", reconciled.ReconciledBy)

	var trail []ledger.TrailEntry
	require.NoError(t, f.run(t, ctx, "query-trail", `{"source":"bill","dateFrom":"2024-06-01","q":"bill-88"}`, &trail))
	require.Len(t, trail, 1)
	require.NotNil(t, trail[0].CreditAccount)
	assert.Equal(t, account.CodeAccountsPayable, trail[0].CreditAccount.Code)

	var balance ledger.AccountBalance
	require.NoError(t, f.run(t, ctx, "get-account-balance", `{"accountId":"`+trail[0].CreditAccount.AccountID+`"}`, &balance))
	assert.True(t, balance.CreditTotal.Equal(decimal.RequireFromString("320.5")))
}

func TestLedgerTools_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := tenantCtx("tenant-1")

	tests := []struct {
		name string
		ctx  context.Context
		tool string
		args string
		want error
	}{
		{"unknown source", ctx, "post-document", `{"source":"receipt","documentId":"r-1"}`, errors.ErrValidation},
		{"missing document id", ctx, "post-document", `{"source":"invoice"}`, errors.ErrValidation},
		{"malformed arguments", ctx, "post-document", `[1,2]`, errors.AppError{Code: errors.CodeInvalidInput}},
		{"document not found", ctx, "post-document", `{"source":"invoice","documentId":"nope"}`, errors.ErrDocumentNotFound},
		{"no tenant", context.Background(), "post-document", `{"source":"invoice","documentId":"inv-1"}`, errors.AppError{Code: errors.CodeTenant}},
		{"reconcile unknown", ctx, "reconcile-transaction", `{"transactionId":"missing"}`, errors.ErrNotFound},
		{"lookup needs a key", ctx, "get-transaction", `{}`, errors.ErrValidation},
		{"bad trail date", ctx, "query-trail", `{"dateFrom":"06/01/2024"}`, errors.ErrValidation},
		{"negative limit", ctx, "query-trail", `{"limit":-1}`, errors.ErrValidation},
		{"balance needs account", ctx, "get-account-balance", `{}`, errors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.run(t, tt.ctx, tt.tool, tt.args, nil)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.want), "got %v", err)
		})
	}
}
