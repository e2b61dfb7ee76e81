package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/api/middleware"
	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	"github.com/hirosato/ledger-engine/backend/internal/domain/document"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
	"github.com/hirosato/ledger-engine/backend/internal/domain/posting"
	"github.com/hirosato/ledger-engine/backend/internal/platform/memory"
)

type testAPI struct {
	docs    *memory.DocumentStore
	handler middleware.APIGatewayHandler
}

func newTestAPI() *testAPI {
	logger := zap.NewNop()
	accountRepo := memory.NewAccountRepository()
	ledgerRepo := memory.NewLedgerRepository()
	docs := memory.NewDocumentStore()

	accounts := account.NewService(accountRepo, logger)
	recorder := ledger.NewRecorder(ledgerRepo, ledger.NewNumberGenerator(memory.NewSequenceStore()), logger)
	poster := posting.NewPoster(recorder, accounts, ledgerRepo, logger)
	h := NewLedgerHandler(posting.NewRegistry(poster, docs), ledger.NewService(ledgerRepo, accountRepo, logger), accounts)

	return &testAPI{
		docs: docs,
		handler: middleware.Chain(h.Route,
			middleware.NewRecoveryMiddleware(),
			middleware.NewTenantMiddleware(),
		),
	}
}

func (a *testAPI) call(t *testing.T, method, path, tenantID string, query map[string]string, body string) events.APIGatewayProxyResponse {
	t.Helper()
	headers := map[string]string{middleware.UserIDHeader: "user-1"}
	if tenantID != "" {
		headers[middleware.TenantIDHeader] = tenantID
	}
	resp, err := a.handler(context.Background(), zap.NewNop(), events.APIGatewayProxyRequest{
		HTTPMethod:            method,
		Path:                  path,
		Headers:               headers,
		QueryStringParameters: query,
		Body:                  body,
		RequestContext:        events.APIGatewayProxyRequestContext{RequestID: "req-1"},
	})
	require.NoError(t, err)
	return resp
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, resp events.APIGatewayProxyResponse, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &env))
	if data != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestLedgerHandler_PostingLifecycle(t *testing.T) {
	api := newTestAPI()
	api.docs.Put(&document.Document{
		ID:       "inv-1",
		TenantID: "tenant-1",
		Kind:     document.Invoice,
		Number:   "INV-1001",
		Amount:   decimal.RequireFromString("5450.00"),
		Currency: "USD",
		Date:     time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
	})

	resp := api.call(t, http.MethodPost, "/accounts/default-chart", "tenant-1", nil, `{"currency":"USD"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var chart []account.Account
	decode(t, resp, &chart)
	require.Len(t, chart, len(account.DefaultChart))

	resp = api.call(t, http.MethodPost, "/postings/invoice/inv-1", "tenant-1", nil, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tx ledger.Transaction
	decode(t, resp, &tx)
	assert.Equal(t, ledger.FormatNumber(time.Now().UTC().Year(), 1), tx.Number)
	assert.Equal(t, ledger.SourceInvoice, tx.Source)
	require.Len(t, tx.Lines, 2)

	// Posting again returns the same transaction
	resp = api.call(t, http.MethodPost, "/postings/invoice/inv-1", "tenant-1", nil, "")
	var again ledger.Transaction
	decode(t, resp, &again)
	assert.Equal(t, tx.TransactionID, again.TransactionID)

	resp = api.call(t, http.MethodGet, "/transactions/"+tx.TransactionID, "tenant-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.call(t, http.MethodGet, "/transactions/by-number/"+tx.Number, "tenant-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.call(t, http.MethodGet, "/transactions/"+tx.TransactionID, "tenant-2", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.call(t, http.MethodPost, "/transactions/"+tx.TransactionID+"/reconcile", "tenant-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reconciled ledger.Transaction
	decode(t, resp, &reconciled)
	assert.True(t, reconciled.Reconciled)
	assert.Equal(t, "user-1", reconciled.ReconciledBy)

	resp = api.call(t, http.MethodGet, "/transactions", "tenant-1", map[string]string{"source": "invoice", "q": "inv-1001", "dateFrom": "2024-05-01"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var trail []ledger.TrailEntry
	decode(t, resp, &trail)
	require.Len(t, trail, 1)
	require.NotNil(t, trail[0].DebitAccount)
	assert.Equal(t, account.CodeAccountsReceivable, trail[0].DebitAccount.Code)

	var receivable *account.Account
	for i := range chart {
		if chart[i].Code == account.CodeAccountsReceivable {
			receivable = &chart[i]
		}
	}
	require.NotNil(t, receivable)
	resp = api.call(t, http.MethodGet, "/accounts/"+receivable.AccountID+"/balance", "tenant-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var balance ledger.AccountBalance
	decode(t, resp, &balance)
	assert.True(t, balance.Balance.Equal(decimal.RequireFromString("5450")))

	resp = api.call(t, http.MethodGet, "/accounts", "tenant-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []account.Account
	decode(t, resp, &listed)
	assert.Len(t, listed, len(account.DefaultChart))
}

func TestLedgerHandler_Errors(t *testing.T) {
	api := newTestAPI()
	api.docs.Put(&document.Document{
		ID:       "pay-1",
		TenantID: "tenant-5",
		Kind:     document.Payment,
		Number:   "PAY-77",
		Amount:   decimal.RequireFromString("100"),
		Currency: "USD",
	})

	tests := []struct {
		name       string
		method     string
		path       string
		tenantID   string
		query      map[string]string
		wantStatus int
		wantCode   string
	}{
		{"missing chart", http.MethodPost, "/postings/payment/pay-1", "tenant-5", nil, http.StatusUnprocessableEntity, errors.CodeAccountNotFound},
		{"missing document", http.MethodPost, "/postings/invoice/inv-404", "tenant-5", nil, http.StatusNotFound, errors.CodeDocumentNotFound},
		{"unknown source", http.MethodPost, "/postings/receipt/r-1", "tenant-5", nil, http.StatusBadRequest, errors.CodeValidation},
		{"missing tenant", http.MethodGet, "/transactions", "", nil, http.StatusBadRequest, errors.CodeTenant},
		{"bad date", http.MethodGet, "/transactions", "tenant-5", map[string]string{"dateFrom": "05/01/2024"}, http.StatusBadRequest, errors.CodeValidation},
		{"bad limit", http.MethodGet, "/transactions", "tenant-5", map[string]string{"limit": "zero"}, http.StatusBadRequest, errors.CodeValidation},
		{"unknown trail source", http.MethodGet, "/transactions", "tenant-5", map[string]string{"source": "receipt"}, http.StatusBadRequest, errors.CodeValidation},
		{"reconcile unknown", http.MethodPost, "/transactions/missing/reconcile", "tenant-5", nil, http.StatusNotFound, errors.CodeNotFound},
		{"unknown route", http.MethodDelete, "/transactions/tx-1", "tenant-5", nil, http.StatusNotFound, errors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.call(t, tt.method, tt.path, tt.tenantID, tt.query, "")
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			env := decode(t, resp, nil)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Error)
		})
	}
}
