package tools

import (
	"context"
	"encoding/json"

	"github.com/hirosato/ledger-engine/backend/internal/common/utils"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
	"github.com/hirosato/ledger-engine/backend/internal/domain/mcp"
	"github.com/hirosato/ledger-engine/backend/internal/domain/tenant"
)

// ReconcileTransactionTool marks a transaction as reconciled by the caller
type ReconcileTransactionTool struct {
	ledger *ledger.Service
}

func NewReconcileTransactionTool(ledgerService *ledger.Service) *ReconcileTransactionTool {
	return &ReconcileTransactionTool{ledger: ledgerService}
}

type transactionArgs struct {
	TransactionID string `json:"transactionId"`
	Number        string `json:"number"`
}

func (t *ReconcileTransactionTool) GetName() string { return "reconcile-transaction" }

func (t *ReconcileTransactionTool) GetDescription() string {
	return "Marks a ledger transaction as reconciled. Reconciling twice keeps the first reconciliation."
}

func (t *ReconcileTransactionTool) GetInputSchema() mcp.JSONSchema {
	return mcp.JSONSchema{
		Type:       "object",
		Properties: map[string]any{"transactionId": stringProperty("Transaction ID")},
		Required:   []string{"transactionId"},
	}
}

func (t *ReconcileTransactionTool) Execute(ctx context.Context, arguments json.RawMessage) (*mcp.CallToolResult, error) {
	var args transactionArgs
	if err := decodeArguments(arguments, &args); err != nil {
		return nil, err
	}
	if args.TransactionID == "" {
		return nil, errors.NewValidationError("transactionId is required")
	}

	current := tenant.Current(ctx)
	if err := t.ledger.Reconcile(ctx, current.TenantID, args.TransactionID, current.UserID); err != nil {
		return nil, err
	}
	tx, err := t.ledger.GetTransaction(ctx, current.TenantID, args.TransactionID)
	if err != nil {
		return nil, err
	}
	return mcp.JSONResult(tx)
}

// GetTransactionTool looks a transaction up by ID or by number
type GetTransactionTool struct {
	ledger *ledger.Service
}

func NewGetTransactionTool(ledgerService *ledger.Service) *GetTransactionTool {
	return &GetTransactionTool{ledger: ledgerService}
}

func (t *GetTransactionTool) GetName() string { return "get-transaction" }

func (t *GetTransactionTool) GetDescription() string {
	return "Returns one ledger transaction with its lines, by transactionId or by number (TXN-YYYY-NNNNNN)"
}

func (t *GetTransactionTool) GetInputSchema() mcp.JSONSchema {
	return mcp.JSONSchema{
		Type: "object",
		Properties: map[string]any{
			"transactionId": stringProperty("Transaction ID"),
			"number":        stringProperty("Transaction number"),
		},
	}
}

func (t *GetTransactionTool) Execute(ctx context.Context, arguments json.RawMessage) (*mcp.CallToolResult, error) {
	var args transactionArgs
	if err := decodeArguments(arguments, &args); err != nil {
		return nil, err
	}

	tenantID := tenant.TenantID(ctx)
	var (
		tx  *ledger.Transaction
		err error
	)
	switch {
	case args.TransactionID != "":
		tx, err = t.ledger.GetTransaction(ctx, tenantID, args.TransactionID)
	case args.Number != "":
		tx, err = t.ledger.GetTransactionByNumber(ctx, tenantID, args.Number)
	default:
		return nil, errors.NewValidationError("transactionId or number is required")
	}
	if err != nil {
		return nil, err
	}
	return mcp.JSONResult(tx)
}

// QueryTrailTool lists the tenant's audit trail, newest first
type QueryTrailTool struct {
	ledger *ledger.Service
}

func NewQueryTrailTool(ledgerService *ledger.Service) *QueryTrailTool {
	return &QueryTrailTool{ledger: ledgerService}
}

type queryTrailArgs struct {
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
	Source   string `json:"source"`
	Query    string `json:"q"`
	Limit    int    `json:"limit"`
}

func (t *QueryTrailTool) GetName() string { return "query-trail" }

func (t *QueryTrailTool) GetDescription() string {
	return "Lists ledger transactions newest first with their debit and credit accounts. All filters are optional."
}

func (t *QueryTrailTool) GetInputSchema() mcp.JSONSchema {
	return mcp.JSONSchema{
		Type: "object",
		Properties: map[string]any{
			"dateFrom": map[string]any{"type": "string", "description": "Earliest date, inclusive", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
			"dateTo":   map[string]any{"type": "string", "description": "Latest date, inclusive", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
			"source":   stringProperty("Only transactions posted from this document type"),
			"q":        stringProperty("Case-insensitive match on description, number or source reference"),
			"limit":    map[string]any{"type": "integer", "minimum": 1},
		},
	}
}

func (t *QueryTrailTool) Execute(ctx context.Context, arguments json.RawMessage) (*mcp.CallToolResult, error) {
	var args queryTrailArgs
	if err := decodeArguments(arguments, &args); err != nil {
		return nil, err
	}

	filter := ledger.TrailFilter{
		Source:     ledger.Source(args.Source),
		SearchText: args.Query,
		Limit:      args.Limit,
	}
	if args.Limit < 0 {
		return nil, errors.NewValidationError("limit must be a positive integer")
	}
	if args.DateFrom != "" {
		from, err := utils.ParseISODate(args.DateFrom)
		if err != nil {
			return nil, err
		}
		filter.DateFrom = &from
	}
	if args.DateTo != "" {
		to, err := utils.ParseISODate(args.DateTo)
		if err != nil {
			return nil, err
		}
		filter.DateTo = &to
	}

	entries, err := t.ledger.QueryTrail(ctx, tenant.TenantID(ctx), filter)
	if err != nil {
		return nil, err
	}
	return mcp.JSONResult(entries)
}

// AccountBalanceTool reports an account's balance derived from its lines
type AccountBalanceTool struct {
	ledger *ledger.Service
}

func NewAccountBalanceTool(ledgerService *ledger.Service) *AccountBalanceTool {
	return &AccountBalanceTool{ledger: ledgerService}
}

func (t *AccountBalanceTool) GetName() string { return "get-account-balance" }

func (t *AccountBalanceTool) GetDescription() string {
	return "Returns debit and credit totals and the signed balance of one account"
}

func (t *AccountBalanceTool) GetInputSchema() mcp.JSONSchema {
	return mcp.JSONSchema{
		Type:       "object",
		Properties: map[string]any{"accountId": stringProperty("Account ID")},
		Required:   []string{"accountId"},
	}
}

func (t *AccountBalanceTool) Execute(ctx context.Context, arguments json.RawMessage) (*mcp.CallToolResult, error) {
	var args struct {
		AccountID string `json:"accountId"`
	}
	if err := decodeArguments(arguments, &args); err != nil {
		return nil, err
	}
	if args.AccountID == "" {
		return nil, errors.NewValidationError("accountId is required")
	}

	balance, err := t.ledger.AccountBalance(ctx, tenant.TenantID(ctx), args.AccountID)
	if err != nil {
		return nil, err
	}
	return mcp.JSONResult(balance)
}
