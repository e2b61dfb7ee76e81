package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/api/response"
	"github.com/hirosato/ledger-engine/backend/internal/common/utils"
	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	"github.com/hirosato/ledger-engine/backend/internal/domain/document"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
	"github.com/hirosato/ledger-engine/backend/internal/domain/posting"
	"github.com/hirosato/ledger-engine/backend/internal/domain/tenant"
)

// LedgerHandler exposes the ledger engine over API Gateway
type LedgerHandler struct {
	adapters posting.Registry
	ledger   *ledger.Service
	accounts *account.Service
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(adapters posting.Registry, ledgerService *ledger.Service, accountService *account.Service) *LedgerHandler {
	return &LedgerHandler{
		adapters: adapters,
		ledger:   ledgerService,
		accounts: accountService,
	}
}

// Route dispatches a request by method and path. It expects the tenant
// middleware to have run.
func (h *LedgerHandler) Route(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	segments := strings.Split(strings.Trim(request.Path, "/"), "/")
	method := request.HTTPMethod

	switch {
	case method == http.MethodPost && len(segments) == 3 && segments[0] == "postings":
		return h.PostDocument(ctx, logger, request, segments[1], segments[2])
	case method == http.MethodPost && len(segments) == 3 && segments[0] == "transactions" && segments[2] == "reconcile":
		return h.Reconcile(ctx, logger, request, segments[1])
	case method == http.MethodGet && len(segments) == 1 && segments[0] == "transactions":
		return h.QueryTrail(ctx, logger, request)
	case method == http.MethodGet && len(segments) == 3 && segments[0] == "transactions" && segments[1] == "by-number":
		return h.GetTransactionByNumber(ctx, logger, request, segments[2])
	case method == http.MethodGet && len(segments) == 2 && segments[0] == "transactions":
		return h.GetTransaction(ctx, logger, request, segments[1])
	case method == http.MethodGet && len(segments) == 1 && segments[0] == "accounts":
		return h.ListAccounts(ctx, logger, request)
	case method == http.MethodGet && len(segments) == 3 && segments[0] == "accounts" && segments[2] == "balance":
		return h.AccountBalance(ctx, logger, request, segments[1])
	case method == http.MethodPost && len(segments) == 2 && segments[0] == "accounts" && segments[1] == "default-chart":
		return h.SetupDefaultChart(ctx, logger, request)
	default:
		return response.NotFound("Endpoint not found", request.RequestContext.RequestID), nil
	}
}

// PostDocument handles POST /postings/{source}/{documentId}
func (h *LedgerHandler) PostDocument(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest, source, documentID string) (events.APIGatewayProxyResponse, error) {
	adapter, ok := h.adapters[document.Kind(source)]
	if !ok {
		return response.ValidationError("unknown document source "+source, request.RequestContext.RequestID), nil
	}

	tenantCtx := tenant.Current(ctx)
	tx, err := adapter.PostFor(ctx, documentID, tenantCtx.TenantID, tenantCtx.UserID)
	if err != nil {
		if errors.IsConfigurationError(err) {
			logger.Error("tenant chart of accounts is incomplete",
				zap.String("source", source),
				zap.String("documentId", documentID),
				zap.Error(err))
		}
		return events.APIGatewayProxyResponse{}, err
	}

	return response.Created(tx, request.RequestContext.RequestID), nil
}

// Reconcile handles POST /transactions/{id}/reconcile
func (h *LedgerHandler) Reconcile(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest, transactionID string) (events.APIGatewayProxyResponse, error) {
	tenantCtx := tenant.Current(ctx)
	if err := h.ledger.Reconcile(ctx, tenantCtx.TenantID, transactionID, tenantCtx.UserID); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	tx, err := h.ledger.GetTransaction(ctx, tenantCtx.TenantID, transactionID)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(tx, request.RequestContext.RequestID), nil
}

// QueryTrail handles GET /transactions?dateFrom&dateTo&source&q&limit
func (h *LedgerHandler) QueryTrail(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	filter, err := trailFilter(request.QueryStringParameters)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	entries, err := h.ledger.QueryTrail(ctx, tenant.TenantID(ctx), filter)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	pagination := &response.Pagination{Total: len(entries), Limit: filter.Limit}
	if filter.Limit > 0 {
		pagination.Truncated = len(entries) >= filter.Limit
	}
	return response.SuccessWithPagination(entries, pagination, http.StatusOK, request.RequestContext.RequestID), nil
}

func trailFilter(params map[string]string) (ledger.TrailFilter, error) {
	filter := ledger.TrailFilter{
		Source:     ledger.Source(params["source"]),
		SearchText: params["q"],
	}
	if v := params["dateFrom"]; v != "" {
		from, err := utils.ParseISODate(v)
		if err != nil {
			return filter, err
		}
		filter.DateFrom = &from
	}
	if v := params["dateTo"]; v != "" {
		to, err := utils.ParseISODate(v)
		if err != nil {
			return filter, err
		}
		filter.DateTo = &to
	}
	if v := params["limit"]; v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return filter, errors.NewValidationError("limit must be a positive integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}

// GetTransaction handles GET /transactions/{id}
func (h *LedgerHandler) GetTransaction(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest, transactionID string) (events.APIGatewayProxyResponse, error) {
	tx, err := h.ledger.GetTransaction(ctx, tenant.TenantID(ctx), transactionID)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(tx, request.RequestContext.RequestID), nil
}

// GetTransactionByNumber handles GET /transactions/by-number/{number}
func (h *LedgerHandler) GetTransactionByNumber(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest, number string) (events.APIGatewayProxyResponse, error) {
	tx, err := h.ledger.GetTransactionByNumber(ctx, tenant.TenantID(ctx), number)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(tx, request.RequestContext.RequestID), nil
}

// ListAccounts handles GET /accounts?includeInactive=true
func (h *LedgerHandler) ListAccounts(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	includeInactive, _ := strconv.ParseBool(request.QueryStringParameters["includeInactive"])
	accounts, err := h.accounts.ListAccounts(ctx, tenant.TenantID(ctx), includeInactive)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(accounts, request.RequestContext.RequestID), nil
}

// AccountBalance handles GET /accounts/{id}/balance
func (h *LedgerHandler) AccountBalance(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest, accountID string) (events.APIGatewayProxyResponse, error) {
	balance, err := h.ledger.AccountBalance(ctx, tenant.TenantID(ctx), accountID)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(balance, request.RequestContext.RequestID), nil
}

// DefaultChartRequest is the body of POST /accounts/default-chart
type DefaultChartRequest struct {
	Currency string `json:"currency"`
}

// SetupDefaultChart handles POST /accounts/default-chart
func (h *LedgerHandler) SetupDefaultChart(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req DefaultChartRequest
	if request.Body != "" {
		if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
			return response.ValidationError("Invalid JSON body", request.RequestContext.RequestID), nil
		}
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	accounts, err := h.accounts.SetupDefaultChart(ctx, tenant.TenantID(ctx), req.Currency)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.Created(accounts, request.RequestContext.RequestID), nil
}
