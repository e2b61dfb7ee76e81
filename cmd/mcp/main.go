package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/api/mcp/resources"
	"github.com/hirosato/ledger-engine/backend/internal/api/mcp/tools"
	"github.com/hirosato/ledger-engine/backend/internal/api/middleware"
	"github.com/hirosato/ledger-engine/backend/internal/api/response"
	envconfig "github.com/hirosato/ledger-engine/backend/internal/common/config"
	"github.com/hirosato/ledger-engine/backend/internal/domain/mcp"
	"github.com/hirosato/ledger-engine/backend/internal/engine"
	"github.com/hirosato/ledger-engine/backend/internal/platform/stores"
)

// MCPRequestHandler serves JSON-RPC on the root path
type MCPRequestHandler struct {
	service *mcp.Service
	config  *envconfig.Config
}

func NewMCPRequestHandler(service *mcp.Service, config *envconfig.Config) *MCPRequestHandler {
	return &MCPRequestHandler{service: service, config: config}
}

// HandleRequest runs behind the tenant middleware, so every tool call is tenant scoped
func (h *MCPRequestHandler) HandleRequest(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if request.Path != "/" {
		return response.NotFound("Endpoint not found", request.RequestContext.RequestID), nil
	}
	if request.HTTPMethod != http.MethodPost {
		resp := jsonRPCResponse(http.StatusMethodNotAllowed, mcp.Response{
			JSONRPC: "2.0",
			Error:   &mcp.RPCError{Code: mcp.InvalidRequest, Message: "Method Not Allowed"},
		})
		resp.Headers["Allow"] = http.MethodPost
		return resp, nil
	}

	var rpcRequest mcp.Request
	if err := json.Unmarshal([]byte(request.Body), &rpcRequest); err != nil {
		logger.Warn("failed to parse JSON-RPC request", zap.Error(err))
		failure := mcp.Failure(nil, mcp.ParseError, "Parse error", err.Error())
		return jsonRPCResponse(failure.StatusCode, failure.Response), nil
	}

	result := h.service.HandleRequest(ctx, rpcRequest)
	resp := jsonRPCResponse(result.StatusCode, result.Response)
	if !h.config.IsProd() {
		logger.Debug("mcp response", zap.String("method", rpcRequest.Method), zap.String("body", resp.Body))
	}
	return resp, nil
}

func jsonRPCResponse(statusCode int, body mcp.Response) events.APIGatewayProxyResponse {
	headers := response.DefaultHeaders()
	headers["Access-Control-Allow-Methods"] = "POST,OPTIONS"

	encoded, err := json.Marshal(body)
	if err != nil {
		encoded = []byte(`{"jsonrpc":"2.0","error":{"code":-32603,"message":"Internal error"}}`)
		statusCode = http.StatusOK
	}
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(encoded),
	}
}

// newService registers the ledger tools and resources
func newService(e *engine.Engine, logger *zap.Logger) *mcp.Service {
	registry := mcp.NewRegistry()
	registry.RegisterTool(tools.LedgerTools(e.Postings, e.Ledger)...)
	registry.RegisterResource(resources.NewChartOfAccountsResource(e.Accounts))

	return mcp.NewService(registry, logger)
}

func newHandler(cfg *envconfig.Config, e *engine.Engine, logger *zap.Logger) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	h := NewMCPRequestHandler(newService(e, logger), cfg)
	tenantMiddleware := middleware.NewTenantMiddleware()
	if cfg.IsProd() {
		tenantMiddleware = tenantMiddleware.RequireAuthorizer()
	}
	chain := middleware.Chain(h.HandleRequest,
		middleware.NewLoggingMiddleware(),
		middleware.NewRecoveryMiddleware(),
		tenantMiddleware,
	)

	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		// Handle CORS preflight
		if request.HTTPMethod == http.MethodOptions {
			return jsonRPCResponse(http.StatusOK, mcp.Response{JSONRPC: "2.0"}), nil
		}
		return chain(ctx, logger, request)
	}
}

func main() {
	if err := envconfig.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	cfg, err := envconfig.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load Env config: %v", err)
	}

	var logger *zap.Logger
	if cfg.IsProd() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	s, err := stores.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise ledger store", zap.String("store", cfg.Store), zap.Error(err))
	}

	e := engine.New(cfg, s, logger)
	defer e.Close()

	lambda.Start(newHandler(cfg, e, logger))
}
