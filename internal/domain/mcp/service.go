package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
)

// HTTPResponse pairs a JSON-RPC response with the HTTP status to send it with
type HTTPResponse struct {
	Response   Response
	StatusCode int
}

func success(id json.RawMessage, result any) HTTPResponse {
	return HTTPResponse{
		Response:   Response{JSONRPC: jsonRPCVersion, ID: id, Result: result},
		StatusCode: http.StatusOK,
	}
}

// Failure builds a JSON-RPC error response. Protocol errors travel with HTTP 200.
func Failure(id json.RawMessage, code int, message string, data any) HTTPResponse {
	return HTTPResponse{
		Response: Response{
			JSONRPC: jsonRPCVersion,
			ID:      id,
			Error:   &RPCError{Code: code, Message: message, Data: data},
		},
		StatusCode: http.StatusOK,
	}
}

// Service answers MCP requests from a Registry
type Service struct {
	logger     *zap.Logger
	serverInfo ServerInfo
	registry   *Registry
}

func NewService(registry *Registry, logger *zap.Logger) *Service {
	return &Service{
		logger: logger,
		serverInfo: ServerInfo{
			Name:    "ledger-engine-mcp",
			Title:   "Double-entry ledger for invoices, bills, payments and expenses",
			Version: "1.0.0",
		},
		registry: registry,
	}
}

// HandleRequest dispatches one JSON-RPC request
func (s *Service) HandleRequest(ctx context.Context, request Request) HTTPResponse {
	s.logger.Debug("mcp request", zap.String("method", request.Method))

	switch request.Method {
	case "initialize":
		return s.initialize(request)
	case "initialized", "notifications/initialized":
		resp := success(request.ID, map[string]any{})
		if request.IsNotification() {
			resp.StatusCode = http.StatusAccepted
		}
		return resp
	case "ping":
		return success(request.ID, map[string]any{})
	case "resources/list":
		return success(request.ID, ListResourcesResult{Resources: s.registry.ListResources()})
	case "resources/read":
		return s.readResource(ctx, request)
	case "tools/list":
		return success(request.ID, ListToolsResult{Tools: s.registry.ListTools()})
	case "tools/call":
		return s.callTool(ctx, request)
	default:
		return Failure(request.ID, MethodNotFound, fmt.Sprintf("Method not found: %s", request.Method), nil)
	}
}

func (s *Service) initialize(request Request) HTTPResponse {
	var params InitializeParams
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &params); err != nil {
			return Failure(request.ID, InvalidParams, "Invalid initialize params", err.Error())
		}
	}
	s.logger.Info("mcp client connected",
		zap.String("client", params.ClientInfo.Name),
		zap.String("clientVersion", params.ClientInfo.Version))

	return success(request.ID, InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: Capabilities{
			Resources: ListCapability{ListChanged: false},
			Tools:     ListCapability{ListChanged: false},
		},
		ServerInfo:   s.serverInfo,
		Instructions: "Post source documents to the tenant ledger, reconcile transactions and read balances. Every call is scoped to the tenant of the request.",
	})
}

func (s *Service) readResource(ctx context.Context, request Request) HTTPResponse {
	var params ReadResourceParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return Failure(request.ID, InvalidParams, "Invalid read resource params", err.Error())
	}

	handler, ok := s.registry.Resource(params.URI)
	if !ok {
		return Failure(request.ID, InvalidParams, fmt.Sprintf("Resource not found: %s", params.URI), nil)
	}

	result, err := handler.Read(ctx)
	if err != nil {
		appErr := errors.As(err)
		s.logger.Error("failed to read resource", zap.String("uri", params.URI), zap.Error(err))
		return Failure(request.ID, InternalError, "Failed to read resource", map[string]any{"code": appErr.Code})
	}
	return success(request.ID, result)
}

func (s *Service) callTool(ctx context.Context, request Request) HTTPResponse {
	var params CallToolParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return Failure(request.ID, InvalidParams, "Invalid call tool params", err.Error())
	}

	handler, ok := s.registry.Tool(params.Name)
	if !ok {
		return Failure(request.ID, InvalidParams, fmt.Sprintf("Tool not found: %s", params.Name), nil)
	}

	result, err := handler.Execute(ctx, params.Arguments)
	if err != nil {
		// Domain failures are reported inside the tool result so the client can act on them
		result = s.toolError(params.Name, err)
	}
	return success(request.ID, result)
}

func (s *Service) toolError(tool string, err error) *CallToolResult {
	appErr := errors.As(err)
	fields := []zap.Field{zap.String("tool", tool), zap.String("code", appErr.Code), zap.Error(err)}
	if appErr.StatusCode >= http.StatusInternalServerError {
		s.logger.Error("tool failed", fields...)
		return &CallToolResult{
			Content: []Content{{Type: "text", Text: appErr.Code + ": internal error"}},
			IsError: true,
		}
	}
	s.logger.Warn("tool rejected", fields...)
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: appErr.Code + ": " + appErr.Message}},
		IsError: true,
	}
}
