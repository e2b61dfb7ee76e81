package middleware

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/api/response"
	"github.com/hirosato/ledger-engine/backend/internal/common/utils"
	"github.com/hirosato/ledger-engine/backend/internal/domain/tenant"
)

// Headers read by TenantMiddleware
const (
	TenantIDHeader = "X-Tenant-Id"
	UserIDHeader   = "X-User-Id"
)

// TenantMiddleware is a middleware for extracting and validating tenant information
type TenantMiddleware struct {
	requireAuthorizer bool
}

// NewTenantMiddleware creates a new tenant middleware
func NewTenantMiddleware() *TenantMiddleware {
	return &TenantMiddleware{}
}

// RequireAuthorizer makes the authorizer context the only accepted tenant source.
// Headers and unverified bearer claims are ignored.
func (m *TenantMiddleware) RequireAuthorizer() *TenantMiddleware {
	m.requireAuthorizer = true
	return m
}

// Handle resolves the tenant and stores it on the request context. A tenant
// set by the API Gateway authorizer wins; otherwise the X-Tenant-Id header is
// used, falling back to the tenant claim of the bearer token. Requests without
// a valid tenant are rejected before reaching the handler.
func (m *TenantMiddleware) Handle(next APIGatewayHandler) APIGatewayHandler {
	return func(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		tenantID := header(request, TenantIDHeader)
		userID := header(request, UserIDHeader)

		if token, err := utils.ExtractBearerToken(header(request, "Authorization")); err == nil {
			claims, err := utils.ParseUnverifiedClaims(token)
			if err != nil {
				logger.Warn("ignoring unreadable bearer token", zap.Error(err))
			} else {
				if tenantID == "" {
					tenantID = claims.Tenant()
				}
				if userID == "" {
					userID = claims.Subject
				}
			}
		}

		if authorized, ok := authorizerValue(request, "tenantId"); ok {
			tenantID = authorized
			if sub, ok := authorizerValue(request, "sub"); ok {
				userID = sub
			}
		} else if m.requireAuthorizer {
			logger.Warn("rejecting request without authorizer tenant", zap.Bool("tenantHeader", tenantID != ""))
			return response.TenantError("tenant must be set by the authorizer", request.RequestContext.RequestID), nil
		}

		if err := utils.ValidateTenantID(tenantID); err != nil {
			return response.TenantError("tenant ID is required", request.RequestContext.RequestID), nil
		}

		ctx = tenant.WithContext(ctx, &tenant.TenantContext{
			TenantID: tenantID,
			UserID:   userID,
		})

		return next(ctx, logger.With(zap.String("tenantId", tenantID)), request)
	}
}

func authorizerValue(request events.APIGatewayProxyRequest, key string) (string, bool) {
	v, ok := request.RequestContext.Authorizer[key].(string)
	return v, ok && v != ""
}
