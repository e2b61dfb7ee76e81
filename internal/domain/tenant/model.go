package tenant

import (
	"context"
)

// TenantContext represents the context for tenant-related operations
type TenantContext struct {
	TenantID string
	UserID   string
}

type contextKey string

const tenantContextKey contextKey = "tenant"

// WithContext stores the tenant context on ctx
func WithContext(ctx context.Context, tenantCtx *TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey, tenantCtx)
}

// FromContext returns the tenant context stored on ctx, if any
func FromContext(ctx context.Context) (*TenantContext, bool) {
	tenantCtx, ok := ctx.Value(tenantContextKey).(*TenantContext)
	if !ok || tenantCtx == nil {
		return nil, false
	}
	return tenantCtx, true
}

// TenantID returns the tenant id stored on ctx, or "" when absent
func TenantID(ctx context.Context) string {
	tenantCtx, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return tenantCtx.TenantID
}

// Current returns the tenant context on ctx. A missing tenant yields an
// empty TenantID, which the ledger services reject.
func Current(ctx context.Context) TenantContext {
	if tenantCtx, ok := FromContext(ctx); ok {
		return *tenantCtx
	}
	return TenantContext{}
}
