package document

import (
	"context"
)

// Repository is the read contract the ledger consumes from a document module.
// GetByID returns a not-found error when the document is absent or belongs to another tenant.
type Repository interface {
	GetByID(ctx context.Context, id string, tenantID string) (*Document, error)
}

// RepositoryFunc adapts a function to Repository
type RepositoryFunc func(ctx context.Context, id string, tenantID string) (*Document, error)

// GetByID implements Repository
func (f RepositoryFunc) GetByID(ctx context.Context, id string, tenantID string) (*Document, error) {
	return f(ctx, id, tenantID)
}
