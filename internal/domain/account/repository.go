package account

import (
	"context"
)

// Repository defines the interface for account data operations.
// Every method is scoped by tenant; implementations never resolve accounts across tenants.
type Repository interface {
	// Create a new account; fails with a conflict when (tenantID, code) exists
	CreateAccount(ctx context.Context, account *Account) (*Account, error)

	// Get an account by ID
	GetAccount(ctx context.Context, tenantID string, accountID string) (*Account, error)

	// Find an account by its chart code
	FindAccountByCode(ctx context.Context, tenantID string, code string) (*Account, error)

	// List the chart of accounts of a tenant ordered by code
	ListAccounts(ctx context.Context, tenantID string, includeInactive bool) ([]*Account, error)

	// Mark an account inactive; accounts are never deleted
	DeactivateAccount(ctx context.Context, tenantID string, accountID string) error
}
