package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
)

// AccountRepository keeps the chart of accounts in process memory
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*account.Account // tenantID|accountID
	byCode   map[string]string           // tenantID|code -> accountID
}

// NewAccountRepository creates an empty account repository
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[string]*account.Account),
		byCode:   make(map[string]string),
	}
}

func key(parts ...string) string {
	return strings.Join(parts, "|")
}

// CreateAccount implements account.Repository
func (r *AccountRepository) CreateAccount(ctx context.Context, acc *account.Account) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	codeKey := key(acc.TenantID, acc.Code)
	if _, exists := r.byCode[codeKey]; exists {
		return nil, errors.NewConflictError(fmt.Sprintf("account code %s already exists", acc.Code))
	}

	stored := *acc
	r.accounts[key(acc.TenantID, acc.AccountID)] = &stored
	r.byCode[codeKey] = acc.AccountID

	out := stored
	return &out, nil
}

// GetAccount implements account.Repository
func (r *AccountRepository) GetAccount(ctx context.Context, tenantID, accountID string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[key(tenantID, accountID)]
	if !ok {
		return nil, errors.NewNotFoundError("account not found")
	}
	out := *acc
	return &out, nil
}

// FindAccountByCode implements account.Repository
func (r *AccountRepository) FindAccountByCode(ctx context.Context, tenantID, code string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accountID, ok := r.byCode[key(tenantID, code)]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("account code %s not found", code))
	}
	out := *r.accounts[key(tenantID, accountID)]
	return &out, nil
}

// ListAccounts implements account.Repository
func (r *AccountRepository) ListAccounts(ctx context.Context, tenantID string, includeInactive bool) ([]*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*account.Account
	for _, acc := range r.accounts {
		if acc.TenantID != tenantID || (!acc.Active && !includeInactive) {
			continue
		}
		out := *acc
		result = append(result, &out)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// DeactivateAccount implements account.Repository
func (r *AccountRepository) DeactivateAccount(ctx context.Context, tenantID, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[key(tenantID, accountID)]
	if !ok {
		return errors.NewNotFoundError("account not found")
	}
	acc.Active = false
	acc.UpdatedAt = time.Now().UTC()
	return nil
}
