package postgres

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	commonErrors "github.com/hirosato/ledger-engine/backend/internal/domain/errors"
)

// AccountRepository implements account.Repository on PostgreSQL
type AccountRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *gorm.DB, logger *zap.Logger) *AccountRepository {
	return &AccountRepository{db: db, logger: logger}
}

// CreateAccount inserts an account; the (tenant_id, code) index rejects duplicates
func (r *AccountRepository) CreateAccount(ctx context.Context, a *account.Account) (*account.Account, error) {
	model := newAccountModel(a)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if uniqueConstraint(err) != "" {
			return nil, commonErrors.NewConflictError("account code already exists").
				WithDetail("tenantId", a.TenantID).
				WithDetail("code", a.Code)
		}
		return nil, commonErrors.NewPersistenceError("failed to create account", err)
	}
	return model.toAccount(), nil
}

// GetAccount returns an account by ID within a tenant
func (r *AccountRepository) GetAccount(ctx context.Context, tenantID, accountID string) (*account.Account, error) {
	var model AccountModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, accountID).
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, commonErrors.NewNotFoundError("account not found")
		}
		return nil, commonErrors.NewInternalError("failed to get account", err)
	}
	return model.toAccount(), nil
}

// FindAccountByCode returns an account by chart code within a tenant
func (r *AccountRepository) FindAccountByCode(ctx context.Context, tenantID, code string) (*account.Account, error) {
	var model AccountModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, commonErrors.NewNotFoundError("account not found")
		}
		return nil, commonErrors.NewInternalError("failed to find account", err)
	}
	return model.toAccount(), nil
}

// ListAccounts returns the tenant chart ordered by code
func (r *AccountRepository) ListAccounts(ctx context.Context, tenantID string, includeInactive bool) ([]*account.Account, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if !includeInactive {
		query = query.Where("active = ?", true)
	}

	var models []AccountModel
	if err := query.Order("code ASC").Find(&models).Error; err != nil {
		return nil, commonErrors.NewInternalError("failed to list accounts", err)
	}

	accounts := make([]*account.Account, 0, len(models))
	for i := range models {
		accounts = append(accounts, models[i].toAccount())
	}
	return accounts, nil
}

// DeactivateAccount clears the active flag
func (r *AccountRepository) DeactivateAccount(ctx context.Context, tenantID, accountID string) error {
	res := r.db.WithContext(ctx).
		Model(&AccountModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, accountID).
		Updates(map[string]interface{}{"active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return commonErrors.NewPersistenceError("failed to deactivate account", res.Error)
	}
	if res.RowsAffected == 0 {
		return commonErrors.NewNotFoundError("account not found")
	}
	return nil
}
