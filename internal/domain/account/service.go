package account

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/common/utils"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
)

// Service provides account-related business logic
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new account service
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// FindAccountByCode resolves a chart-of-accounts entry for a tenant.
// A missing code yields ErrAccountNotFound and a deactivated one ErrAccountInactive.
func (s *Service) FindAccountByCode(ctx context.Context, tenantID, code string) (*Account, error) {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	acc, err := s.repo.FindAccountByCode(ctx, tenantID, code)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewAccountNotFoundError(tenantID, code)
		}
		return nil, err
	}
	if !acc.Active {
		return nil, errors.NewAccountInactiveError(tenantID, code)
	}

	return acc, nil
}

// GetAccount retrieves an account by ID
func (s *Service) GetAccount(ctx context.Context, tenantID, accountID string) (*Account, error) {
	return s.repo.GetAccount(ctx, tenantID, accountID)
}

// ListAccounts returns the chart of accounts of a tenant
func (s *Service) ListAccounts(ctx context.Context, tenantID string, includeInactive bool) ([]*Account, error) {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return s.repo.ListAccounts(ctx, tenantID, includeInactive)
}

// CreateAccount creates a new account
func (s *Service) CreateAccount(ctx context.Context, tenantID string, req *CreateAccountRequest) (*Account, error) {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	if err := utils.ValidateAccountCode(req.Code); err != nil {
		return nil, err
	}
	if err := utils.ValidateRequiredString(req.Name, "name"); err != nil {
		return nil, err
	}
	if !req.AccountType.Valid() {
		return nil, errors.NewValidationError("account type must be one of asset, liability, equity, revenue, expense, contra_revenue")
	}
	if err := utils.ValidateCurrency(req.Currency); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	acc := &Account{
		TenantID:    tenantID,
		AccountID:   uuid.New().String(),
		Code:        req.Code,
		Name:        strings.TrimSpace(req.Name),
		AccountType: req.AccountType,
		Active:      true,
		Balance:     req.OpeningBalance,
		Currency:    req.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.CreateAccount(ctx, acc)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ledger account created",
		zap.String("tenantId", tenantID),
		zap.String("code", created.Code),
		zap.String("accountId", created.AccountID))

	return created, nil
}

// SetupDefaultChart creates the fixed accounts the document adapters post against.
// Codes that already exist for the tenant are left untouched.
func (s *Service) SetupDefaultChart(ctx context.Context, tenantID, currency string) ([]*Account, error) {
	accounts := make([]*Account, 0, len(DefaultChart))

	for _, entry := range DefaultChart {
		existing, err := s.repo.FindAccountByCode(ctx, tenantID, entry.Code)
		if err == nil {
			accounts = append(accounts, existing)
			continue
		}
		if !stderrors.Is(err, errors.ErrNotFound) {
			return nil, err
		}

		created, err := s.CreateAccount(ctx, tenantID, &CreateAccountRequest{
			Code:        entry.Code,
			Name:        entry.Name,
			AccountType: entry.AccountType,
			Currency:    currency,
		})
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, created)
	}

	return accounts, nil
}

// DeactivateAccount deactivates an account. Postings against it fail afterwards.
func (s *Service) DeactivateAccount(ctx context.Context, tenantID, accountID string) error {
	// Check if the account exists
	if _, err := s.repo.GetAccount(ctx, tenantID, accountID); err != nil {
		return err
	}

	return s.repo.DeactivateAccount(ctx, tenantID, accountID)
}
