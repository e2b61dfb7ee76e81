package ledger

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/common/utils"
	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
)

// Service provides reconciliation and reporting over the transaction log
type Service struct {
	repo      Repository
	accounts  account.Repository
	logger    *zap.Logger
	now       func() time.Time
	pageLimit int
}

// NewService creates a new ledger service
func NewService(repo Repository, accounts account.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		accounts:  accounts,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		pageLimit: DefaultTrailLimit,
	}
}

// WithPageLimit overrides the trail cap
func (s *Service) WithPageLimit(limit int) *Service {
	if limit > 0 {
		s.pageLimit = limit
	}
	return s
}

// GetTransaction retrieves a transaction with its lines
func (s *Service) GetTransaction(ctx context.Context, tenantID, transactionID string) (*Transaction, error) {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return s.repo.GetTransaction(ctx, tenantID, transactionID)
}

// GetTransactionByNumber retrieves a transaction with its lines by its number
func (s *Service) GetTransactionByNumber(ctx context.Context, tenantID, number string) (*Transaction, error) {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return s.repo.GetTransactionByNumber(ctx, tenantID, number)
}

// Reconcile marks a transaction reconciled. Reconciling twice is a no-op:
// the first reconciledAt timestamp is kept.
func (s *Service) Reconcile(ctx context.Context, tenantID, transactionID, userID string) error {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return err
	}

	changed, err := s.repo.MarkReconciled(ctx, tenantID, transactionID, userID, s.now())
	if err != nil {
		return err
	}

	if changed {
		s.logger.Info("transaction reconciled",
			zap.String("tenantId", tenantID),
			zap.String("transactionId", transactionID),
			zap.String("userId", userID))
	}
	return nil
}

// QueryTrail returns the tenant's transactions matching every supplied filter,
// newest first, enriched with the debit and credit accounts.
func (s *Service) QueryTrail(ctx context.Context, tenantID string, filter TrailFilter) ([]TrailEntry, error) {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, errors.NewValidationError("dateFrom must not be after dateTo")
	}
	if filter.Source != "" && !filter.Source.Valid() {
		return nil, errors.NewValidationError("unknown transaction source")
	}
	if filter.Limit <= 0 || filter.Limit > s.pageLimit {
		filter.Limit = s.pageLimit
	}

	txs, err := s.repo.QueryTrail(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	if q := strings.ToLower(strings.TrimSpace(filter.SearchText)); q != "" {
		txs = filterBySearchText(txs, q)
	}

	resolved := make(map[string]*account.Account)
	entries := make([]TrailEntry, 0, len(txs))
	for _, tx := range txs {
		debit, err := s.resolveAccount(ctx, tenantID, tx.DebitAccountID, resolved)
		if err != nil {
			return nil, err
		}
		credit, err := s.resolveAccount(ctx, tenantID, tx.CreditAccountID, resolved)
		if err != nil {
			return nil, err
		}
		entries = append(entries, TrailEntry{
			Transaction:   tx,
			DebitAccount:  debit,
			CreditAccount: credit,
		})
	}

	return entries, nil
}

// AccountBalance computes an account's balance from its transaction lines.
// The sign follows the account's normal side.
func (s *Service) AccountBalance(ctx context.Context, tenantID, accountID string) (*AccountBalance, error) {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetAccount(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}

	debits, credits, err := s.repo.SumLines(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}

	movement := credits.Sub(debits)
	if acc.AccountType.DebitNormal() {
		movement = debits.Sub(credits)
	}

	return &AccountBalance{
		TenantID:       tenantID,
		AccountID:      acc.AccountID,
		Code:           acc.Code,
		Name:           acc.Name,
		OpeningBalance: acc.Balance,
		DebitTotal:     debits,
		CreditTotal:    credits,
		Balance:        acc.Balance.Add(movement),
		Currency:       acc.Currency,
	}, nil
}

// resolveAccount loads an account once per trail query. Accounts that vanished
// are left unresolved rather than failing the whole trail.
func (s *Service) resolveAccount(ctx context.Context, tenantID, accountID string, cache map[string]*account.Account) (*account.Account, error) {
	if acc, ok := cache[accountID]; ok {
		return acc, nil
	}

	acc, err := s.accounts.GetAccount(ctx, tenantID, accountID)
	if err != nil {
		if !stderrors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		s.logger.Warn("trail account not found",
			zap.String("tenantId", tenantID),
			zap.String("accountId", accountID))
		acc = nil
	}

	cache[accountID] = acc
	return acc, nil
}

func filterBySearchText(txs []*Transaction, q string) []*Transaction {
	matched := make([]*Transaction, 0, len(txs))
	for _, tx := range txs {
		if containsFold(tx.Description, q) ||
			containsFold(tx.Number, q) ||
			containsFold(tx.Reference, q) ||
			containsFold(tx.SourceReference, q) {
			matched = append(matched, tx)
		}
	}
	return matched
}

func containsFold(value, lowerQuery string) bool {
	return value != "" && strings.Contains(strings.ToLower(value), lowerQuery)
}

// SumLineAmounts totals the debit and credit side of lines
func SumLineAmounts(lines []Line) (decimal.Decimal, decimal.Decimal) {
	debits, credits := decimal.Zero, decimal.Zero
	for _, line := range lines {
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	return debits, credits
}
