package resources

import (
	"context"
	"encoding/json"

	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/mcp"
	"github.com/hirosato/ledger-engine/backend/internal/domain/tenant"
)

const ChartOfAccountsURI = "ledger://chart-of-accounts"

// ChartOfAccountsResource lists the calling tenant's accounts, inactive ones included
type ChartOfAccountsResource struct {
	accounts *account.Service
}

func NewChartOfAccountsResource(accounts *account.Service) *ChartOfAccountsResource {
	return &ChartOfAccountsResource{accounts: accounts}
}

func (r *ChartOfAccountsResource) GetURI() string      { return ChartOfAccountsURI }
func (r *ChartOfAccountsResource) GetName() string     { return "Chart of Accounts" }
func (r *ChartOfAccountsResource) GetMimeType() string { return "application/json" }

func (r *ChartOfAccountsResource) GetDescription() string {
	return "Accounts of the current tenant with code, type, currency and active flag. Account IDs here are the inputs of get-account-balance."
}

func (r *ChartOfAccountsResource) Read(ctx context.Context) (*mcp.ReadResourceResult, error) {
	accounts, err := r.accounts.ListAccounts(ctx, tenant.TenantID(ctx), true)
	if err != nil {
		return nil, err
	}

	body, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return nil, errors.NewInternalError("failed to encode chart of accounts", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []mcp.ResourceContent{{
			URI:      ChartOfAccountsURI,
			MimeType: r.GetMimeType(),
			Text:     string(body),
		}},
	}, nil
}
