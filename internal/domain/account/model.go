package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType represents the type of an account
type AccountType string

const (
	// Asset represents an asset account
	Asset AccountType = "asset"
	// Liability represents a liability account
	Liability AccountType = "liability"
	// Equity represents an equity account
	Equity AccountType = "equity"
	// Revenue represents a revenue account
	Revenue AccountType = "revenue"
	// Expense represents an expense account
	Expense AccountType = "expense"
	// ContraRevenue offsets revenue (returns, allowances) and carries a debit balance
	ContraRevenue AccountType = "contra_revenue"
)

// Valid reports whether t is one of the known account types
func (t AccountType) Valid() bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense, ContraRevenue:
		return true
	}
	return false
}

// DebitNormal reports whether the account grows on the debit side
func (t AccountType) DebitNormal() bool {
	return t == Asset || t == Expense || t == ContraRevenue
}

// Fixed chart-of-accounts codes the document adapters post against
const (
	CodeCash               = "110"
	CodeAccountsReceivable = "120"
	CodeAccountsPayable    = "210"
	CodeSalesRevenue       = "400"
	CodeSalesReturns       = "410"
	CodeOperatingExpense   = "500"
)

// ChartEntry describes one account of a chart-of-accounts template
type ChartEntry struct {
	Code        string
	Name        string
	AccountType AccountType
}

// DefaultChart is the minimal chart of accounts every tenant needs for postings
var DefaultChart = []ChartEntry{
	{Code: CodeCash, Name: "Cash", AccountType: Asset},
	{Code: CodeAccountsReceivable, Name: "Accounts Receivable", AccountType: Asset},
	{Code: CodeAccountsPayable, Name: "Accounts Payable", AccountType: Liability},
	{Code: CodeSalesRevenue, Name: "Sales Revenue", AccountType: Revenue},
	{Code: CodeSalesReturns, Name: "Sales Returns", AccountType: ContraRevenue},
	{Code: CodeOperatingExpense, Name: "Operating Expense", AccountType: Expense},
}

// Account represents a chart-of-accounts entry of a tenant.
// Balance is the opening balance captured at setup; the ledger computes
// current balances from transaction lines.
type Account struct {
	TenantID    string          `json:"tenantId"`
	AccountID   string          `json:"accountId"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	AccountType AccountType     `json:"accountType"`
	Active      bool            `json:"active"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CreateAccountRequest represents the request to create a new account
type CreateAccountRequest struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	AccountType    AccountType     `json:"accountType"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}
