package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
)

// Source identifies the kind of business event a transaction was posted for
type Source string

const (
	SourceInvoice    Source = "invoice"
	SourcePayment    Source = "payment"
	SourceExpense    Source = "expense"
	SourceBill       Source = "bill"
	SourceCredit     Source = "credit"
	SourceCreditNote Source = "credit_note"
)

// Valid reports whether s is a known source
func (s Source) Valid() bool {
	switch s {
	case SourceInvoice, SourcePayment, SourceExpense, SourceBill, SourceCredit, SourceCreditNote:
		return true
	}
	return false
}

// Status is the lifecycle state of a transaction header
type Status string

// StatusPosted is the only status the recorder writes
const StatusPosted Status = "posted"

// DefaultTrailLimit caps the number of transactions a trail query returns
const DefaultTrailLimit = 1000

// Transaction is the header of one balanced financial event.
// It is append-only; only the reconciliation fields change after creation.
type Transaction struct {
	TenantID        string          `json:"tenantId"`
	TransactionID   string          `json:"transactionId"`
	Number          string          `json:"number"`
	Description     string          `json:"description"`
	Reference       string          `json:"reference,omitempty"`
	Amount          decimal.Decimal `json:"totalAmount"`
	Currency        string          `json:"currency"`
	Source          Source          `json:"source"`
	SourceID        string          `json:"sourceId"`
	SourceReference string          `json:"sourceReference,omitempty"`
	DebitAccountID  string          `json:"debitAccountId"`
	CreditAccountID string          `json:"creditAccountId"`
	Date            time.Time       `json:"date"`
	Status          Status          `json:"status"`
	Reconciled      bool            `json:"reconciled"`
	ReconciledAt    *time.Time      `json:"reconciledAt,omitempty"`
	ReconciledBy    string          `json:"reconciledBy,omitempty"`
	CreatedBy       string          `json:"createdBy"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Lines           []Line          `json:"lines,omitempty"`
}

// Line is one side of the double entry. Exactly one of Debit and Credit is non-zero
// unless the posting amount itself is zero.
type Line struct {
	LineID        string          `json:"lineId"`
	TenantID      string          `json:"tenantId"`
	TransactionID string          `json:"transactionId"`
	AccountID     string          `json:"accountId"`
	Debit         decimal.Decimal `json:"debitAmount"`
	Credit        decimal.Decimal `json:"creditAmount"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// RecordRequest carries a semantic posting event to the Recorder
type RecordRequest struct {
	TenantID        string
	Description     string
	Reference       string
	Amount          decimal.Decimal
	Currency        string
	Source          Source
	SourceID        string
	SourceReference string
	DebitAccountID  string
	CreditAccountID string
	// Date is the posting date; the current day is used when zero
	Date      time.Time
	CreatedBy string
}

// TrailFilter narrows a transaction trail query. Zero values mean "no filter".
type TrailFilter struct {
	DateFrom   *time.Time
	DateTo     *time.Time
	Source     Source
	SearchText string
	Limit      int
}

// TrailEntry is a trail result enriched with its resolved accounts
type TrailEntry struct {
	*Transaction
	DebitAccount  *account.Account `json:"debitAccount,omitempty"`
	CreditAccount *account.Account `json:"creditAccount,omitempty"`
}

// AccountBalance is a balance computed from transaction lines on read
type AccountBalance struct {
	TenantID       string          `json:"tenantId"`
	AccountID      string          `json:"accountId"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	DebitTotal     decimal.Decimal `json:"debitTotal"`
	CreditTotal    decimal.Decimal `json:"creditTotal"`
	Balance        decimal.Decimal `json:"balance"`
	Currency       string          `json:"currency"`
}
