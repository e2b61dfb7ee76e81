package document

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies a financial document type owned by a document module
type Kind string

const (
	Invoice    Kind = "invoice"
	Bill       Kind = "bill"
	Payment    Kind = "payment"
	CreditNote Kind = "credit_note"
	Expense    Kind = "expense"
)

// Kinds lists every document kind that produces ledger postings
var Kinds = []Kind{Invoice, Bill, Payment, CreditNote, Expense}

// Document is the read-only view of a triggering document.
// The ledger only reads amount, currency, number and date from it.
type Document struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenantId"`
	Kind        Kind            `json:"kind"`
	Number      string          `json:"number"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
}
