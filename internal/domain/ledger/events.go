package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecorded is emitted once per newly recorded transaction.
// Returning an already posted document emits nothing.
type TransactionRecorded struct {
	TenantID        string          `json:"tenantId"`
	TransactionID   string          `json:"transactionId"`
	Number          string          `json:"number"`
	Source          Source          `json:"source"`
	SourceID        string          `json:"sourceId"`
	SourceReference string          `json:"sourceReference,omitempty"`
	DebitAccountID  string          `json:"debitAccountId"`
	CreditAccountID string          `json:"creditAccountId"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Date            time.Time       `json:"date"`
	RecordedAt      time.Time       `json:"recordedAt"`
}

// EventPublisher delivers ledger events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event TransactionRecorded) error
}

func newTransactionRecorded(tx *Transaction) TransactionRecorded {
	return TransactionRecorded{
		TenantID:        tx.TenantID,
		TransactionID:   tx.TransactionID,
		Number:          tx.Number,
		Source:          tx.Source,
		SourceID:        tx.SourceID,
		SourceReference: tx.SourceReference,
		DebitAccountID:  tx.DebitAccountID,
		CreditAccountID: tx.CreditAccountID,
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		Date:            tx.Date,
		RecordedAt:      tx.CreatedAt,
	}
}
