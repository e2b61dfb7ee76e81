package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	"github.com/hirosato/ledger-engine/backend/internal/domain/document"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
)

// Unique index names, matched against pgconn.PgError.ConstraintName
const (
	idxAccountsTenantCode       = "idx_accounts_tenant_code"
	idxTransactionsTenantNumber = "idx_transactions_tenant_number"
	idxTransactionsTenantSource = "idx_transactions_tenant_source"
)

// AccountModel is the ledger_accounts row
type AccountModel struct {
	ID          string          `gorm:"primaryKey;size:64"`
	TenantID    string          `gorm:"size:64;not null;uniqueIndex:idx_accounts_tenant_code,priority:1"`
	Code        string          `gorm:"size:32;not null;uniqueIndex:idx_accounts_tenant_code,priority:2"`
	Name        string          `gorm:"size:255;not null"`
	AccountType string          `gorm:"size:16;not null"`
	Active      bool            `gorm:"not null;default:true"`
	Balance     decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	Currency    string          `gorm:"size:3;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (AccountModel) TableName() string { return "ledger_accounts" }

// TransactionModel is the ledger_transactions header row
type TransactionModel struct {
	ID              string          `gorm:"primaryKey;size:64"`
	TenantID        string          `gorm:"size:64;not null;uniqueIndex:idx_transactions_tenant_number,priority:1;uniqueIndex:idx_transactions_tenant_source,priority:1;index:idx_transactions_tenant_date,priority:1"`
	Number          string          `gorm:"size:32;not null;uniqueIndex:idx_transactions_tenant_number,priority:2"`
	Description     string          `gorm:"size:512"`
	Reference       string          `gorm:"size:255"`
	Amount          decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Currency        string          `gorm:"size:3;not null"`
	Source          string          `gorm:"size:32;not null;uniqueIndex:idx_transactions_tenant_source,priority:2"`
	SourceID        string          `gorm:"size:64;not null;uniqueIndex:idx_transactions_tenant_source,priority:3"`
	SourceReference string          `gorm:"size:255"`
	DebitAccountID  string          `gorm:"size:64;not null"`
	CreditAccountID string          `gorm:"size:64;not null"`
	Date            time.Time       `gorm:"type:date;not null;index:idx_transactions_tenant_date,priority:2"`
	Status          string          `gorm:"size:16;not null"`
	Reconciled      bool            `gorm:"not null;default:false"`
	ReconciledAt    *time.Time
	ReconciledBy    string `gorm:"size:64"`
	CreatedBy       string `gorm:"size:64"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Lines []TransactionLineModel `gorm:"foreignKey:TransactionID;references:ID"`
}

func (TransactionModel) TableName() string { return "ledger_transactions" }

// TransactionLineModel is one side of a posting
type TransactionLineModel struct {
	ID            string          `gorm:"primaryKey;size:64"`
	TenantID      string          `gorm:"size:64;not null;index:idx_lines_tenant_account,priority:1"`
	TransactionID string          `gorm:"size:64;not null;index"`
	AccountID     string          `gorm:"size:64;not null;index:idx_lines_tenant_account,priority:2"`
	Debit         decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	Credit        decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	Description   string          `gorm:"size:512"`
	CreatedAt     time.Time
}

func (TransactionLineModel) TableName() string { return "ledger_transaction_lines" }

// SequenceModel holds the last number handed out per tenant and year
type SequenceModel struct {
	TenantID string `gorm:"primaryKey;size:64"`
	Year     int    `gorm:"primaryKey;autoIncrement:false"`
	Value    int64  `gorm:"not null"`
}

func (SequenceModel) TableName() string { return "ledger_transaction_sequences" }

// DocumentModel is the read view of the documents owned by other modules.
// Document ids are only unique within a tenant and kind.
type DocumentModel struct {
	TenantID    string          `gorm:"primaryKey;size:64"`
	Kind        string          `gorm:"primaryKey;size:32"`
	ID          string          `gorm:"primaryKey;size:64"`
	Number      string          `gorm:"size:64"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Currency    string          `gorm:"size:3;not null"`
	Date        time.Time       `gorm:"type:date"`
	Description string          `gorm:"size:512"`
}

func (DocumentModel) TableName() string { return "ledger_documents" }

func newAccountModel(a *account.Account) *AccountModel {
	return &AccountModel{
		ID:          a.AccountID,
		TenantID:    a.TenantID,
		Code:        a.Code,
		Name:        a.Name,
		AccountType: string(a.AccountType),
		Active:      a.Active,
		Balance:     a.Balance,
		Currency:    a.Currency,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (m *AccountModel) toAccount() *account.Account {
	return &account.Account{
		TenantID:    m.TenantID,
		AccountID:   m.ID,
		Code:        m.Code,
		Name:        m.Name,
		AccountType: account.AccountType(m.AccountType),
		Active:      m.Active,
		Balance:     m.Balance,
		Currency:    m.Currency,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

func newTransactionModel(tx *ledger.Transaction) *TransactionModel {
	return &TransactionModel{
		ID:              tx.TransactionID,
		TenantID:        tx.TenantID,
		Number:          tx.Number,
		Description:     tx.Description,
		Reference:       tx.Reference,
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		Source:          string(tx.Source),
		SourceID:        tx.SourceID,
		SourceReference: tx.SourceReference,
		DebitAccountID:  tx.DebitAccountID,
		CreditAccountID: tx.CreditAccountID,
		Date:            tx.Date,
		Status:          string(tx.Status),
		Reconciled:      tx.Reconciled,
		ReconciledAt:    tx.ReconciledAt,
		ReconciledBy:    tx.ReconciledBy,
		CreatedBy:       tx.CreatedBy,
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
}

func (m *TransactionModel) toTransaction() *ledger.Transaction {
	tx := &ledger.Transaction{
		TenantID:        m.TenantID,
		TransactionID:   m.ID,
		Number:          m.Number,
		Description:     m.Description,
		Reference:       m.Reference,
		Amount:          m.Amount,
		Currency:        m.Currency,
		Source:          ledger.Source(m.Source),
		SourceID:        m.SourceID,
		SourceReference: m.SourceReference,
		DebitAccountID:  m.DebitAccountID,
		CreditAccountID: m.CreditAccountID,
		Date:            m.Date.UTC(),
		Status:          ledger.Status(m.Status),
		Reconciled:      m.Reconciled,
		ReconciledBy:    m.ReconciledBy,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
	if m.ReconciledAt != nil {
		at := m.ReconciledAt.UTC()
		tx.ReconciledAt = &at
	}
	for i := range m.Lines {
		tx.Lines = append(tx.Lines, m.Lines[i].toLine())
	}
	return tx
}

func newLineModel(l ledger.Line) TransactionLineModel {
	return TransactionLineModel{
		ID:            l.LineID,
		TenantID:      l.TenantID,
		TransactionID: l.TransactionID,
		AccountID:     l.AccountID,
		Debit:         l.Debit,
		Credit:        l.Credit,
		Description:   l.Description,
		CreatedAt:     l.CreatedAt,
	}
}

func (m *TransactionLineModel) toLine() ledger.Line {
	return ledger.Line{
		LineID:        m.ID,
		TenantID:      m.TenantID,
		TransactionID: m.TransactionID,
		AccountID:     m.AccountID,
		Debit:         m.Debit,
		Credit:        m.Credit,
		Description:   m.Description,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

func newDocumentModel(d *document.Document) *DocumentModel {
	return &DocumentModel{
		ID:          d.ID,
		TenantID:    d.TenantID,
		Kind:        string(d.Kind),
		Number:      d.Number,
		Amount:      d.Amount,
		Currency:    d.Currency,
		Date:        d.Date,
		Description: d.Description,
	}
}

func (m *DocumentModel) toDocument() *document.Document {
	return &document.Document{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Kind:        document.Kind(m.Kind),
		Number:      m.Number,
		Amount:      m.Amount,
		Currency:    m.Currency,
		Date:        m.Date.UTC(),
		Description: m.Description,
	}
}
