package repository

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirosato/ledger-engine/backend/internal/common/utils"
	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	"github.com/hirosato/ledger-engine/backend/internal/domain/document"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
)

// Single-table layout. Every item of a tenant lives under PK TENANT#<id>.
//
//	ACCOUNT#<accountId>                   account
//	ACCOUNT_CODE#<code>                   code guard -> accountId
//	TXN#<transactionId>                   transaction header (GSI2: trail by date)
//	TXN#<transactionId>#LINE#<lineId>     transaction line (GSI1: lines by account)
//	TXN_NUMBER#<number>                   number guard -> transactionId
//	TXN_SOURCE#<source>#<sourceId>        source guard -> transactionId
//	SEQUENCE#<year>                       transaction number counter
//	DOCUMENT#<kind>#<documentId>          triggering document
const (
	itemTypeAccount     = "account"
	itemTypeAccountCode = "account_code"
	itemTypeTransaction = "transaction"
	itemTypeLine        = "transaction_line"
	itemTypeNumber      = "transaction_number"
	itemTypeSource      = "transaction_source"
	itemTypeDocument    = "document"

	indexLinesByAccount = "GSI1"
	indexTrailByDate    = "GSI2"
)

func tenantPK(tenantID string) string {
	return fmt.Sprintf("TENANT#%s", tenantID)
}

func accountSK(accountID string) string {
	return fmt.Sprintf("ACCOUNT#%s", accountID)
}

func accountCodeSK(code string) string {
	return fmt.Sprintf("ACCOUNT_CODE#%s", code)
}

func transactionSK(transactionID string) string {
	return fmt.Sprintf("TXN#%s", transactionID)
}

func lineSK(transactionID, lineID string) string {
	return fmt.Sprintf("TXN#%s#LINE#%s", transactionID, lineID)
}

func numberSK(number string) string {
	return fmt.Sprintf("TXN_NUMBER#%s", number)
}

func sourceSK(source ledger.Source, sourceID string) string {
	return fmt.Sprintf("TXN_SOURCE#%s#%s", source, sourceID)
}

func sequenceSK(year int) string {
	return fmt.Sprintf("SEQUENCE#%04d", year)
}

func documentSK(kind document.Kind, documentID string) string {
	return fmt.Sprintf("DOCUMENT#%s#%s", kind, documentID)
}

func linesByAccountPK(tenantID, accountID string) string {
	return fmt.Sprintf("TENANT#%s#ACCOUNT#%s", tenantID, accountID)
}

func trailPK(tenantID string) string {
	return fmt.Sprintf("TENANT#%s#TXN", tenantID)
}

func trailSK(date time.Time, transactionID string) string {
	return fmt.Sprintf("DATE#%s#TXN#%s", date.UTC().Format(utils.DateLayout), transactionID)
}

// AccountDDB is the stored form of an account; decimals are kept as strings
type AccountDDB struct {
	PK          string
	SK          string
	Type        string
	TenantID    string
	AccountID   string
	Code        string
	Name        string
	AccountType string
	Active      bool
	Balance     string
	Currency    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func newAccountDDB(acc *account.Account) AccountDDB {
	return AccountDDB{
		PK:          tenantPK(acc.TenantID),
		SK:          accountSK(acc.AccountID),
		Type:        itemTypeAccount,
		TenantID:    acc.TenantID,
		AccountID:   acc.AccountID,
		Code:        acc.Code,
		Name:        acc.Name,
		AccountType: string(acc.AccountType),
		Active:      acc.Active,
		Balance:     acc.Balance.String(),
		Currency:    acc.Currency,
		CreatedAt:   acc.CreatedAt,
		UpdatedAt:   acc.UpdatedAt,
	}
}

func (a AccountDDB) toAccount() (*account.Account, error) {
	balance, err := parseAmount(a.Balance)
	if err != nil {
		return nil, err
	}
	return &account.Account{
		TenantID:    a.TenantID,
		AccountID:   a.AccountID,
		Code:        a.Code,
		Name:        a.Name,
		AccountType: account.AccountType(a.AccountType),
		Active:      a.Active,
		Balance:     balance,
		Currency:    a.Currency,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}, nil
}

// GuardDDB reserves a unique value within a tenant and points at its owner
type GuardDDB struct {
	PK       string
	SK       string
	Type     string
	TargetID string
}

// TransactionDDB is the stored form of a transaction header
type TransactionDDB struct {
	PK              string
	SK              string
	GSI2PK          string
	GSI2SK          string
	Type            string
	TenantID        string
	TransactionID   string
	Number          string
	Description     string
	Reference       string `dynamodbav:",omitempty"`
	Amount          string
	Currency        string
	Source          string
	SourceID        string
	SourceReference string `dynamodbav:",omitempty"`
	DebitAccountID  string
	CreditAccountID string
	Date            time.Time
	Status          string
	Reconciled      bool
	ReconciledAt    *time.Time `dynamodbav:",omitempty"`
	ReconciledBy    string     `dynamodbav:",omitempty"`
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func newTransactionDDB(tx *ledger.Transaction) TransactionDDB {
	return TransactionDDB{
		PK:              tenantPK(tx.TenantID),
		SK:              transactionSK(tx.TransactionID),
		GSI2PK:          trailPK(tx.TenantID),
		GSI2SK:          trailSK(tx.Date, tx.TransactionID),
		Type:            itemTypeTransaction,
		TenantID:        tx.TenantID,
		TransactionID:   tx.TransactionID,
		Number:          tx.Number,
		Description:     tx.Description,
		Reference:       tx.Reference,
		Amount:          tx.Amount.String(),
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

func (t TransactionDDB) toTransaction() (*ledger.Transaction, error) {
	amount, err := parseAmount(t.Amount)
	if err != nil {
		return nil, err
	}
	return &ledger.Transaction{
		TenantID:        t.TenantID,
		TransactionID:   t.TransactionID,
		Number:          t.Number,
		Description:     t.Description,
		Reference:       t.Reference,
		Amount:          amount,
		Currency:        t.Currency,
		Source:          ledger.Source(t.Source),
		SourceID:        t.SourceID,
		SourceReference: t.SourceReference,
		DebitAccountID:  t.DebitAccountID,
		CreditAccountID: t.CreditAccountID,
		Date:            t.Date,
		Status:          ledger.Status(t.Status),
		Reconciled:      t.Reconciled,
		ReconciledAt:    t.ReconciledAt,
		ReconciledBy:    t.ReconciledBy,
		CreatedBy:       t.CreatedBy,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}, nil
}

// LineDDB is the stored form of a transaction line
type LineDDB struct {
	PK            string
	SK            string
	GSI1PK        string
	GSI1SK        string
	Type          string
	LineID        string
	TenantID      string
	TransactionID string
	AccountID     string
	Debit         string
	Credit        string
	Description   string `dynamodbav:",omitempty"`
	CreatedAt     time.Time
}

func newLineDDB(line ledger.Line) LineDDB {
	return LineDDB{
		PK:            tenantPK(line.TenantID),
		SK:            lineSK(line.TransactionID, line.LineID),
		GSI1PK:        linesByAccountPK(line.TenantID, line.AccountID),
		GSI1SK:        fmt.Sprintf("LINE#%s", line.LineID),
		Type:          itemTypeLine,
		LineID:        line.LineID,
		TenantID:      line.TenantID,
		TransactionID: line.TransactionID,
		AccountID:     line.AccountID,
		Debit:         line.Debit.String(),
		Credit:        line.Credit.String(),
		Description:   line.Description,
		CreatedAt:     line.CreatedAt,
	}
}

func (l LineDDB) toLine() (ledger.Line, error) {
	debit, err := parseAmount(l.Debit)
	if err != nil {
		return ledger.Line{}, err
	}
	credit, err := parseAmount(l.Credit)
	if err != nil {
		return ledger.Line{}, err
	}
	return ledger.Line{
		LineID:        l.LineID,
		TenantID:      l.TenantID,
		TransactionID: l.TransactionID,
		AccountID:     l.AccountID,
		Debit:         debit,
		Credit:        credit,
		Description:   l.Description,
		CreatedAt:     l.CreatedAt,
	}, nil
}

// DocumentDDB is the stored form of a triggering document
type DocumentDDB struct {
	PK          string
	SK          string
	Type        string
	Kind        string
	DocumentID  string
	TenantID    string
	Number      string
	Amount      string
	Currency    string
	Date        time.Time
	Description string `dynamodbav:",omitempty"`
}

func (d DocumentDDB) toDocument() (*document.Document, error) {
	amount, err := parseAmount(d.Amount)
	if err != nil {
		return nil, err
	}
	return &document.Document{
		ID:          d.DocumentID,
		TenantID:    d.TenantID,
		Kind:        document.Kind(d.Kind),
		Number:      d.Number,
		Amount:      amount,
		Currency:    d.Currency,
		Date:        d.Date,
		Description: d.Description,
	}, nil
}

func parseAmount(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid stored amount %q: %w", value, err)
	}
	return amount, nil
}
