package posting

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/common/utils"
	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	"github.com/hirosato/ledger-engine/backend/internal/domain/document"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
)

// AccountDirectory resolves chart-of-accounts entries by code
type AccountDirectory interface {
	FindAccountByCode(ctx context.Context, tenantID, code string) (*account.Account, error)
}

// Descriptor is everything that differs between document types: the source
// tag, the fixed account pair and how to load the triggering document.
type Descriptor struct {
	Source     ledger.Source
	DebitCode  string
	CreditCode string
	Load       document.Repository
}

// Poster turns a triggering document into a ledger transaction
type Poster struct {
	recorder *ledger.Recorder
	accounts AccountDirectory
	ledger   ledger.Repository
	logger   *zap.Logger
}

// NewPoster creates a new poster
func NewPoster(recorder *ledger.Recorder, accounts AccountDirectory, repo ledger.Repository, logger *zap.Logger) *Poster {
	return &Poster{
		recorder: recorder,
		accounts: accounts,
		ledger:   repo,
		logger:   logger,
	}
}

// PostDocumentTransaction loads the document, resolves both accounts and
// records the transaction. Nothing is written unless both accounts resolve.
// A document that is already posted yields its existing transaction.
func (p *Poster) PostDocumentTransaction(ctx context.Context, d Descriptor, documentID, tenantID, userID string) (*ledger.Transaction, error) {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	doc, err := d.Load.GetByID(ctx, documentID, tenantID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewDocumentNotFoundError(string(d.Source), documentID)
		}
		return nil, err
	}

	existing, err := p.ledger.FindBySource(ctx, tenantID, d.Source, doc.ID)
	if err == nil {
		p.logger.Info("document already posted",
			zap.String("tenantId", tenantID),
			zap.String("source", string(d.Source)),
			zap.String("documentId", doc.ID),
			zap.String("transactionId", existing.TransactionID))
		return existing, nil
	}
	if !stderrors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	debit, err := p.accounts.FindAccountByCode(ctx, tenantID, d.DebitCode)
	if err != nil {
		return nil, err
	}
	credit, err := p.accounts.FindAccountByCode(ctx, tenantID, d.CreditCode)
	if err != nil {
		return nil, err
	}

	if doc.Amount.IsZero() {
		p.logger.Warn("posting zero-amount document",
			zap.String("tenantId", tenantID),
			zap.String("source", string(d.Source)),
			zap.String("documentId", doc.ID),
			zap.String("documentNumber", doc.Number))
	}

	tx, err := p.recorder.Record(ctx, ledger.RecordRequest{
		TenantID:        tenantID,
		Description:     describe(d.Source, doc),
		Amount:          doc.Amount,
		Currency:        doc.Currency,
		Source:          d.Source,
		SourceID:        doc.ID,
		SourceReference: doc.Number,
		DebitAccountID:  debit.AccountID,
		CreditAccountID: credit.AccountID,
		Date:            doc.Date,
		CreatedBy:       userID,
	})
	if err != nil {
		// Lost a race with a concurrent post of the same document
		if stderrors.Is(err, errors.ErrDuplicatePosting) {
			return p.ledger.FindBySource(ctx, tenantID, d.Source, doc.ID)
		}
		return nil, err
	}

	return tx, nil
}

func describe(source ledger.Source, doc *document.Document) string {
	if doc.Description != "" {
		return doc.Description
	}

	label := map[ledger.Source]string{
		ledger.SourceInvoice:    "Invoice",
		ledger.SourceBill:       "Bill",
		ledger.SourcePayment:    "Payment",
		ledger.SourceCreditNote: "Credit note",
		ledger.SourceExpense:    "Expense",
	}[source]
	if label == "" {
		label = string(source)
	}
	if doc.Number == "" {
		return label
	}
	return label + " " + doc.Number
}
