package posting

import (
	"context"

	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	"github.com/hirosato/ledger-engine/backend/internal/domain/document"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
)

// Adapter posts one document type to the ledger
type Adapter struct {
	poster     *Poster
	descriptor Descriptor
}

// PostFor posts the document identified by documentID for the tenant
func (a *Adapter) PostFor(ctx context.Context, documentID, tenantID, userID string) (*ledger.Transaction, error) {
	return a.poster.PostDocumentTransaction(ctx, a.descriptor, documentID, tenantID, userID)
}

// Source returns the ledger source this adapter posts under
func (a *Adapter) Source() ledger.Source {
	return a.descriptor.Source
}

// NewInvoiceAdapter debits Accounts Receivable and credits Sales Revenue
func NewInvoiceAdapter(p *Poster, invoices document.Repository) *Adapter {
	return &Adapter{poster: p, descriptor: Descriptor{
		Source:     ledger.SourceInvoice,
		DebitCode:  account.CodeAccountsReceivable,
		CreditCode: account.CodeSalesRevenue,
		Load:       invoices,
	}}
}

// NewBillAdapter debits Operating Expense and credits Accounts Payable
func NewBillAdapter(p *Poster, bills document.Repository) *Adapter {
	return &Adapter{poster: p, descriptor: Descriptor{
		Source:     ledger.SourceBill,
		DebitCode:  account.CodeOperatingExpense,
		CreditCode: account.CodeAccountsPayable,
		Load:       bills,
	}}
}

// NewPaymentAdapter debits Cash and credits Accounts Receivable
func NewPaymentAdapter(p *Poster, payments document.Repository) *Adapter {
	return &Adapter{poster: p, descriptor: Descriptor{
		Source:     ledger.SourcePayment,
		DebitCode:  account.CodeCash,
		CreditCode: account.CodeAccountsReceivable,
		Load:       payments,
	}}
}

// NewCreditNoteAdapter debits Sales Returns and credits Accounts Receivable
func NewCreditNoteAdapter(p *Poster, creditNotes document.Repository) *Adapter {
	return &Adapter{poster: p, descriptor: Descriptor{
		Source:     ledger.SourceCreditNote,
		DebitCode:  account.CodeSalesReturns,
		CreditCode: account.CodeAccountsReceivable,
		Load:       creditNotes,
	}}
}

// NewExpenseAdapter debits Operating Expense and credits Cash
func NewExpenseAdapter(p *Poster, expenses document.Repository) *Adapter {
	return &Adapter{poster: p, descriptor: Descriptor{
		Source:     ledger.SourceExpense,
		DebitCode:  account.CodeOperatingExpense,
		CreditCode: account.CodeCash,
		Load:       expenses,
	}}
}

// Registry looks adapters up by the document kind they post
type Registry map[document.Kind]*Adapter

// DocumentRepositories supplies the read contract of each document module
type DocumentRepositories interface {
	Repository(kind document.Kind) document.Repository
}

// NewRegistry builds the five adapters over one poster
func NewRegistry(p *Poster, docs DocumentRepositories) Registry {
	return Registry{
		document.Invoice:    NewInvoiceAdapter(p, docs.Repository(document.Invoice)),
		document.Bill:       NewBillAdapter(p, docs.Repository(document.Bill)),
		document.Payment:    NewPaymentAdapter(p, docs.Repository(document.Payment)),
		document.CreditNote: NewCreditNoteAdapter(p, docs.Repository(document.CreditNote)),
		document.Expense:    NewExpenseAdapter(p, docs.Repository(document.Expense)),
	}
}
