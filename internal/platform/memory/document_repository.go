package memory

import (
	"context"
	"sync"

	"github.com/hirosato/ledger-engine/backend/internal/domain/document"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
)

// DocumentStore holds triggering documents of every kind
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*document.Document // kind|tenantID|id
}

// NewDocumentStore creates an empty document store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*document.Document)}
}

// Put stores or replaces a document
func (s *DocumentStore) Put(doc *document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *doc
	s.docs[key(string(doc.Kind), doc.TenantID, doc.ID)] = &stored
}

// Repository returns the read contract for one document kind
func (s *DocumentStore) Repository(kind document.Kind) document.Repository {
	return document.RepositoryFunc(func(ctx context.Context, id, tenantID string) (*document.Document, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		doc, ok := s.docs[key(string(kind), tenantID, id)]
		if !ok {
			return nil, errors.NewNotFoundError(string(kind) + " not found")
		}
		out := *doc
		return &out, nil
	})
}
