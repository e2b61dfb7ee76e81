package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hirosato/ledger-engine/backend/internal/domain/document"
	commonErrors "github.com/hirosato/ledger-engine/backend/internal/domain/errors"
)

// DocumentRepository reads triggering documents from the ledger_documents table
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Repository returns the reader for one document kind
func (r *DocumentRepository) Repository(kind document.Kind) document.Repository {
	return document.RepositoryFunc(func(ctx context.Context, id, tenantID string) (*document.Document, error) {
		return r.GetDocument(ctx, kind, id, tenantID)
	})
}

// GetDocument returns a document of kind within a tenant
func (r *DocumentRepository) GetDocument(ctx context.Context, kind document.Kind, id, tenantID string) (*document.Document, error) {
	var model DocumentModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ? AND id = ?", tenantID, string(kind), id).
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, commonErrors.NewNotFoundError("document not found")
		}
		return nil, commonErrors.NewInternalError("failed to get document", err)
	}
	return model.toDocument(), nil
}

// PutDocument upserts a document; used to seed documents owned by other modules
func (r *DocumentRepository) PutDocument(ctx context.Context, doc *document.Document) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "kind"}, {Name: "id"}},
			UpdateAll: true,
		}).
		Create(newDocumentModel(doc)).Error
	if err != nil {
		return commonErrors.NewPersistenceError("failed to save document", err)
	}
	return nil
}
