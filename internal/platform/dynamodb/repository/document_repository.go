package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/hirosato/ledger-engine/backend/internal/domain/document"
	commonErrors "github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/platform/dynamodb/client"
)

// DynamoDBDocumentRepository reads the documents written by the document modules
type DynamoDBDocumentRepository struct {
	client client.Client
	table  string
}

// NewDynamoDBDocumentRepository creates a new DynamoDBDocumentRepository
func NewDynamoDBDocumentRepository(client client.Client, table string) *DynamoDBDocumentRepository {
	return &DynamoDBDocumentRepository{
		client: client,
		table:  table,
	}
}

// Repository returns the read contract for one document kind
func (r *DynamoDBDocumentRepository) Repository(kind document.Kind) document.Repository {
	return document.RepositoryFunc(func(ctx context.Context, id, tenantID string) (*document.Document, error) {
		return r.GetDocument(ctx, kind, id, tenantID)
	})
}

// GetDocument retrieves a document by kind and ID within a tenant
func (r *DynamoDBDocumentRepository) GetDocument(ctx context.Context, kind document.Kind, id, tenantID string) (*document.Document, error) {
	item, err := getItem(ctx, r.client, r.table, tenantPK(tenantID), documentSK(kind, id))
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to get document", err)
	}
	if item == nil {
		return nil, commonErrors.NewNotFoundError(string(kind) + " not found")
	}

	var stored DocumentDDB
	if err := attributevalue.UnmarshalMap(item, &stored); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal document", err)
	}
	doc, err := stored.toDocument()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to decode document", err)
	}
	return doc, nil
}

// PutDocument stores a document in the layout GetDocument reads
func (r *DynamoDBDocumentRepository) PutDocument(ctx context.Context, doc *document.Document) error {
	item, err := attributevalue.MarshalMap(DocumentDDB{
		PK:          tenantPK(doc.TenantID),
		SK:          documentSK(doc.Kind, doc.ID),
		Type:        itemTypeDocument,
		Kind:        string(doc.Kind),
		DocumentID:  doc.ID,
		TenantID:    doc.TenantID,
		Number:      doc.Number,
		Amount:      doc.Amount.String(),
		Currency:    doc.Currency,
		Date:        doc.Date,
		Description: doc.Description,
	})
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal document", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return commonErrors.NewInternalError("failed to put document", err)
	}
	return nil
}
