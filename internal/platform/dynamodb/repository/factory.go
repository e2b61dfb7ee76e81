package repository

import (
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/platform/dynamodb/client"
)

// Factory creates repository instances
type Factory struct {
	client    client.Client
	tableName string
	logger    *zap.Logger
}

// NewFactory creates a new repository factory
func NewFactory(client client.Client, tableName string, logger *zap.Logger) *Factory {
	return &Factory{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// AccountRepository returns the DynamoDB account.Repository
func (f *Factory) AccountRepository() *DynamoDBAccountRepository {
	return NewDynamoDBAccountRepository(f.client, f.tableName, f.logger)
}

// TransactionRepository returns the DynamoDB ledger.Repository, which also
// serves as the ledger.SequenceStore
func (f *Factory) TransactionRepository() *DynamoDBTransactionRepository {
	return NewDynamoDBTransactionRepository(f.client, f.tableName, f.logger)
}

// DocumentRepository returns the DynamoDB document reader
func (f *Factory) DocumentRepository() *DynamoDBDocumentRepository {
	return NewDynamoDBDocumentRepository(f.client, f.tableName)
}
