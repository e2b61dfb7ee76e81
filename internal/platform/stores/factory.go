package stores

import (
	"context"

	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/common/config"
	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
	"github.com/hirosato/ledger-engine/backend/internal/domain/posting"
	"github.com/hirosato/ledger-engine/backend/internal/platform/dynamodb/client"
	"github.com/hirosato/ledger-engine/backend/internal/platform/dynamodb/repository"
	"github.com/hirosato/ledger-engine/backend/internal/platform/memory"
	"github.com/hirosato/ledger-engine/backend/internal/platform/postgres"
)

// Stores groups the repositories of one storage backend
type Stores struct {
	Accounts  account.Repository
	Ledger    ledger.Repository
	Sequence  ledger.SequenceStore
	Documents posting.DocumentRepositories
}

// New opens the backend selected by cfg.Store
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	switch cfg.Store {
	case config.StoreDynamoDB:
		return newDynamoDBStores(ctx, cfg, logger)
	case config.StorePostgres:
		return newPostgresStores(cfg, logger)
	case config.StoreMemory:
		return NewMemory(), nil
	default:
		return nil, errors.NewValidationError("unknown ledger store " + cfg.Store)
	}
}

func newDynamoDBStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	dbClient, err := client.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint, logger)
	if err != nil {
		return nil, errors.NewInternalError("failed to create DynamoDB client", err)
	}

	factory := repository.NewFactory(dbClient, cfg.DynamoDBTableName, logger)
	txRepo := factory.TransactionRepository()
	return &Stores{
		Accounts:  factory.AccountRepository(),
		Ledger:    txRepo,
		Sequence:  txRepo,
		Documents: factory.DocumentRepository(),
	}, nil
}

func newPostgresStores(cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	db, err := postgres.Open(cfg.DatabaseDSN, cfg.DBAutoMigrate, logger)
	if err != nil {
		return nil, err
	}

	txRepo := postgres.NewTransactionRepository(db, logger)
	return &Stores{
		Accounts:  postgres.NewAccountRepository(db, logger),
		Ledger:    txRepo,
		Sequence:  txRepo,
		Documents: postgres.NewDocumentRepository(db),
	}, nil
}

// NewMemory creates process-local stores for tests and local runs
func NewMemory() *Stores {
	return &Stores{
		Accounts:  memory.NewAccountRepository(),
		Ledger:    memory.NewLedgerRepository(),
		Sequence:  memory.NewSequenceStore(),
		Documents: memory.NewDocumentStore(),
	}
}
