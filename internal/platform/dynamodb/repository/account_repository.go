package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	commonErrors "github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/platform/dynamodb/client"
)

// DynamoDBAccountRepository implements the account.Repository interface
type DynamoDBAccountRepository struct {
	client client.Client
	table  string
	logger *zap.Logger
}

// NewDynamoDBAccountRepository creates a new DynamoDBAccountRepository
func NewDynamoDBAccountRepository(client client.Client, table string, logger *zap.Logger) *DynamoDBAccountRepository {
	return &DynamoDBAccountRepository{
		client: client,
		table:  table,
		logger: logger,
	}
}

// CreateAccount writes the account together with a guard item reserving its code
func (r *DynamoDBAccountRepository) CreateAccount(ctx context.Context, acc *account.Account) (*account.Account, error) {
	accountItem, err := attributevalue.MarshalMap(newAccountDDB(acc))
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to marshal account", err)
	}
	guardItem, err := attributevalue.MarshalMap(GuardDDB{
		PK:       tenantPK(acc.TenantID),
		SK:       accountCodeSK(acc.Code),
		Type:     itemTypeAccountCode,
		TargetID: acc.AccountID,
	})
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to marshal account code guard", err)
	}

	notExists, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build expression", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: conditionalPut(r.table, accountItem, notExists)},
			{Put: conditionalPut(r.table, guardItem, notExists)},
		},
	})
	if err != nil {
		if failed := cancelledIndexes(err); len(failed) > 0 {
			return nil, commonErrors.NewConflictError(fmt.Sprintf("account code %s already exists", acc.Code))
		}
		return nil, commonErrors.NewInternalError("failed to create account", err)
	}

	return acc, nil
}

// GetAccount retrieves an account by ID
func (r *DynamoDBAccountRepository) GetAccount(ctx context.Context, tenantID, accountID string) (*account.Account, error) {
	item, err := getItem(ctx, r.client, r.table, tenantPK(tenantID), accountSK(accountID))
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to get account", err)
	}
	if item == nil {
		return nil, commonErrors.NewNotFoundError("account not found")
	}

	var stored AccountDDB
	if err := attributevalue.UnmarshalMap(item, &stored); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal account", err)
	}
	acc, err := stored.toAccount()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to decode account", err)
	}
	return acc, nil
}

// FindAccountByCode resolves the code guard, then the account it points at
func (r *DynamoDBAccountRepository) FindAccountByCode(ctx context.Context, tenantID, code string) (*account.Account, error) {
	item, err := getItem(ctx, r.client, r.table, tenantPK(tenantID), accountCodeSK(code))
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to get account code", err)
	}
	if item == nil {
		return nil, commonErrors.NewNotFoundError(fmt.Sprintf("account code %s not found", code))
	}

	var guard GuardDDB
	if err := attributevalue.UnmarshalMap(item, &guard); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal account code", err)
	}

	return r.GetAccount(ctx, tenantID, guard.TargetID)
}

// ListAccounts returns the tenant's accounts ordered by code
func (r *DynamoDBAccountRepository) ListAccounts(ctx context.Context, tenantID string, includeInactive bool) ([]*account.Account, error) {
	keyCondition := expression.Key("PK").Equal(expression.Value(tenantPK(tenantID))).
		And(expression.Key("SK").BeginsWith("ACCOUNT#"))

	builder := expression.NewBuilder().WithKeyCondition(keyCondition)
	if !includeInactive {
		builder = builder.WithFilter(expression.Name("Active").Equal(expression.Value(true)))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build expression", err)
	}

	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, 0)
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to query accounts", err)
	}

	var stored []AccountDDB
	if err := attributevalue.UnmarshalListOfMaps(items, &stored); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal accounts", err)
	}

	accounts := make([]*account.Account, 0, len(stored))
	for _, s := range stored {
		acc, err := s.toAccount()
		if err != nil {
			return nil, commonErrors.NewInternalError("failed to decode account", err)
		}
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })

	return accounts, nil
}

// DeactivateAccount flags an account inactive
func (r *DynamoDBAccountRepository) DeactivateAccount(ctx context.Context, tenantID, accountID string) error {
	update := expression.Set(expression.Name("Active"), expression.Value(false)).
		Set(expression.Name("UpdatedAt"), expression.Value(time.Now().UTC()))
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return commonErrors.NewInternalError("failed to build expression", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       itemKey(tenantPK(tenantID), accountSK(accountID)),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condCheckErr *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckErr) {
			return commonErrors.NewNotFoundError("account not found")
		}
		return commonErrors.NewInternalError("failed to deactivate account", err)
	}

	r.logger.Info("account deactivated", zap.String("tenantId", tenantID), zap.String("accountId", accountID))
	return nil
}
