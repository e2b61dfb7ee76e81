package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/common/utils"
	commonErrors "github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
	"github.com/hirosato/ledger-engine/backend/internal/platform/dynamodb/client"
)

// Positions inside the CreateTransaction write set
const (
	writeHeader = iota
	writeNumberGuard
	writeSourceGuard
)

// DynamoDBTransactionRepository implements ledger.Repository and ledger.SequenceStore
type DynamoDBTransactionRepository struct {
	client client.Client
	table  string
	logger *zap.Logger
}

// NewDynamoDBTransactionRepository creates a new DynamoDBTransactionRepository
func NewDynamoDBTransactionRepository(client client.Client, table string, logger *zap.Logger) *DynamoDBTransactionRepository {
	return &DynamoDBTransactionRepository{
		client: client,
		table:  table,
		logger: logger,
	}
}

// CreateTransaction writes the header, its lines and the number and source
// guards in a single TransactWriteItems call
func (r *DynamoDBTransactionRepository) CreateTransaction(ctx context.Context, tx *ledger.Transaction, lines []ledger.Line) error {
	notExists, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return commonErrors.NewInternalError("failed to build expression", err)
	}

	records := []interface{}{
		newTransactionDDB(tx),
		GuardDDB{PK: tenantPK(tx.TenantID), SK: numberSK(tx.Number), Type: itemTypeNumber, TargetID: tx.TransactionID},
		GuardDDB{PK: tenantPK(tx.TenantID), SK: sourceSK(tx.Source, tx.SourceID), Type: itemTypeSource, TargetID: tx.TransactionID},
	}
	for _, line := range lines {
		records = append(records, newLineDDB(line))
	}

	writes := make([]types.TransactWriteItem, 0, len(records))
	for _, record := range records {
		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return commonErrors.NewPersistenceError("failed to marshal transaction", err)
		}
		writes = append(writes, types.TransactWriteItem{Put: conditionalPut(r.table, item, notExists)})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	if err != nil {
		failed := cancelledIndexes(err)
		switch {
		case slices.Contains(failed, writeSourceGuard):
			return commonErrors.NewDuplicatePostingError(string(tx.Source), tx.SourceID)
		case slices.Contains(failed, writeNumberGuard):
			return commonErrors.NewNumberConflictError(tx.Number)
		}
		return commonErrors.NewPersistenceError("failed to write transaction", err)
	}

	return nil
}

// GetTransaction reads the header and its lines with one query on the
// shared TXN#<id> prefix
func (r *DynamoDBTransactionRepository) GetTransaction(ctx context.Context, tenantID, transactionID string) (*ledger.Transaction, error) {
	keyCondition := expression.Key("PK").Equal(expression.Value(tenantPK(tenantID))).
		And(expression.Key("SK").BeginsWith(transactionSK(transactionID)))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCondition).Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build expression", err)
	}

	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	}, 0)
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to query transaction", err)
	}

	var header *ledger.Transaction
	var lines []ledger.Line
	for _, item := range items {
		switch itemType(item) {
		case itemTypeTransaction:
			var stored TransactionDDB
			if err := attributevalue.UnmarshalMap(item, &stored); err != nil {
				return nil, commonErrors.NewInternalError("failed to unmarshal transaction", err)
			}
			if header, err = stored.toTransaction(); err != nil {
				return nil, commonErrors.NewInternalError("failed to decode transaction", err)
			}
		case itemTypeLine:
			var stored LineDDB
			if err := attributevalue.UnmarshalMap(item, &stored); err != nil {
				return nil, commonErrors.NewInternalError("failed to unmarshal transaction line", err)
			}
			line, err := stored.toLine()
			if err != nil {
				return nil, commonErrors.NewInternalError("failed to decode transaction line", err)
			}
			lines = append(lines, line)
		}
	}

	if header == nil {
		return nil, commonErrors.NewNotFoundError("transaction not found")
	}
	// Debit line first
	slices.SortStableFunc(lines, func(a, b ledger.Line) int {
		return b.Debit.Cmp(a.Debit)
	})
	header.Lines = lines
	return header, nil
}

// GetTransactionByNumber follows the number guard to the transaction
func (r *DynamoDBTransactionRepository) GetTransactionByNumber(ctx context.Context, tenantID, number string) (*ledger.Transaction, error) {
	return r.followGuard(ctx, tenantID, numberSK(number))
}

// FindBySource follows the source guard to the transaction
func (r *DynamoDBTransactionRepository) FindBySource(ctx context.Context, tenantID string, source ledger.Source, sourceID string) (*ledger.Transaction, error) {
	return r.followGuard(ctx, tenantID, sourceSK(source, sourceID))
}

func (r *DynamoDBTransactionRepository) followGuard(ctx context.Context, tenantID, sk string) (*ledger.Transaction, error) {
	item, err := getItem(ctx, r.client, r.table, tenantPK(tenantID), sk)
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to get transaction reference", err)
	}
	if item == nil {
		return nil, commonErrors.NewNotFoundError("transaction not found")
	}

	var guard GuardDDB
	if err := attributevalue.UnmarshalMap(item, &guard); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal transaction reference", err)
	}
	return r.GetTransaction(ctx, tenantID, guard.TargetID)
}

// MarkReconciled sets the reconciliation fields only while Reconciled is false
func (r *DynamoDBTransactionRepository) MarkReconciled(ctx context.Context, tenantID, transactionID, userID string, at time.Time) (bool, error) {
	update := expression.Set(expression.Name("Reconciled"), expression.Value(true)).
		Set(expression.Name("ReconciledAt"), expression.Value(at)).
		Set(expression.Name("ReconciledBy"), expression.Value(userID)).
		Set(expression.Name("UpdatedAt"), expression.Value(at))
	condition := expression.AttributeExists(expression.Name("PK")).
		And(expression.Name("Reconciled").Equal(expression.Value(false)))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(condition).Build()
	if err != nil {
		return false, commonErrors.NewInternalError("failed to build expression", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       itemKey(tenantPK(tenantID), transactionSK(transactionID)),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err == nil {
		return true, nil
	}

	var condCheckErr *types.ConditionalCheckFailedException
	if !errors.As(err, &condCheckErr) {
		return false, commonErrors.NewInternalError("failed to reconcile transaction", err)
	}

	// Either missing or already reconciled
	item, err := getItem(ctx, r.client, r.table, tenantPK(tenantID), transactionSK(transactionID))
	if err != nil {
		return false, commonErrors.NewInternalError("failed to get transaction", err)
	}
	if item == nil {
		return false, commonErrors.NewNotFoundError("transaction not found")
	}
	return false, nil
}

// QueryTrail reads headers newest first from the date index
func (r *DynamoDBTransactionRepository) QueryTrail(ctx context.Context, tenantID string, filter ledger.TrailFilter) ([]*ledger.Transaction, error) {
	keyCondition := expression.Key("GSI2PK").Equal(expression.Value(trailPK(tenantID)))

	switch {
	case filter.DateFrom != nil && filter.DateTo != nil:
		keyCondition = keyCondition.And(expression.Key("GSI2SK").Between(
			expression.Value(fmt.Sprintf("DATE#%s", filter.DateFrom.Format(utils.DateLayout))),
			expression.Value(fmt.Sprintf("DATE#%s\uFFFF", filter.DateTo.Format(utils.DateLayout))),
		))
	case filter.DateFrom != nil:
		keyCondition = keyCondition.And(expression.Key("GSI2SK").GreaterThanEqual(
			expression.Value(fmt.Sprintf("DATE#%s", filter.DateFrom.Format(utils.DateLayout))),
		))
	case filter.DateTo != nil:
		keyCondition = keyCondition.And(expression.Key("GSI2SK").LessThanEqual(
			expression.Value(fmt.Sprintf("DATE#%s\uFFFF", filter.DateTo.Format(utils.DateLayout))),
		))
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCondition)
	if filter.Source != "" {
		builder = builder.WithFilter(expression.Name("Source").Equal(expression.Value(string(filter.Source))))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build expression", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(indexTrailByDate),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}
	if filter.Limit > 0 {
		input.Limit = aws.Int32(int32(filter.Limit))
	}

	items, err := queryAll(ctx, r.client, input, filter.Limit)
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to query transactions", err)
	}

	var stored []TransactionDDB
	if err := attributevalue.UnmarshalListOfMaps(items, &stored); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal transactions", err)
	}

	result := make([]*ledger.Transaction, 0, len(stored))
	for _, s := range stored {
		tx, err := s.toTransaction()
		if err != nil {
			return nil, commonErrors.NewInternalError("failed to decode transaction", err)
		}
		result = append(result, tx)
	}
	return result, nil
}

// SumLines totals the lines posted to an account from the account index
func (r *DynamoDBTransactionRepository) SumLines(ctx context.Context, tenantID, accountID string) (decimal.Decimal, decimal.Decimal, error) {
	keyCondition := expression.Key("GSI1PK").Equal(expression.Value(linesByAccountPK(tenantID, accountID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCondition).Build()
	if err != nil {
		return decimal.Zero, decimal.Zero, commonErrors.NewInternalError("failed to build expression", err)
	}

	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(indexLinesByAccount),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, 0)
	if err != nil {
		return decimal.Zero, decimal.Zero, commonErrors.NewInternalError("failed to query transaction lines", err)
	}

	var stored []LineDDB
	if err := attributevalue.UnmarshalListOfMaps(items, &stored); err != nil {
		return decimal.Zero, decimal.Zero, commonErrors.NewInternalError("failed to unmarshal transaction lines", err)
	}

	lines := make([]ledger.Line, 0, len(stored))
	for _, s := range stored {
		line, err := s.toLine()
		if err != nil {
			return decimal.Zero, decimal.Zero, commonErrors.NewInternalError("failed to decode transaction line", err)
		}
		lines = append(lines, line)
	}

	debits, credits := ledger.SumLineAmounts(lines)
	return debits, credits, nil
}

// NextSequence atomically increments the tenant's counter for the year
func (r *DynamoDBTransactionRepository) NextSequence(ctx context.Context, tenantID string, year int) (int64, error) {
	expr, err := expression.NewBuilder().
		WithUpdate(expression.Add(expression.Name("Value"), expression.Value(1))).
		Build()
	if err != nil {
		return 0, err
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       itemKey(tenantPK(tenantID), sequenceSK(year)),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, err
	}

	value, ok := out.Attributes["Value"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("sequence counter for %s/%d returned no value", tenantID, year)
	}
	return strconv.ParseInt(value.Value, 10, 64)
}

func itemType(item map[string]types.AttributeValue) string {
	if t, ok := item["Type"].(*types.AttributeValueMemberS); ok {
		return t.Value
	}
	return ""
}
