package client

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// DynamoDBClient is the SDK client with debug logging on the ledger's write paths
type DynamoDBClient struct {
	*dynamodb.Client
	logger *zap.Logger
}

// NewDynamoDBClient loads the default AWS config for region. A non-empty
// endpoint overrides the service endpoint, for DynamoDB Local.
func NewDynamoDBClient(ctx context.Context, region, endpoint string, logger *zap.Logger) (*DynamoDBClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	return &DynamoDBClient{
		Client: dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		logger: logger,
	}, nil
}

func (c *DynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.logger.Debug("PutItem",
		zap.String("table", aws.ToString(params.TableName)),
		zap.String("condition", aws.ToString(params.ConditionExpression)))
	return c.Client.PutItem(ctx, params, optFns...)
}

func (c *DynamoDBClient) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	c.logger.Debug("TransactWriteItems", zap.Int("items", len(params.TransactItems)))
	out, err := c.Client.TransactWriteItems(ctx, params, optFns...)
	if err != nil {
		c.logger.Debug("TransactWriteItems rejected", zap.Error(err))
	}
	return out, err
}

var _ Client = (*DynamoDBClient)(nil)
