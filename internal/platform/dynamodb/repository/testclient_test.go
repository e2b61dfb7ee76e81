package repository

import (
	"context"
	"math/big"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	existsRe     = regexp.MustCompile(`attribute_exists\s*\(\s*(#?\w+)\s*\)`)
	notExistsRe  = regexp.MustCompile(`attribute_not_exists\s*\(\s*(#?\w+)\s*\)`)
	beginsWithRe = regexp.MustCompile(`begins_with\s*\(\s*(#\w+)\s*,\s*(:\w+)\s*\)`)
	betweenRe    = regexp.MustCompile(`(#\w+)\s+BETWEEN\s+(:\w+)\s+AND\s+(:\w+)`)
	compareRe    = regexp.MustCompile(`(#\w+)\s*(<>|<=|>=|=|<|>)\s*(:\w+)`)
	addRe        = regexp.MustCompile(`ADD\s+(#\w+)\s+(:\w+)`)
)

// TestClient is an in-memory implementation of the DynamoDB client interface for testing.
// It understands the conjunctive expressions the repositories build: equality and
// range comparisons, begins_with, BETWEEN and attribute_(not_)exists.
type TestClient struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	// TransactWriteErr fails every TransactWriteItems call without writing anything
	TransactWriteErr error
	// TransactWriteHook, when set, decides the outcome of TransactWriteItems instead of the store
	TransactWriteHook func(params *dynamodb.TransactWriteItemsInput) error
	// QueryErr fails every Query call
	QueryErr error
}

// NewTestClient creates a new test client with an empty items map
func NewTestClient() *TestClient {
	return &TestClient{
		items: make(map[string]map[string]types.AttributeValue),
	}
}

func storeKey(item map[string]types.AttributeValue) string {
	return stringAttr(item, "PK") + "#" + stringAttr(item, "SK")
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// GetItem retrieves an item from the in-memory store
func (c *TestClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[storeKey(params.Key)]; exists {
		return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
	}
	return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{}}, nil
}

// PutItem adds or replaces an item, honouring the condition expression
func (c *TestClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := storeKey(params.Item)
	if !matches(aws.ToString(params.ConditionExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, c.items[key]) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}

	c.items[key] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// UpdateItem applies SET assignments or a numeric ADD, creating the item when absent
func (c *TestClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := storeKey(params.Key)
	existing := c.items[key]
	names, values := params.ExpressionAttributeNames, params.ExpressionAttributeValues
	if !matches(aws.ToString(params.ConditionExpression), names, values, existing) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}

	item := copyItem(existing)
	if item == nil {
		item = copyItem(params.Key)
	}

	update := aws.ToString(params.UpdateExpression)
	if m := addRe.FindStringSubmatch(update); m != nil {
		attr := resolveName(m[1], names)
		sum := new(big.Float)
		if current, ok := item[attr].(*types.AttributeValueMemberN); ok {
			sum.SetString(current.Value)
		}
		delta, _ := new(big.Float).SetString(values[m[2]].(*types.AttributeValueMemberN).Value)
		sum.Add(sum, delta)
		item[attr] = &types.AttributeValueMemberN{Value: sum.Text('f', -1)}
		update = strings.Replace(update, m[0], "", 1)
	}
	for _, m := range compareRe.FindAllStringSubmatch(update, -1) {
		if m[2] == "=" {
			item[resolveName(m[1], names)] = values[m[3]]
		}
	}

	c.items[key] = item
	return &dynamodb.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

// Query evaluates the key condition, pages by Limit and then applies the filter,
// the same order DynamoDB uses
func (c *TestClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.QueryErr != nil {
		return nil, c.QueryErr
	}

	names, values := params.ExpressionAttributeNames, params.ExpressionAttributeValues
	sortKey := "SK"
	if params.IndexName != nil {
		sortKey = aws.ToString(params.IndexName) + "SK"
	}

	var candidates []map[string]types.AttributeValue
	for _, item := range c.items {
		if matches(aws.ToString(params.KeyConditionExpression), names, values, item) {
			candidates = append(candidates, item)
		}
	}

	forward := params.ScanIndexForward == nil || *params.ScanIndexForward
	sort.Slice(candidates, func(i, j int) bool {
		a, b := stringAttr(candidates[i], sortKey), stringAttr(candidates[j], sortKey)
		if a == b {
			a, b = storeKey(candidates[i]), storeKey(candidates[j])
		}
		if forward {
			return a < b
		}
		return a > b
	})

	if len(params.ExclusiveStartKey) > 0 {
		start := storeKey(params.ExclusiveStartKey)
		for i, item := range candidates {
			if storeKey(item) == start {
				candidates = candidates[i+1:]
				break
			}
		}
	}

	out := &dynamodb.QueryOutput{}
	if params.Limit != nil && int(*params.Limit) < len(candidates) {
		candidates = candidates[:*params.Limit]
		last := candidates[len(candidates)-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{"PK": last["PK"], "SK": last["SK"]}
	}

	for _, item := range candidates {
		if matches(aws.ToString(params.FilterExpression), names, values, item) {
			out.Items = append(out.Items, copyItem(item))
		}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

// TransactWriteItems checks every condition before applying any write
func (c *TestClient) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.TransactWriteErr != nil {
		return nil, c.TransactWriteErr
	}
	if c.TransactWriteHook != nil {
		if err := c.TransactWriteHook(params); err != nil {
			return nil, err
		}
		return &dynamodb.TransactWriteItemsOutput{}, nil
	}

	reasons := make([]types.CancellationReason, len(params.TransactItems))
	cancelled := false
	for i, write := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		put := write.Put
		if put == nil {
			continue
		}
		if !matches(aws.ToString(put.ConditionExpression), put.ExpressionAttributeNames, put.ExpressionAttributeValues, c.items[storeKey(put.Item)]) {
			reasons[i] = types.CancellationReason{Code: aws.String(conditionalCheckFailed)}
			cancelled = true
		}
	}
	if cancelled {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, write := range params.TransactItems {
		if write.Put != nil {
			c.items[storeKey(write.Put.Item)] = copyItem(write.Put.Item)
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// Len returns the number of stored items whose SK starts with prefix
func (c *TestClient) Len(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, item := range c.items {
		if strings.HasPrefix(stringAttr(item, "SK"), prefix) {
			n++
		}
	}
	return n
}

func matches(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) bool {
	if expr == "" {
		return true
	}

	for _, m := range existsRe.FindAllStringSubmatch(expr, -1) {
		if _, ok := item[resolveName(m[1], names)]; !ok {
			return false
		}
	}
	for _, m := range notExistsRe.FindAllStringSubmatch(expr, -1) {
		if _, ok := item[resolveName(m[1], names)]; ok {
			return false
		}
	}
	for _, m := range beginsWithRe.FindAllStringSubmatch(expr, -1) {
		attr, ok := item[resolveName(m[1], names)].(*types.AttributeValueMemberS)
		if !ok || !strings.HasPrefix(attr.Value, values[m[2]].(*types.AttributeValueMemberS).Value) {
			return false
		}
	}
	for _, m := range betweenRe.FindAllStringSubmatch(expr, -1) {
		attr, ok := item[resolveName(m[1], names)]
		if !ok {
			return false
		}
		lo, okLo := compare(attr, values[m[2]])
		hi, okHi := compare(attr, values[m[3]])
		if !okLo || !okHi || lo < 0 || hi > 0 {
			return false
		}
	}
	for _, m := range compareRe.FindAllStringSubmatch(expr, -1) {
		attr, ok := item[resolveName(m[1], names)]
		if !ok {
			return false
		}
		cmp, ok := compare(attr, values[m[3]])
		if !ok {
			return false
		}
		switch m[2] {
		case "=":
			ok = cmp == 0
		case "<>":
			ok = cmp != 0
		case "<":
			ok = cmp < 0
		case "<=":
			ok = cmp <= 0
		case ">":
			ok = cmp > 0
		case ">=":
			ok = cmp >= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

func resolveName(token string, names map[string]string) string {
	if strings.HasPrefix(token, "#") {
		return names[token]
	}
	return token
}

func compare(a, b types.AttributeValue) (int, bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		return strings.Compare(av.Value, bv.Value), true
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		x, _ := new(big.Float).SetString(av.Value)
		y, _ := new(big.Float).SetString(bv.Value)
		return x.Cmp(y), true
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		if !ok || av.Value != bv.Value {
			return 1, ok
		}
		return 0, true
	}
	return 0, false
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
