package dynamo

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is a single-table, in-memory stand-in for the DynamoDB API.
// It understands only the expressions the repositories emit.
type fakeDynamo struct {
	mu      sync.Mutex
	keys    []string
	items   map[string]map[string]types.AttributeValue
	failing error
}

func newFakeDynamo(keyAttrs ...string) *fakeDynamo {
	return &fakeDynamo{keys: keyAttrs, items: map[string]map[string]types.AttributeValue{}}
}

func (f *fakeDynamo) id(m map[string]types.AttributeValue) string {
	parts := make([]string, 0, len(f.keys))
	for _, k := range f.keys {
		if s, ok := m[k].(*types.AttributeValueMemberS); ok {
			parts = append(parts, s.Value)
		}
	}
	return strings.Join(parts, "|")
}

func (f *fakeDynamo) checkCondition(cond *string, exists bool) error {
	if cond == nil {
		return nil
	}
	switch {
	case strings.HasPrefix(*cond, "attribute_not_exists") && exists,
		strings.HasPrefix(*cond, "attribute_exists") && !exists:
		return &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	}
	return nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing != nil {
		return nil, f.failing
	}
	key := f.id(in.Item)
	_, exists := f.items[key]
	if err := f.checkCondition(in.ConditionExpression, exists); err != nil {
		return nil, err
	}
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing != nil {
		return nil, f.failing
	}
	return &dynamodb.GetItemOutput{Item: f.items[f.id(in.Key)]}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing != nil {
		return nil, f.failing
	}
	delete(f.items, f.id(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing != nil {
		return nil, f.failing
	}
	key := f.id(in.Key)
	item, exists := f.items[key]
	if err := f.checkCondition(in.ConditionExpression, exists); err != nil {
		return nil, err
	}
	if !exists {
		item = map[string]types.AttributeValue{}
		for k, v := range in.Key {
			item[k] = v
		}
	}
	assignments := strings.Split(strings.TrimPrefix(aws.ToString(in.UpdateExpression), "SET "), ", ")
	for _, a := range assignments {
		nv := strings.Split(a, " = ")
		item[in.ExpressionAttributeNames[nv[0]]] = in.ExpressionAttributeValues[nv[1]]
	}
	f.items[key] = item
	return &dynamodb.UpdateItemOutput{}, nil
}

// TransactWriteItems supports conditional puts only. Either every put is
// applied or none is.
func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing != nil {
		return nil, f.failing
	}
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	canceled := false
	for i, ti := range in.TransactItems {
		if ti.Put == nil {
			return nil, errors.New("fake: only Put is supported in transactions")
		}
		_, exists := f.items[f.id(ti.Put.Item)]
		reasons[i].Code = aws.String("None")
		if f.checkCondition(ti.Put.ConditionExpression, exists) != nil {
			reasons[i].Code = aws.String("ConditionalCheckFailed")
			canceled = true
		}
	}
	if canceled {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	for _, ti := range in.TransactItems {
		f.items[f.id(ti.Put.Item)] = ti.Put.Item
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing != nil {
		return nil, f.failing
	}
	attr := in.ExpressionAttributeNames["#a"]
	want, ok := in.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("fake: unsupported query")
	}
	var out []map[string]types.AttributeValue
	for _, item := range f.items {
		if s, ok := item[attr].(*types.AttributeValueMemberS); ok && s.Value == want.Value {
			out = append(out, item)
		}
	}
	return &dynamodb.QueryOutput{Items: out}, nil
}
