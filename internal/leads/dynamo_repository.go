package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoRepository.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoRepository writes leads to a DynamoDB table keyed by "id".
type DynamoRepository struct {
	client DynamoAPI
	table  string
}

// NewDynamoRepository builds a repository over the given table.
func NewDynamoRepository(client DynamoAPI, table string) *DynamoRepository {
	if client == nil {
		panic("leads: dynamodb client required")
	}
	if table == "" {
		table = "leads"
	}
	return &DynamoRepository{client: client, table: table}
}

// Create puts the item with a condition so an ID is never written twice.
func (r *DynamoRepository) Create(ctx context.Context, lead *Lead) (*Lead, error) {
	stored, err := prepare(lead)
	if err != nil {
		return nil, err
	}
	item, err := attributevalue.MarshalMap(stored)
	if err != nil {
		return nil, fmt.Errorf("leads: marshal item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrLeadExists
		}
		return nil, fmt.Errorf("leads: put item: %w", err)
	}
	return stored, nil
}

// GetByID reads a lead by primary key.
func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("leads: get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrLeadNotFound
	}
	var lead Lead
	if err := attributevalue.UnmarshalMap(out.Item, &lead); err != nil {
		return nil, fmt.Errorf("leads: unmarshal item: %w", err)
	}
	return &lead, nil
}
