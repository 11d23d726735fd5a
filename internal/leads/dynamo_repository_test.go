package leads

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	items  map[string]map[string]types.AttributeValue
	putErr error
	puts   []*dynamodb.PutItemInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	id := in.Item["id"].(*types.AttributeValueMemberS).Value
	if _, exists := f.items[id]; exists {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	id := in.Key["id"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

func TestDynamoRepositoryRoundTrip(t *testing.T) {
	api := newFakeDynamo()
	repo := NewDynamoRepository(api, "leads-test")

	created, err := repo.Create(context.Background(), &Lead{
		FirstName:   "Jane",
		Email:       "jane@company.com",
		CompanyName: "Acme",
		Source:      "website_chatbot",
	})
	require.NoError(t, err)
	require.Len(t, api.puts, 1)
	assert.Equal(t, "leads-test", aws.ToString(api.puts[0].TableName))
	assert.Equal(t, "attribute_not_exists(id)", aws.ToString(api.puts[0].ConditionExpression))
	_, hasEmail := api.puts[0].Item["email"]
	assert.True(t, hasEmail)
	_, hasPhone := api.puts[0].Item["phone"]
	assert.False(t, hasPhone, "empty fields are omitted")

	got, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.CompanyName)
	assert.Equal(t, created.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestDynamoRepositoryDuplicate(t *testing.T) {
	repo := NewDynamoRepository(newFakeDynamo(), "")
	lead := &Lead{ID: "fixed", Email: "jane@company.com", Source: "web"}
	_, err := repo.Create(context.Background(), lead)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), lead)
	assert.ErrorIs(t, err, ErrLeadExists)
}

func TestDynamoRepositoryErrors(t *testing.T) {
	api := newFakeDynamo()
	api.putErr = errors.New("throttled")
	repo := NewDynamoRepository(api, "leads")

	_, err := repo.Create(context.Background(), &Lead{Email: "jane@company.com", Source: "web"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestNewDynamoRepositoryPanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() { NewDynamoRepository(nil, "leads") })
}

func TestNewFirestoreRepositoryPanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() { NewFirestoreRepository(nil, "leads") })
}
