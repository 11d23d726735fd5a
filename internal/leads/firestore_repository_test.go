package leads

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeDocs struct {
	docs      map[string]Lead
	createErr error
	queried   ListFilter
	limit     int
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: map[string]Lead{}}
}

func (f *fakeDocs) create(ctx context.Context, id string, lead *Lead) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.docs[id]; ok {
		return status.Errorf(codes.AlreadyExists, "document %s already exists", id)
	}
	f.docs[id] = *lead
	return nil
}

func (f *fakeDocs) get(ctx context.Context, id string) (*Lead, error) {
	lead, ok := f.docs[id]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "document %s not found", id)
	}
	return &lead, nil
}

func (f *fakeDocs) query(ctx context.Context, filter ListFilter, limit int) ([]*Lead, error) {
	f.queried, f.limit = filter, limit
	out := []*Lead{}
	for _, lead := range f.docs {
		lead := lead
		out = append(out, &lead)
	}
	return out, nil
}

func TestFirestoreRepositoryCreateAndGet(t *testing.T) {
	docs := newFakeDocs()
	repo := newFirestoreRepositoryWithDocs(docs)
	ctx := context.Background()

	created, err := repo.Create(ctx, &Lead{ID: IDForSession("s1"), SessionID: "s1", Email: "jane@company.com", Source: "website_chatbot"})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@company.com", got.Email)

	_, err = repo.Create(ctx, &Lead{ID: created.ID, Email: "jane@company.com", Source: "website_chatbot"})
	assert.ErrorIs(t, err, ErrLeadExists)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestFirestoreRepositoryWrapsOtherErrors(t *testing.T) {
	docs := newFakeDocs()
	docs.createErr = status.Error(codes.Unavailable, "backend down")
	repo := newFirestoreRepositoryWithDocs(docs)

	_, err := repo.Create(context.Background(), &Lead{Email: "jane@company.com", Source: "web"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLeadExists))
	assert.Equal(t, codes.Unavailable, status.Code(errors.Unwrap(err)))

	_, err = repo.Create(context.Background(), &Lead{Source: "web"})
	assert.ErrorIs(t, err, ErrMissingContact)
}

func TestFirestoreRepositoryListDefaultsLimit(t *testing.T) {
	docs := newFakeDocs()
	repo := newFirestoreRepositoryWithDocs(docs)

	_, err := repo.List(context.Background(), ListFilter{Source: "web"})
	require.NoError(t, err)
	assert.Equal(t, 50, docs.limit)
	assert.Equal(t, "web", docs.queried.Source)
}

// Firestore documents use the same field names as the SQL and DynamoDB stores.
func TestLeadFirestoreTagsMatchColumnNames(t *testing.T) {
	typ := reflect.TypeOf(Lead{})
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		fsName := strings.Split(field.Tag.Get("firestore"), ",")[0]
		jsonName := strings.Split(field.Tag.Get("json"), ",")[0]
		dynName := strings.Split(field.Tag.Get("dynamodbav"), ",")[0]
		require.NotEmpty(t, fsName, field.Name)
		assert.Equal(t, jsonName, fsName, field.Name)
		assert.Equal(t, dynName, fsName, field.Name)
	}
}
