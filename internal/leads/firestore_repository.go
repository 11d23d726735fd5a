package leads

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// leadDocuments is the slice of the Firestore API the repository needs.
// Errors carry gRPC status codes, as the client library returns them.
type leadDocuments interface {
	create(ctx context.Context, id string, lead *Lead) error
	get(ctx context.Context, id string) (*Lead, error)
	query(ctx context.Context, filter ListFilter, limit int) ([]*Lead, error)
}

// FirestoreRepository keeps leads as documents in a Firestore collection.
type FirestoreRepository struct {
	docs leadDocuments
}

// NewFirestoreRepository wraps an initialized Firestore client.
func NewFirestoreRepository(client *firestore.Client, collection string) *FirestoreRepository {
	if client == nil {
		panic("leads: firestore client required")
	}
	if collection == "" {
		collection = "leads"
	}
	return &FirestoreRepository{docs: &collectionDocs{col: client.Collection(collection)}}
}

func newFirestoreRepositoryWithDocs(docs leadDocuments) *FirestoreRepository {
	return &FirestoreRepository{docs: docs}
}

// Create fails with ErrLeadExists if a document with the lead's ID exists.
func (r *FirestoreRepository) Create(ctx context.Context, lead *Lead) (*Lead, error) {
	stored, err := prepare(lead)
	if err != nil {
		return nil, err
	}
	if err := r.docs.create(ctx, stored.ID, stored); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, ErrLeadExists
		}
		return nil, fmt.Errorf("leads: firestore create: %w", err)
	}
	return stored, nil
}

func (r *FirestoreRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	lead, err := r.docs.get(ctx, id)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: firestore get: %w", err)
	}
	return lead, nil
}

// List returns the most recent documents.
func (r *FirestoreRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	out, err := r.docs.query(ctx, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("leads: firestore list: %w", err)
	}
	return out, nil
}

// collectionDocs maps leads onto a collection through the firestore struct tags.
type collectionDocs struct {
	col *firestore.CollectionRef
}

func (c *collectionDocs) create(ctx context.Context, id string, lead *Lead) error {
	_, err := c.col.Doc(id).Create(ctx, lead)
	return err
}

func (c *collectionDocs) get(ctx context.Context, id string) (*Lead, error) {
	snap, err := c.col.Doc(id).Get(ctx)
	if err != nil {
		return nil, err
	}
	var lead Lead
	if err := snap.DataTo(&lead); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return &lead, nil
}

func (c *collectionDocs) query(ctx context.Context, filter ListFilter, limit int) ([]*Lead, error) {
	q := c.col.Query
	if filter.Source != "" {
		q = q.Where("source", "==", filter.Source)
	}
	q = q.OrderBy("created_at", firestore.Desc).Offset(filter.Offset).Limit(limit)

	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]*Lead, 0, len(docs))
	for _, doc := range docs {
		var lead Lead
		if err := doc.DataTo(&lead); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", doc.Ref.ID, err)
		}
		out = append(out, &lead)
	}
	return out, nil
}
