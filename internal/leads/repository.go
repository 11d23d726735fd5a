package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the lead persistence store. The conversation engine only ever
// calls Create, once per completed session.
type Repository interface {
	Create(ctx context.Context, lead *Lead) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
}

// Lister is implemented by stores that can page through leads.
type Lister interface {
	List(ctx context.Context, filter ListFilter) ([]*Lead, error)
}

// sessionLeadNamespace scopes lead IDs derived from session IDs.
var sessionLeadNamespace = uuid.MustParse("6f1c2b7e-4d0a-5b8e-9c3f-2a7d1e5b8c40")

// IDForSession returns the lead ID a session's capture is stored under. The
// same session always maps to the same ID, so a repeated Create reports
// ErrLeadExists instead of storing a second lead.
func IDForSession(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	return uuid.NewSHA1(sessionLeadNamespace, []byte(sessionID)).String()
}

// prepare validates the lead and fills the identity fields a store needs.
func prepare(lead *Lead) (*Lead, error) {
	if lead == nil {
		return nil, ErrMissingContact
	}
	if err := lead.Validate(); err != nil {
		return nil, err
	}
	out := *lead
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	return &out, nil
}

// InMemoryRepository keeps leads in a map. Used in development and tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

// Create stores a copy of the lead.
func (r *InMemoryRepository) Create(ctx context.Context, lead *Lead) (*Lead, error) {
	stored, err := prepare(lead)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.leads[stored.ID]; exists {
		return nil, ErrLeadExists
	}
	r.leads[stored.ID] = stored

	out := *stored
	return &out, nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	out := *lead
	return &out, nil
}

// List returns leads newest first.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	r.mu.RLock()
	all := make([]*Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		if filter.Source != "" && lead.Source != filter.Source {
			continue
		}
		out := *lead
		all = append(all, &out)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if filter.Offset >= len(all) {
		return []*Lead{}, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && len(all) > filter.Limit {
		all = all[:filter.Limit]
	}
	return all, nil
}

// Count returns the number of stored leads.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.leads)
}
