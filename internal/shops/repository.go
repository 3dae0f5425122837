package shops

import (
	"context"
	"encoding/json"

	"github.com/routecash/routecash/internal/store"
)

// Collection is the entity store collection backing shops.
const Collection = "shops"

// Repository defines data access for shops.
type Repository interface {
	Create(ctx context.Context, s *Shop) error
	Update(ctx context.Context, s *Shop) error
	Get(ctx context.Context, id string) (*Shop, error)
	ListByArea(ctx context.Context, area string) ([]Shop, error)
}

type storeRepository struct {
	store *store.DocumentStore
}

// NewRepository constructs an entity-store backed repository.
func NewRepository(s *store.DocumentStore) Repository {
	return &storeRepository{store: s}
}

func (r *storeRepository) Create(ctx context.Context, s *Shop) error {
	return r.store.Create(ctx, Collection, s.ID, s)
}

func (r *storeRepository) Update(ctx context.Context, s *Shop) error {
	return r.store.Update(ctx, Collection, s.ID, s)
}

func (r *storeRepository) Get(ctx context.Context, id string) (*Shop, error) {
	var s Shop
	if err := r.store.Get(ctx, Collection, id, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *storeRepository) ListByArea(ctx context.Context, area string) ([]Shop, error) {
	docs, err := r.store.QueryWhere(ctx, Collection, "area", "==", area)
	if err != nil {
		return nil, err
	}
	out := make([]Shop, 0, len(docs))
	for _, doc := range docs {
		var s Shop
		if err := json.Unmarshal(doc, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
