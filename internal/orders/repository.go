package orders

import (
	"context"
	"encoding/json"

	"github.com/routecash/routecash/internal/store"
)

// Collection is the entity store collection backing orders.
const Collection = "orders"

// Repository defines data access for orders. Orders are never deleted, only
// transitioned.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	ListByShop(ctx context.Context, shopID string) ([]Order, error)
	ListByStatus(ctx context.Context, status Status) ([]Order, error)
}

type storeRepository struct {
	store *store.DocumentStore
}

// NewRepository constructs an entity-store backed repository.
func NewRepository(s *store.DocumentStore) Repository {
	return &storeRepository{store: s}
}

func (r *storeRepository) Create(ctx context.Context, o *Order) error {
	return r.store.Create(ctx, Collection, o.ID, o)
}

func (r *storeRepository) Update(ctx context.Context, o *Order) error {
	return r.store.Update(ctx, Collection, o.ID, o)
}

func (r *storeRepository) Get(ctx context.Context, id string) (*Order, error) {
	var o Order
	if err := r.store.Get(ctx, Collection, id, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *storeRepository) ListByShop(ctx context.Context, shopID string) ([]Order, error) {
	return r.query(ctx, "shopId", shopID)
}

func (r *storeRepository) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	return r.query(ctx, "status", string(status))
}

func (r *storeRepository) query(ctx context.Context, field, value string) ([]Order, error) {
	docs, err := r.store.QueryWhere(ctx, Collection, field, "==", value)
	if err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(docs))
	for _, doc := range docs {
		var o Order
		if err := json.Unmarshal(doc, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
