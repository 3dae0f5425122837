package users

import (
	"context"
	"encoding/json"

	"github.com/routecash/routecash/internal/store"
)

// Collection is the entity store collection backing users.
const Collection = "users"

// Repository defines data access for users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	ListByRole(ctx context.Context, role string) ([]User, error)
}

type storeRepository struct {
	store *store.DocumentStore
}

// NewRepository constructs an entity-store backed repository.
func NewRepository(s *store.DocumentStore) Repository {
	return &storeRepository{store: s}
}

func (r *storeRepository) Create(ctx context.Context, u *User) error {
	return r.store.Create(ctx, Collection, u.ID, u)
}

func (r *storeRepository) Update(ctx context.Context, u *User) error {
	return r.store.Update(ctx, Collection, u.ID, u)
}

func (r *storeRepository) Get(ctx context.Context, id string) (*User, error) {
	var u User
	if err := r.store.Get(ctx, Collection, id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *storeRepository) ListByRole(ctx context.Context, role string) ([]User, error) {
	docs, err := r.store.QueryWhere(ctx, Collection, "role", "==", role)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(docs))
	for _, doc := range docs {
		var u User
		if err := json.Unmarshal(doc, &u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}
