package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/routecash/routecash/internal/shared"
	"github.com/routecash/routecash/internal/store"
)

// Entity store collections backing the billing module.
const (
	BillCollection     = "bills"
	LoadFormCollection = "loadForms"
)

// Repository defines data access for bills and load forms.
type Repository interface {
	CreateBill(ctx context.Context, b *Bill) error
	UpdateBill(ctx context.Context, b *Bill) error
	GetBill(ctx context.Context, id string) (*Bill, error)
	GetBillByOrder(ctx context.Context, orderID string) (*Bill, error)
	ListBillsByShop(ctx context.Context, shopID string) ([]Bill, error)
	CreateLoadForm(ctx context.Context, f *LoadForm) error
	GetLoadFormByOrder(ctx context.Context, orderID string) (*LoadForm, error)
}

type storeRepository struct {
	store *store.DocumentStore
}

// NewRepository constructs an entity-store backed repository.
func NewRepository(s *store.DocumentStore) Repository {
	return &storeRepository{store: s}
}

func (r *storeRepository) CreateBill(ctx context.Context, b *Bill) error {
	return r.store.Create(ctx, BillCollection, b.ID, b)
}

func (r *storeRepository) UpdateBill(ctx context.Context, b *Bill) error {
	return r.store.Update(ctx, BillCollection, b.ID, b)
}

func (r *storeRepository) GetBill(ctx context.Context, id string) (*Bill, error) {
	var b Bill
	if err := r.store.Get(ctx, BillCollection, id, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *storeRepository) GetBillByOrder(ctx context.Context, orderID string) (*Bill, error) {
	bills, err := r.queryBills(ctx, "orderId", orderID)
	if err != nil {
		return nil, err
	}
	if len(bills) == 0 {
		return nil, fmt.Errorf("%w: no bill for order %s", shared.ErrNotFound, orderID)
	}
	return &bills[0], nil
}

func (r *storeRepository) ListBillsByShop(ctx context.Context, shopID string) ([]Bill, error) {
	return r.queryBills(ctx, "shopId", shopID)
}

func (r *storeRepository) CreateLoadForm(ctx context.Context, f *LoadForm) error {
	return r.store.Create(ctx, LoadFormCollection, f.ID, f)
}

func (r *storeRepository) GetLoadFormByOrder(ctx context.Context, orderID string) (*LoadForm, error) {
	docs, err := r.store.QueryWhere(ctx, LoadFormCollection, "orderId", "==", orderID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no load form for order %s", shared.ErrNotFound, orderID)
	}
	var f LoadForm
	if err := json.Unmarshal(docs[0], &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *storeRepository) queryBills(ctx context.Context, field, value string) ([]Bill, error) {
	docs, err := r.store.QueryWhere(ctx, BillCollection, field, "==", value)
	if err != nil {
		return nil, err
	}
	out := make([]Bill, 0, len(docs))
	for _, doc := range docs {
		var b Bill
		if err := json.Unmarshal(doc, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
