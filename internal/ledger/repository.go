package ledger

import (
	"context"
	"encoding/json"

	"github.com/routecash/routecash/internal/store"
)

// Collection is the entity store collection backing ledger transactions.
const Collection = "ledgerTransactions"

// Repository defines data access for the credit ledger. Entries are append
// only; there is intentionally no update or delete.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	ListByShop(ctx context.Context, shopID string) ([]Transaction, error)
	ListByBill(ctx context.Context, billID string) ([]Transaction, error)
}

type storeRepository struct {
	store *store.DocumentStore
}

// NewRepository constructs an entity-store backed repository.
func NewRepository(s *store.DocumentStore) Repository {
	return &storeRepository{store: s}
}

func (r *storeRepository) Create(ctx context.Context, tx *Transaction) error {
	return r.store.Create(ctx, Collection, tx.ID, tx)
}

func (r *storeRepository) ListByShop(ctx context.Context, shopID string) ([]Transaction, error) {
	return r.query(ctx, "shopId", shopID)
}

func (r *storeRepository) ListByBill(ctx context.Context, billID string) ([]Transaction, error) {
	return r.query(ctx, "billId", billID)
}

func (r *storeRepository) query(ctx context.Context, field, value string) ([]Transaction, error) {
	docs, err := r.store.QueryWhere(ctx, Collection, field, "==", value)
	if err != nil {
		return nil, err
	}
	out := make([]Transaction, 0, len(docs))
	for _, doc := range docs {
		var tx Transaction
		if err := json.Unmarshal(doc, &tx); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}
