package shops

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/routecash/routecash/internal/ledger"
	"github.com/routecash/routecash/internal/shared"
)

type memoryShopRepo struct {
	shops map[string]*Shop
}

func newMemoryShopRepo() *memoryShopRepo {
	return &memoryShopRepo{shops: make(map[string]*Shop)}
}

func (r *memoryShopRepo) Create(ctx context.Context, s *Shop) error {
	cp := *s
	r.shops[s.ID] = &cp
	return nil
}

func (r *memoryShopRepo) Update(ctx context.Context, s *Shop) error {
	cp := *s
	r.shops[s.ID] = &cp
	return nil
}

func (r *memoryShopRepo) Get(ctx context.Context, id string) (*Shop, error) {
	s, ok := r.shops[id]
	if !ok {
		return nil, fmt.Errorf("%w: shop %s", shared.ErrNotFound, id)
	}
	cp := *s
	return &cp, nil
}

func (r *memoryShopRepo) ListByArea(ctx context.Context, area string) ([]Shop, error) {
	var out []Shop
	for _, s := range r.shops {
		if s.Area == area {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeLedgerPort struct {
	balance float64
	entries []ledger.Transaction
}

func (f *fakeLedgerPort) Balance(ctx context.Context, shopID string) (float64, error) {
	return f.balance, nil
}

func (f *fakeLedgerPort) Statement(ctx context.Context, shopID string) ([]ledger.Transaction, error) {
	return f.entries, nil
}

func bookerActor() *shared.Actor {
	return &shared.Actor{ID: "booker-1", Name: "Ali", Role: shared.RoleBooker}
}

func newShopService(repo Repository, lg LedgerPort) *Service {
	svc := NewService(repo, lg, slog.Default())
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) })
	return svc
}

func TestCreateShop(t *testing.T) {
	svc := newShopService(newMemoryShopRepo(), &fakeLedgerPort{})
	ctx := context.Background()

	_, err := svc.Create(ctx, bookerActor(), CreateInput{})
	require.ErrorIs(t, err, shared.ErrValidation)

	salesmanActor := &shared.Actor{ID: "s-1", Role: shared.RoleSalesman}
	_, err = svc.Create(ctx, salesmanActor, CreateInput{Name: "Corner Store"})
	require.ErrorIs(t, err, shared.ErrForbidden)

	shop, err := svc.Create(ctx, bookerActor(), CreateInput{Name: "Corner Store", Area: "north"})
	require.NoError(t, err)
	require.NotEmpty(t, shop.ID)
	require.Equal(t, "north", shop.Area)
}

func TestUpdateShopKeepsUnsetFields(t *testing.T) {
	repo := newMemoryShopRepo()
	svc := newShopService(repo, &fakeLedgerPort{})
	ctx := context.Background()

	shop, err := svc.Create(ctx, bookerActor(), CreateInput{Name: "Corner Store", Phone: "0300-1234567"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, bookerActor(), shop.ID, CreateInput{Area: "south"})
	require.NoError(t, err)
	require.Equal(t, "Corner Store", updated.Name)
	require.Equal(t, "0300-1234567", updated.Phone)
	require.Equal(t, "south", updated.Area)
}

func TestBalanceRequiresExistingShop(t *testing.T) {
	lg := &fakeLedgerPort{balance: 420}
	svc := newShopService(newMemoryShopRepo(), lg)
	ctx := context.Background()

	_, err := svc.Balance(ctx, "ghost")
	require.ErrorIs(t, err, shared.ErrNotFound)

	shop, err := svc.Create(ctx, bookerActor(), CreateInput{Name: "Corner Store"})
	require.NoError(t, err)

	balance, err := svc.Balance(ctx, shop.ID)
	require.NoError(t, err)
	require.InDelta(t, 420.0, balance, 1e-9)
}

func TestStatementDelegatesToLedger(t *testing.T) {
	lg := &fakeLedgerPort{entries: []ledger.Transaction{{ID: "tx-1", Seq: 1}, {ID: "tx-2", Seq: 2}}}
	svc := newShopService(newMemoryShopRepo(), lg)
	ctx := context.Background()

	shop, err := svc.Create(ctx, bookerActor(), CreateInput{Name: "Corner Store"})
	require.NoError(t, err)

	entries, err := svc.Statement(ctx, shop.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
