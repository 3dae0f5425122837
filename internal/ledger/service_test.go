package ledger

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/routecash/routecash/internal/shared"
)

type memoryLedgerRepo struct {
	entries []Transaction
}

func (r *memoryLedgerRepo) Create(ctx context.Context, tx *Transaction) error {
	r.entries = append(r.entries, *tx)
	return nil
}

func (r *memoryLedgerRepo) ListByShop(ctx context.Context, shopID string) ([]Transaction, error) {
	var out []Transaction
	for _, e := range r.entries {
		if e.ShopID == shopID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) ListByBill(ctx context.Context, billID string) ([]Transaction, error) {
	var out []Transaction
	for _, e := range r.entries {
		if e.BillID == billID {
			out = append(out, e)
		}
	}
	return out, nil
}

func newLedgerService(repo Repository) *Service {
	svc := NewService(repo, slog.Default())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	svc.WithNow(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	})
	return svc
}

func TestAppendChainsBalances(t *testing.T) {
	repo := &memoryLedgerRepo{}
	svc := newLedgerService(repo)
	ctx := context.Background()

	sale, err := svc.Append(ctx, AppendInput{ShopID: "shop-1", Type: TypeSale, Amount: 500})
	require.NoError(t, err)
	require.Equal(t, int64(1), sale.Seq)
	require.Zero(t, sale.BalanceBefore)
	require.InDelta(t, 500.0, sale.BalanceAfter, 1e-9)
	require.InDelta(t, 500.0, sale.Amount, 1e-9)

	payment, err := svc.Append(ctx, AppendInput{ShopID: "shop-1", Type: TypePayment, Amount: 200})
	require.NoError(t, err)
	require.Equal(t, int64(2), payment.Seq)
	require.InDelta(t, 500.0, payment.BalanceBefore, 1e-9)
	require.InDelta(t, 300.0, payment.BalanceAfter, 1e-9)
	require.InDelta(t, -200.0, payment.Amount, 1e-9)

	ret, err := svc.Append(ctx, AppendInput{ShopID: "shop-1", Type: TypeReturn, Amount: 50})
	require.NoError(t, err)
	require.Equal(t, int64(3), ret.Seq)
	require.InDelta(t, 350.0, ret.BalanceAfter, 1e-9)

	balance, err := svc.Balance(ctx, "shop-1")
	require.NoError(t, err)
	require.InDelta(t, 350.0, balance, 1e-9)
}

func TestAppendIsolatesShops(t *testing.T) {
	repo := &memoryLedgerRepo{}
	svc := newLedgerService(repo)
	ctx := context.Background()

	_, err := svc.Append(ctx, AppendInput{ShopID: "shop-1", Type: TypeSale, Amount: 100})
	require.NoError(t, err)
	other, err := svc.Append(ctx, AppendInput{ShopID: "shop-2", Type: TypeSale, Amount: 70})
	require.NoError(t, err)

	require.Equal(t, int64(1), other.Seq)
	require.Zero(t, other.BalanceBefore)

	balance, err := svc.Balance(ctx, "shop-2")
	require.NoError(t, err)
	require.InDelta(t, 70.0, balance, 1e-9)
}

func TestAppendValidation(t *testing.T) {
	svc := newLedgerService(&memoryLedgerRepo{})
	ctx := context.Background()

	_, err := svc.Append(ctx, AppendInput{Type: TypeSale, Amount: 10})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Append(ctx, AppendInput{ShopID: "shop-1", Type: TypeSale, Amount: 0})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Append(ctx, AppendInput{ShopID: "shop-1", Type: TypeSale, Amount: -5})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Append(ctx, AppendInput{ShopID: "shop-1", Type: "TRANSFER", Amount: 10})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestStatementChronological(t *testing.T) {
	repo := &memoryLedgerRepo{}
	svc := newLedgerService(repo)
	ctx := context.Background()

	for _, amount := range []float64{100, 200, 300} {
		_, err := svc.Append(ctx, AppendInput{ShopID: "shop-1", Type: TypeSale, Amount: amount})
		require.NoError(t, err)
	}

	entries, err := svc.Statement(ctx, "shop-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		require.Equal(t, int64(i+1), e.Seq)
	}
}

func TestFindByBillFiltersEntries(t *testing.T) {
	repo := &memoryLedgerRepo{}
	svc := newLedgerService(repo)
	ctx := context.Background()

	_, err := svc.Append(ctx, AppendInput{ShopID: "shop-1", Type: TypeSale, Amount: 500, BillID: "bill-1"})
	require.NoError(t, err)
	_, err = svc.Append(ctx, AppendInput{ShopID: "shop-1", Type: TypePayment, Amount: 200, BillID: "bill-1"})
	require.NoError(t, err)
	_, err = svc.Append(ctx, AppendInput{ShopID: "shop-1", Type: TypeSale, Amount: 100, BillID: "bill-2"})
	require.NoError(t, err)

	entries, err := svc.FindByBill(ctx, "bill-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, TypeSale, entries[0].Type)
	require.Equal(t, TypePayment, entries[1].Type)
}

func TestVerifyReplayDetectsTampering(t *testing.T) {
	repo := &memoryLedgerRepo{}
	svc := newLedgerService(repo)
	ctx := context.Background()

	_, err := svc.Append(ctx, AppendInput{ShopID: "shop-1", Type: TypeSale, Amount: 500})
	require.NoError(t, err)
	_, err = svc.Append(ctx, AppendInput{ShopID: "shop-1", Type: TypePayment, Amount: 200})
	require.NoError(t, err)

	require.NoError(t, svc.VerifyReplay(ctx, "shop-1"))

	// Corrupt a stored balance behind the service's back.
	repo.entries[1].BalanceAfter += 10

	require.Error(t, svc.VerifyReplay(ctx, "shop-1"))
}

func TestVerifyReplayEmptyLedger(t *testing.T) {
	svc := newLedgerService(&memoryLedgerRepo{})
	require.NoError(t, svc.VerifyReplay(context.Background(), "shop-ghost"))
}
