package users

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/routecash/routecash/internal/shared"
)

type memoryUserRepo struct {
	users map[string]*User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*User)}
}

func (r *memoryUserRepo) Create(ctx context.Context, u *User) error {
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memoryUserRepo) Update(ctx context.Context, u *User) error {
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memoryUserRepo) Get(ctx context.Context, id string) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepo) ListByRole(ctx context.Context, role string) ([]User, error) {
	var out []User
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func newUserService(repo Repository) *Service {
	svc := NewService(repo, slog.Default())
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) })
	return svc
}

func kpoActor() *shared.Actor {
	return &shared.Actor{ID: "kpo-1", Name: "Branch Officer", Role: shared.RoleKPO}
}

func TestCreateValidatesInput(t *testing.T) {
	svc := newUserService(newMemoryUserRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Role: shared.RoleBooker})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Name: "Ali", Role: "driver"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Name: "Ali", Role: shared.RoleBooker, MaxDiscountPercent: -1})
	require.ErrorIs(t, err, shared.ErrValidation)

	u, err := svc.Create(ctx, CreateInput{Name: "Ali", Role: shared.RoleBooker, MaxDiscountPercent: 10})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	require.InDelta(t, 10.0, u.MaxDiscountPercent, 1e-9)
}

func TestApplyUnauthorizedDeltaAccumulates(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := newUserService(repo)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Name: "Ali", Role: shared.RoleBooker, MaxDiscountPercent: 10})
	require.NoError(t, err)

	require.NoError(t, svc.ApplyUnauthorizedDelta(ctx, u.ID, "2026-02", 500))
	require.NoError(t, svc.ApplyUnauthorizedDelta(ctx, u.ID, "2026-03", 1000))

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.InDelta(t, 1500.0, got.TotalUnauthorizedDiscount, 1e-9)
	require.InDelta(t, 500.0, got.MonthlyUnauthorizedDiscounts["2026-02"], 1e-9)
	require.InDelta(t, 1000.0, got.MonthlyUnauthorizedDiscounts["2026-03"], 1e-9)
}

func TestApplyUnauthorizedDeltaNegativeAndZero(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := newUserService(repo)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Name: "Ali", Role: shared.RoleBooker})
	require.NoError(t, err)

	// Zero delta must not touch the record.
	require.NoError(t, svc.ApplyUnauthorizedDelta(ctx, u.ID, "2026-03", 0))
	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, got.MonthlyUnauthorizedDiscounts)

	require.NoError(t, svc.ApplyUnauthorizedDelta(ctx, u.ID, "2026-03", 800))
	require.NoError(t, svc.ApplyUnauthorizedDelta(ctx, u.ID, "2026-03", -300))

	got, err = svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.InDelta(t, 500.0, got.TotalUnauthorizedDiscount, 1e-9)
	require.InDelta(t, 500.0, got.MonthlyUnauthorizedDiscounts["2026-03"], 1e-9)
}

func TestApplyUnauthorizedDeltaRejectsBadPeriod(t *testing.T) {
	svc := newUserService(newMemoryUserRepo())
	err := svc.ApplyUnauthorizedDelta(context.Background(), "whatever", "03-2026", 100)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestResetUnauthorizedDiscountRemovesOnePeriod(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := newUserService(repo)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Name: "Ali", Role: shared.RoleBooker})
	require.NoError(t, err)
	require.NoError(t, svc.ApplyUnauthorizedDelta(ctx, u.ID, "2026-02", 500))
	require.NoError(t, svc.ApplyUnauthorizedDelta(ctx, u.ID, "2026-03", 1000))

	require.NoError(t, svc.ResetUnauthorizedDiscount(ctx, kpoActor(), u.ID, "2026-03"))

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.InDelta(t, 500.0, got.TotalUnauthorizedDiscount, 1e-9)
	require.NotContains(t, got.MonthlyUnauthorizedDiscounts, "2026-03")
	require.Contains(t, got.MonthlyUnauthorizedDiscounts, "2026-02")

	// Second reset of the same period has nothing to deduct.
	err = svc.ResetUnauthorizedDiscount(ctx, kpoActor(), u.ID, "2026-03")
	require.ErrorIs(t, err, shared.ErrPeriodNotFound)
}

func TestResetUnauthorizedDiscountRequiresRole(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := newUserService(repo)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Name: "Ali", Role: shared.RoleBooker})
	require.NoError(t, err)
	require.NoError(t, svc.ApplyUnauthorizedDelta(ctx, u.ID, "2026-03", 100))

	salesman := &shared.Actor{ID: "s-1", Role: shared.RoleSalesman}
	err = svc.ResetUnauthorizedDiscount(ctx, salesman, u.ID, "2026-03")
	require.ErrorIs(t, err, shared.ErrForbidden)
}
