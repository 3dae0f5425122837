package orders

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/routecash/routecash/internal/shared"
	"github.com/routecash/routecash/internal/users"
)

type memoryOrderRepo struct {
	orders     map[string]*Order
	failUpdate bool
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{orders: make(map[string]*Order)}
}

func (r *memoryOrderRepo) Create(ctx context.Context, o *Order) error {
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memoryOrderRepo) Update(ctx context.Context, o *Order) error {
	if r.failUpdate {
		return fmt.Errorf("store offline")
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memoryOrderRepo) Get(ctx context.Context, id string) (*Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", shared.ErrNotFound, id)
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	return &cp, nil
}

func (r *memoryOrderRepo) ListByShop(ctx context.Context, shopID string) ([]Order, error) {
	var out []Order
	for _, o := range r.orders {
		if o.ShopID == shopID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memoryOrderRepo) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	var out []Order
	for _, o := range r.orders {
		if o.Status == status {
			out = append(out, *o)
		}
	}
	return out, nil
}

type fakeBookers struct {
	maxPercent float64
	deltas     map[string]float64 // periodKey -> accumulated delta
}

func newFakeBookers(maxPercent float64) *fakeBookers {
	return &fakeBookers{maxPercent: maxPercent, deltas: make(map[string]float64)}
}

func (f *fakeBookers) Get(ctx context.Context, id string) (*users.User, error) {
	return &users.User{ID: id, Name: "Ali", Role: shared.RoleBooker, MaxDiscountPercent: f.maxPercent}, nil
}

func (f *fakeBookers) ApplyUnauthorizedDelta(ctx context.Context, bookerID, periodKey string, delta float64) error {
	f.deltas[periodKey] += delta
	return nil
}

type fakeApprovals struct {
	actions []shared.ApprovalAction
}

func (f *fakeApprovals) Record(ctx context.Context, log shared.ApprovalLog) error {
	f.actions = append(f.actions, log.Action)
	return nil
}

func booker() *shared.Actor {
	return &shared.Actor{ID: "booker-1", Name: "Ali", Role: shared.RoleBooker}
}

func kpo() *shared.Actor {
	return &shared.Actor{ID: "kpo-1", Name: "Officer", Role: shared.RoleKPO}
}

func salesman() *shared.Actor {
	return &shared.Actor{ID: "sales-1", Name: "Bilal", Role: shared.RoleSalesman}
}

func newOrderService(repo Repository, bookers BookerDirectory, approvals ApprovalPort) *Service {
	svc := NewService(repo, bookers, approvals, slog.Default())
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) })
	return svc
}

func draftOrder(t *testing.T, svc *Service, items []OrderItem, mode PaymentMode, cash float64) *Order {
	t.Helper()
	o, err := svc.Create(context.Background(), booker(), CreateInput{
		ShopID:      "shop-1",
		Items:       items,
		PaymentMode: mode,
		CashAmount:  cash,
	})
	require.NoError(t, err)
	return o
}

func twoLineItems() []OrderItem {
	return []OrderItem{
		{ProductID: "p-1", Quantity: 10, UnitPrice: 100, DiscountPercent: 5},
		{ProductID: "p-2", Quantity: 10, UnitPrice: 100, DiscountPercent: 15},
	}
}

func TestCreateOpensDraft(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})

	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)
	require.Equal(t, StatusDraft, o.Status)
	require.Equal(t, "booker-1", o.BookerID)
	require.NotEmpty(t, o.OrderNumber)
	require.Zero(t, o.GrandTotal)
}

func TestCreateRequiresShopAndRole(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})
	ctx := context.Background()

	_, err := svc.Create(ctx, booker(), CreateInput{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, salesman(), CreateInput{ShopID: "shop-1"})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestSubmitComputesTotals(t *testing.T) {
	bookers := newFakeBookers(10)
	approvals := &fakeApprovals{}
	svc := newOrderService(newMemoryOrderRepo(), bookers, approvals)
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)

	submitted, err := svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)

	require.Equal(t, StatusSubmitted, submitted.Status)
	require.InDelta(t, 2000.0, submitted.Subtotal, 1e-9)
	require.InDelta(t, 200.0, submitted.TotalDiscount, 1e-9)
	require.InDelta(t, 50.0, submitted.UnauthorizedDiscount, 1e-9)
	require.InDelta(t, 1800.0, submitted.GrandTotal, 1e-9)
	require.InDelta(t, 1800.0, submitted.CreditAmount, 1e-9)
	require.Zero(t, submitted.CashAmount)
	require.NotNil(t, submitted.SubmittedAt)

	require.False(t, submitted.Items[0].IsUnauthorizedDiscount)
	require.True(t, submitted.Items[1].IsUnauthorizedDiscount)
	require.InDelta(t, 50.0, submitted.Items[1].UnauthorizedAmount, 1e-9)

	require.InDelta(t, 50.0, bookers.deltas["2026-03"], 1e-9)
	require.Equal(t, []shared.ApprovalAction{shared.ApprovalSubmit}, approvals.actions)
}

func TestSubmitCashModeCoversTotal(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})

	o := draftOrder(t, svc, twoLineItems(), PaymentCash, 0)
	submitted, err := svc.Submit(context.Background(), booker(), o.ID)
	require.NoError(t, err)
	require.InDelta(t, 1800.0, submitted.CashAmount, 1e-9)
	require.Zero(t, submitted.CreditAmount)
}

func TestSubmitPartialSplit(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentPartial, 800)
	submitted, err := svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)
	require.InDelta(t, 800.0, submitted.CashAmount, 1e-9)
	require.InDelta(t, 1000.0, submitted.CreditAmount, 1e-9)

	over := draftOrder(t, svc, twoLineItems(), PaymentPartial, 5000)
	_, err = svc.Submit(ctx, booker(), over.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSubmitValidatesItems(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})
	ctx := context.Background()

	empty := draftOrder(t, svc, nil, PaymentCredit, 0)
	_, err := svc.Submit(ctx, booker(), empty.ID)
	require.ErrorIs(t, err, shared.ErrValidation)

	zeroQty := draftOrder(t, svc, []OrderItem{{ProductID: "p-1", Quantity: 0, UnitPrice: 100}}, PaymentCredit, 0)
	_, err = svc.Submit(ctx, booker(), zeroQty.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSubmitRejectsForeignBooker(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})
	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)

	other := &shared.Actor{ID: "booker-2", Role: shared.RoleBooker}
	_, err := svc.Submit(context.Background(), other, o.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestSubmitRejectsWrongState(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)
	_, err := svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)

	// Already submitted with no approved edit.
	_, err = svc.Submit(ctx, booker(), o.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestResubmitDoesNotDoubleCount(t *testing.T) {
	bookers := newFakeBookers(10)
	svc := newOrderService(newMemoryOrderRepo(), bookers, &fakeApprovals{})
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)
	_, err := svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)
	require.InDelta(t, 50.0, bookers.deltas["2026-03"], 1e-9)

	require.NoError(t, svc.RequestEdit(ctx, booker(), o.ID))
	require.NoError(t, svc.ApproveEdit(ctx, kpo(), o.ID))

	// Unchanged items: resubmission must push a zero delta.
	resubmitted, err := svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)
	require.False(t, resubmitted.EditApproved)
	require.InDelta(t, 50.0, bookers.deltas["2026-03"], 1e-9)
}

func TestResubmitAppliesDeltaAfterEdit(t *testing.T) {
	bookers := newFakeBookers(10)
	svc := newOrderService(newMemoryOrderRepo(), bookers, &fakeApprovals{})
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)
	_, err := svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)

	require.NoError(t, svc.RequestEdit(ctx, booker(), o.ID))
	require.NoError(t, svc.ApproveEdit(ctx, kpo(), o.ID))

	// Drop the unauthorized line; the accumulator must come back down.
	_, err = svc.Update(ctx, booker(), o.ID, UpdateInput{
		Items: []OrderItem{{ProductID: "p-1", Quantity: 10, UnitPrice: 100, DiscountPercent: 5}},
	})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)
	require.InDelta(t, 0.0, bookers.deltas["2026-03"], 1e-9)
}

func TestResubmitAcrossMonthMovesContribution(t *testing.T) {
	bookers := newFakeBookers(10)
	svc := NewService(newMemoryOrderRepo(), bookers, &fakeApprovals{}, slog.Default())
	current := time.Date(2026, 3, 28, 12, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return current })
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)
	_, err := svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)
	require.InDelta(t, 50.0, bookers.deltas["2026-03"], 1e-9)

	require.NoError(t, svc.RequestEdit(ctx, booker(), o.ID))
	require.NoError(t, svc.ApproveEdit(ctx, kpo(), o.ID))

	// The edit cycle drags past month end; the contribution must follow the
	// resubmission into the new month, not leave a stale March entry.
	current = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	_, err = svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)
	require.InDelta(t, 0.0, bookers.deltas["2026-03"], 1e-9)
	require.InDelta(t, 50.0, bookers.deltas["2026-04"], 1e-9)
}

func TestSubmitReversesDeltaWhenPersistFails(t *testing.T) {
	repo := newMemoryOrderRepo()
	bookers := newFakeBookers(10)
	svc := newOrderService(repo, bookers, &fakeApprovals{})
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)

	repo.failUpdate = true
	_, err := svc.Submit(ctx, booker(), o.ID)
	require.Error(t, err)
	require.InDelta(t, 0.0, bookers.deltas["2026-03"], 1e-9)
}

func TestRequestEditGuards(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)

	// Draft orders are editable already; requesting an edit is a state error.
	err := svc.RequestEdit(ctx, booker(), o.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)

	require.NoError(t, svc.RequestEdit(ctx, booker(), o.ID))
	err = svc.RequestEdit(ctx, booker(), o.ID)
	require.ErrorIs(t, err, shared.ErrEditAlreadyRequested)

	other := &shared.Actor{ID: "booker-2", Role: shared.RoleBooker}
	err = svc.RequestEdit(ctx, other, o.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestRejectEditRequiresReason(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)
	_, err := svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)
	require.NoError(t, svc.RequestEdit(ctx, booker(), o.ID))

	err = svc.RejectEdit(ctx, kpo(), o.ID, "  ")
	require.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, svc.RejectEdit(ctx, kpo(), o.ID, "duplicate booking"))
	got, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, got.Status)
	require.Equal(t, "duplicate booking", got.RejectionReason)
}

func TestFinalizeFlow(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)
	_, err := svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, booker(), o.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	finalized, err := svc.Finalize(ctx, kpo(), o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFinalized, finalized.Status)

	// Finalizing twice is not a legal transition.
	_, err = svc.Finalize(ctx, kpo(), o.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestDeliveryFlow(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)
	_, err := svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, kpo(), o.ID)
	require.NoError(t, err)

	_, err = svc.MarkBilled(ctx, o.ID)
	require.NoError(t, err)
	_, err = svc.MarkLoadFormReady(ctx, o.ID)
	require.NoError(t, err)

	assigned, err := svc.Assign(ctx, kpo(), o.ID, "sales-1")
	require.NoError(t, err)
	require.Equal(t, StatusAssigned, assigned.Status)
	require.Equal(t, "sales-1", assigned.SalesmanID)

	delivered, err := svc.MarkDelivered(ctx, salesman(), o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)

	// Terminal: nothing moves a delivered order.
	err = svc.Reject(ctx, kpo(), o.ID, "too late")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestRejectFromNonTerminalStates(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)
	_, err := svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)

	err = svc.Reject(ctx, kpo(), o.ID, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, svc.Reject(ctx, kpo(), o.ID, "shop closed down"))
	got, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, got.Status)
}

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusSubmitted, true},
		{StatusDraft, StatusFinalized, false},
		{StatusSubmitted, StatusEditRequested, true},
		{StatusSubmitted, StatusFinalized, true},
		{StatusSubmitted, StatusBilled, false},
		{StatusEditRequested, StatusSubmitted, true},
		{StatusFinalized, StatusBilled, true},
		{StatusBilled, StatusLoadFormReady, true},
		{StatusLoadFormReady, StatusAssigned, true},
		{StatusAssigned, StatusDelivered, true},
		{StatusAssigned, StatusRejected, true},
		{StatusDelivered, StatusRejected, false},
		{StatusRejected, StatusSubmitted, false},
		{StatusRejected, StatusRejected, false},
	}
	for _, tc := range cases {
		require.Equalf(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestUpdateOnlyWhenEditable(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentCredit, 0)
	_, err := svc.Update(ctx, booker(), o.ID, UpdateInput{Notes: "leave at counter"})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, booker(), o.ID)
	require.NoError(t, err)

	_, err = svc.Update(ctx, booker(), o.ID, UpdateInput{Notes: "changed my mind"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateKeepsCashAmountWhenOmitted(t *testing.T) {
	svc := newOrderService(newMemoryOrderRepo(), newFakeBookers(10), &fakeApprovals{})
	ctx := context.Background()

	o := draftOrder(t, svc, twoLineItems(), PaymentPartial, 800)

	// A notes-only update must not zero the entered cash amount.
	updated, err := svc.Update(ctx, booker(), o.ID, UpdateInput{Notes: "leave at counter"})
	require.NoError(t, err)
	require.InDelta(t, 800.0, updated.CashAmount, 1e-9)

	cash := 300.0
	updated, err = svc.Update(ctx, booker(), o.ID, UpdateInput{CashAmount: &cash})
	require.NoError(t, err)
	require.InDelta(t, 300.0, updated.CashAmount, 1e-9)

	negative := -10.0
	_, err = svc.Update(ctx, booker(), o.ID, UpdateInput{CashAmount: &negative})
	require.ErrorIs(t, err, shared.ErrValidation)
}
