package orders

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/routecash/routecash/internal/discount"
	"github.com/routecash/routecash/internal/shared"
	"github.com/routecash/routecash/internal/users"
)

// amountTolerance absorbs float noise when checking cash/credit splits.
const amountTolerance = 0.01

// BookerDirectory exposes the booker records and accumulator the order
// lifecycle depends on.
type BookerDirectory interface {
	Get(ctx context.Context, id string) (*users.User, error)
	ApplyUnauthorizedDelta(ctx context.Context, bookerID, periodKey string, delta float64) error
}

// ApprovalPort persists approval history for submit/approve/reject actions.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// Service governs the order lifecycle and the discount accounting tied to it.
type Service struct {
	repo      Repository
	bookers   BookerDirectory
	approvals ApprovalPort
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds a Service instance. approvals may be nil.
func NewService(repo Repository, bookers BookerDirectory, approvals ApprovalPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, bookers: bookers, approvals: approvals, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput describes a new draft order.
type CreateInput struct {
	ShopID      string
	Items       []OrderItem
	PaymentMode PaymentMode
	CashAmount  float64
	Notes       string
}

// Create opens a draft order for a shop, booked by the acting user.
func (s *Service) Create(ctx context.Context, actor *shared.Actor, input CreateInput) (*Order, error) {
	if err := actor.CanBookOrders(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.ShopID) == "" {
		return nil, fmt.Errorf("%w: shop id required", shared.ErrValidation)
	}
	mode := input.PaymentMode
	if mode == "" {
		mode = PaymentCredit
	}
	if err := validPaymentMode(mode); err != nil {
		return nil, err
	}
	now := s.now()
	o := &Order{
		ID:          uuid.NewString(),
		ShopID:      input.ShopID,
		BookerID:    actor.ID,
		Items:       input.Items,
		PaymentMode: mode,
		CashAmount:  input.CashAmount,
		Notes:       input.Notes,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	o.OrderNumber = fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), strings.ToUpper(o.ID[:6]))
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

// UpdateInput carries the mutable fields of a draft or edit-approved order.
// Nil or zero-valued fields are left untouched.
type UpdateInput struct {
	Items       []OrderItem
	PaymentMode PaymentMode
	CashAmount  *float64
	Notes       string
}

// Update mutates an order in place. Allowed while draft, or while submitted
// with an approved edit request.
func (s *Service) Update(ctx context.Context, actor *shared.Actor, id string, input UpdateInput) (*Order, error) {
	if err := actor.CanBookOrders(); err != nil {
		return nil, err
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := s.requireOwnership(actor, o); err != nil {
		return nil, err
	}
	if !s.editable(o) {
		return nil, fmt.Errorf("%w: order %s is %s and not edit-approved", shared.ErrValidation, o.OrderNumber, o.Status)
	}
	if input.Items != nil {
		o.Items = input.Items
	}
	if input.PaymentMode != "" {
		if err := validPaymentMode(input.PaymentMode); err != nil {
			return nil, err
		}
		o.PaymentMode = input.PaymentMode
	}
	if input.CashAmount != nil {
		if *input.CashAmount < 0 {
			return nil, fmt.Errorf("%w: cash amount must not be negative", shared.ErrValidation)
		}
		o.CashAmount = *input.CashAmount
	}
	if input.Notes != "" {
		o.Notes = input.Notes
	}
	o.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	return o, nil
}

// Submit runs the discount authorization computation, applies the booker's
// accumulator delta and transitions the order to submitted. Resubmission after
// an edit-approval cycle recomputes everything and clears the edit flag.
func (s *Service) Submit(ctx context.Context, actor *shared.Actor, id string) (*Order, error) {
	if err := actor.CanBookOrders(); err != nil {
		return nil, err
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := s.requireOwnership(actor, o); err != nil {
		return nil, err
	}
	resubmission := o.Status == StatusSubmitted && o.EditApproved
	if o.Status != StatusDraft && !resubmission {
		return nil, &shared.TransitionError{From: string(o.Status), To: string(StatusSubmitted)}
	}
	if err := validateItems(o.Items); err != nil {
		return nil, err
	}

	booker, err := s.bookers.Get(ctx, o.BookerID)
	if err != nil {
		return nil, fmt.Errorf("get booker: %w", err)
	}

	lines := make([]discount.Line, len(o.Items))
	for i, item := range o.Items {
		lines[i] = discount.Line{
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
		}
	}
	lineTotals, totals := discount.ComputeOrder(lines, booker.MaxDiscountPercent)

	cash, credit, err := splitPayment(o.PaymentMode, o.CashAmount, totals.GrandTotal)
	if err != nil {
		return nil, err
	}

	period := shared.PeriodKey(s.now())
	adjustments := accumulatorAdjustments(o, totals.UnauthorizedDiscount, period)
	for i, adj := range adjustments {
		if err := s.bookers.ApplyUnauthorizedDelta(ctx, o.BookerID, adj.period, adj.delta); err != nil {
			s.reverseAdjustments(ctx, o, adjustments[:i])
			return nil, fmt.Errorf("apply unauthorized discount: %w", err)
		}
	}

	for i := range o.Items {
		o.Items[i].DiscountAmount = lineTotals[i].DiscountAmount
		o.Items[i].LineTotal = lineTotals[i].LineTotal
		o.Items[i].FinalAmount = lineTotals[i].FinalAmount
		o.Items[i].UnauthorizedAmount = lineTotals[i].UnauthorizedAmount
		o.Items[i].IsUnauthorizedDiscount = lineTotals[i].Unauthorized
	}
	o.Subtotal = totals.Subtotal
	o.TotalDiscount = totals.TotalDiscount
	o.UnauthorizedDiscount = totals.UnauthorizedDiscount
	o.RecordedUnauthorizedDiscount = totals.UnauthorizedDiscount
	o.RecordedUnauthorizedPeriod = period
	o.GrandTotal = totals.GrandTotal
	o.CashAmount = cash
	o.CreditAmount = credit
	o.EditApproved = false
	if o.Status == StatusDraft {
		if err := o.transition(StatusSubmitted); err != nil {
			return nil, err
		}
	}
	now := s.now()
	o.SubmittedAt = &now
	o.UpdatedAt = now

	if err := s.repo.Update(ctx, o); err != nil {
		// Keep the accumulator consistent with the order the caller still sees.
		s.reverseAdjustments(ctx, o, adjustments)
		return nil, fmt.Errorf("submit order: %w", err)
	}

	s.recordApproval(ctx, o, actor, shared.ApprovalSubmit, "")
	return o, nil
}

// RequestEdit asks the branch to unlock a submitted order for re-editing.
// Repeated requests are rejected, not duplicated.
func (s *Service) RequestEdit(ctx context.Context, actor *shared.Actor, id string) error {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if err := actor.CanRequestEdit(o.BookerID); err != nil {
		return err
	}
	if o.Status == StatusEditRequested {
		return fmt.Errorf("%w: order %s", shared.ErrEditAlreadyRequested, o.OrderNumber)
	}
	if err := o.transition(StatusEditRequested); err != nil {
		return err
	}
	o.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, o); err != nil {
		return fmt.Errorf("request edit: %w", err)
	}
	s.recordApproval(ctx, o, actor, shared.ApprovalEditRequest, "")
	return nil
}

// ApproveEdit returns an edit-requested order to submitted with the edit flag
// set. Discount accounting is not recomputed until the booker resubmits.
func (s *Service) ApproveEdit(ctx context.Context, actor *shared.Actor, id string) error {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if err := actor.CanApproveOrders(); err != nil {
		return err
	}
	if err := o.transition(StatusSubmitted); err != nil {
		return err
	}
	o.EditApproved = true
	o.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, o); err != nil {
		return fmt.Errorf("approve edit: %w", err)
	}
	s.recordApproval(ctx, o, actor, shared.ApprovalApprove, "edit approved")
	return nil
}

// RejectEdit rejects an edit-requested order with a required reason.
func (s *Service) RejectEdit(ctx context.Context, actor *shared.Actor, id, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: rejection reason required", shared.ErrValidation)
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if err := actor.CanApproveOrders(); err != nil {
		return err
	}
	if o.Status != StatusEditRequested {
		return &shared.TransitionError{From: string(o.Status), To: string(StatusRejected)}
	}
	return s.reject(ctx, actor, o, reason)
}

// Finalize is the branch approval moving a submitted order to finalized.
func (s *Service) Finalize(ctx context.Context, actor *shared.Actor, id string) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := actor.CanApproveOrders(); err != nil {
		return nil, err
	}
	if err := o.transition(StatusFinalized); err != nil {
		return nil, err
	}
	o.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("finalize order: %w", err)
	}
	s.recordApproval(ctx, o, actor, shared.ApprovalApprove, "finalized")
	return o, nil
}

// Reject moves any non-terminal order to rejected with a required reason.
func (s *Service) Reject(ctx context.Context, actor *shared.Actor, id, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: rejection reason required", shared.ErrValidation)
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if err := actor.CanApproveOrders(); err != nil {
		return err
	}
	return s.reject(ctx, actor, o, reason)
}

func (s *Service) reject(ctx context.Context, actor *shared.Actor, o *Order, reason string) error {
	if err := o.transition(StatusRejected); err != nil {
		return err
	}
	o.RejectionReason = reason
	o.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, o); err != nil {
		return fmt.Errorf("reject order: %w", err)
	}
	s.recordApproval(ctx, o, actor, shared.ApprovalReject, reason)
	return nil
}

// MarkBilled mirrors the billing step onto the order. Called by the billing
// service, not exposed over HTTP.
func (s *Service) MarkBilled(ctx context.Context, id string) (*Order, error) {
	return s.advance(ctx, id, StatusBilled)
}

// MarkLoadFormReady mirrors load-form generation onto the order.
func (s *Service) MarkLoadFormReady(ctx context.Context, id string) (*Order, error) {
	return s.advance(ctx, id, StatusLoadFormReady)
}

func (s *Service) advance(ctx context.Context, id string, to Status) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := o.transition(to); err != nil {
		return nil, err
	}
	o.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("advance order to %s: %w", to, err)
	}
	return o, nil
}

// Assign hands a load-form-ready order to a salesman for delivery.
func (s *Service) Assign(ctx context.Context, actor *shared.Actor, id, salesmanID string) (*Order, error) {
	if err := actor.CanApproveOrders(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(salesmanID) == "" {
		return nil, fmt.Errorf("%w: salesman id required", shared.ErrValidation)
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := o.transition(StatusAssigned); err != nil {
		return nil, err
	}
	o.SalesmanID = salesmanID
	o.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("assign order: %w", err)
	}
	return o, nil
}

// MarkDelivered records delivery completion, the happy-path terminal state.
func (s *Service) MarkDelivered(ctx context.Context, actor *shared.Actor, id string) (*Order, error) {
	if err := actor.CanDeliver(); err != nil {
		return nil, err
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := o.transition(StatusDelivered); err != nil {
		return nil, err
	}
	now := s.now()
	o.DeliveredAt = &now
	o.UpdatedAt = now
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("mark delivered: %w", err)
	}
	return o, nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// ListByShop returns a shop's orders.
func (s *Service) ListByShop(ctx context.Context, shopID string) ([]Order, error) {
	return s.repo.ListByShop(ctx, shopID)
}

// ListByStatus returns orders in one lifecycle state.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	return s.repo.ListByStatus(ctx, status)
}

type accumulatorAdjustment struct {
	period string
	delta  float64
}

// accumulatorAdjustments computes the per-period deltas that move a booker's
// accumulator from the order's previously recorded contribution to the new
// one. A resubmission within the same period nets out to a single delta; when
// the recorded period differs, the old period is reversed in full and the new
// amount booked under the current one.
func accumulatorAdjustments(o *Order, amount float64, period string) []accumulatorAdjustment {
	prev := o.RecordedUnauthorizedPeriod
	if prev == "" || prev == period {
		if delta := amount - o.RecordedUnauthorizedDiscount; delta != 0 {
			return []accumulatorAdjustment{{period: period, delta: delta}}
		}
		return nil
	}
	var out []accumulatorAdjustment
	if o.RecordedUnauthorizedDiscount != 0 {
		out = append(out, accumulatorAdjustment{period: prev, delta: -o.RecordedUnauthorizedDiscount})
	}
	if amount != 0 {
		out = append(out, accumulatorAdjustment{period: period, delta: amount})
	}
	return out
}

func (s *Service) reverseAdjustments(ctx context.Context, o *Order, applied []accumulatorAdjustment) {
	for _, adj := range applied {
		if err := s.bookers.ApplyUnauthorizedDelta(ctx, o.BookerID, adj.period, -adj.delta); err != nil {
			s.logger.Error("reverse accumulator delta", slog.String("orderId", o.ID), slog.Any("error", err))
		}
	}
}

func (s *Service) editable(o *Order) bool {
	return o.Status == StatusDraft || (o.Status == StatusSubmitted && o.EditApproved)
}

func (s *Service) requireOwnership(actor *shared.Actor, o *Order) error {
	if actor.Role == shared.RoleBooker && actor.ID != o.BookerID {
		return fmt.Errorf("%w: order %s belongs to another booker", shared.ErrForbidden, o.OrderNumber)
	}
	return nil
}

func (s *Service) recordApproval(ctx context.Context, o *Order, actor *shared.Actor, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	ref, err := uuid.Parse(o.ID)
	if err != nil {
		return
	}
	if err := s.approvals.Record(ctx, shared.ApprovalLog{
		Module:  "orders",
		RefID:   ref,
		ActorID: actor.ID,
		Action:  action,
		Note:    note,
		At:      s.now(),
	}); err != nil {
		s.logger.Warn("record approval", slog.String("orderId", o.ID), slog.Any("error", err))
	}
}

func validateItems(items []OrderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: order has no items", shared.ErrValidation)
	}
	for i, item := range items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %d quantity must be at least 1", shared.ErrValidation, i+1)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: item %d unit price must not be negative", shared.ErrValidation, i+1)
		}
		if item.DiscountPercent < 0 {
			return fmt.Errorf("%w: item %d discount percent must not be negative", shared.ErrValidation, i+1)
		}
	}
	return nil
}

func validPaymentMode(mode PaymentMode) error {
	switch mode {
	case PaymentCash, PaymentCredit, PaymentPartial:
		return nil
	default:
		return fmt.Errorf("%w: unknown payment mode %q", shared.ErrValidation, mode)
	}
}

// splitPayment fixes the cash/credit split at submit time. For partial mode
// the entered cash amount must not exceed the grand total; credit is the rest.
func splitPayment(mode PaymentMode, cash, grandTotal float64) (float64, float64, error) {
	switch mode {
	case PaymentCash:
		return grandTotal, 0, nil
	case PaymentCredit:
		return 0, grandTotal, nil
	default:
		if cash < 0 || cash-grandTotal > amountTolerance {
			return 0, 0, fmt.Errorf("%w: cash amount %.2f must be between 0 and the grand total %.2f", shared.ErrValidation, cash, grandTotal)
		}
		credit := grandTotal - cash
		if credit < 0 {
			credit = 0
		}
		if math.Abs(cash+credit-grandTotal) > amountTolerance {
			return 0, 0, fmt.Errorf("%w: cash plus credit must equal the grand total", shared.ErrValidation)
		}
		return cash, credit, nil
	}
}
