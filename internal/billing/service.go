package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/routecash/routecash/internal/ledger"
	"github.com/routecash/routecash/internal/orders"
	"github.com/routecash/routecash/internal/shared"
)

// OrderPort is the slice of the order lifecycle the billing module drives.
type OrderPort interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
	MarkBilled(ctx context.Context, id string) (*orders.Order, error)
	MarkLoadFormReady(ctx context.Context, id string) (*orders.Order, error)
}

// LedgerPort appends credit sales to the shop ledger and looks up the
// entries already recorded for a bill.
type LedgerPort interface {
	Append(ctx context.Context, input ledger.AppendInput) (*ledger.Transaction, error)
	FindByBill(ctx context.Context, billID string) ([]ledger.Transaction, error)
}

// Service derives bills and load forms from finalized orders. The bill is the
// single authoritative record of payment progress.
type Service struct {
	repo   Repository
	orders OrderPort
	ledger LedgerPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, orderPort OrderPort, ledgerPort LedgerPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, orders: orderPort, ledger: ledgerPort, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// BillOrder derives a bill from a finalized order. Cash paid at booking is
// pre-applied; the credit portion is appended to the shop ledger as a sale.
// Billing the same order twice returns the existing bill; a retry after a
// partial failure completes the remaining steps first.
func (s *Service) BillOrder(ctx context.Context, actor *shared.Actor, orderID string) (*Bill, error) {
	if err := actor.CanBill(); err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetBillByOrder(ctx, orderID); err == nil {
		// An earlier attempt may have crashed between creating the bill and
		// advancing the order or writing the sale entry. Finish those steps
		// before handing the bill back.
		o, gerr := s.orders.Get(ctx, orderID)
		if gerr != nil {
			return nil, fmt.Errorf("get order: %w", gerr)
		}
		if err := s.finishBilling(ctx, o, existing); err != nil {
			return nil, err
		}
		return existing, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("lookup bill: %w", err)
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o.Status != orders.StatusFinalized {
		return nil, fmt.Errorf("%w: order %s is %s", shared.ErrNotFinalized, o.OrderNumber, o.Status)
	}

	now := s.now()
	b := &Bill{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		ShopID:      o.ShopID,
		BookerID:    o.BookerID,
		SalesmanID:  o.SalesmanID,
		TotalAmount: o.GrandTotal,
		PaidAmount:  o.CashAmount,
		BilledAt:    now,
		UpdatedAt:   now,
	}
	b.BillNumber = fmt.Sprintf("BILL-%s-%s", now.Format("20060102"), strings.ToUpper(b.ID[:6]))
	b.Recalculate()

	if err := s.repo.CreateBill(ctx, b); err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}
	if err := s.finishBilling(ctx, o, b); err != nil {
		return nil, err
	}

	s.logger.Info("order billed",
		slog.String("orderId", o.ID),
		slog.String("billNumber", b.BillNumber),
		slog.Float64("total", b.TotalAmount),
		slog.Float64("credit", b.RemainingCredit))
	return b, nil
}

// finishBilling advances the order out of finalized and guarantees the sale
// entry for the credit portion, completing whichever step an interrupted run
// left undone. Both steps are idempotent.
func (s *Service) finishBilling(ctx context.Context, o *orders.Order, b *Bill) error {
	if o.Status == orders.StatusFinalized {
		if _, err := s.orders.MarkBilled(ctx, o.ID); err != nil {
			return fmt.Errorf("mark order billed: %w", err)
		}
	}
	if o.CreditAmount <= 0 {
		return nil
	}
	entries, err := s.ledger.FindByBill(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("lookup sale entry: %w", err)
	}
	for _, e := range entries {
		if e.Type == ledger.TypeSale {
			return nil
		}
	}
	if _, err := s.ledger.Append(ctx, ledger.AppendInput{
		ShopID:  o.ShopID,
		Type:    ledger.TypeSale,
		Amount:  o.CreditAmount,
		OrderID: o.ID,
		BillID:  b.ID,
		Notes:   fmt.Sprintf("credit sale %s", b.BillNumber),
	}); err != nil {
		return fmt.Errorf("append sale to ledger: %w", err)
	}
	return nil
}

// GenerateLoadForm derives the warehouse picking document from a billed order.
// Confirmed quantities start equal to ordered quantities. Idempotent per order.
func (s *Service) GenerateLoadForm(ctx context.Context, actor *shared.Actor, orderID string) (*LoadForm, error) {
	if err := actor.CanBill(); err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetLoadFormByOrder(ctx, orderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("lookup load form: %w", err)
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o.Status != orders.StatusBilled {
		return nil, &shared.TransitionError{From: string(o.Status), To: string(orders.StatusLoadFormReady)}
	}
	bill, err := s.repo.GetBillByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}

	items := make([]LoadFormItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = LoadFormItem{
			ProductID:         item.ProductID,
			Quantity:          item.Quantity,
			ConfirmedQuantity: item.Quantity,
			UnitPrice:         item.UnitPrice,
		}
	}
	f := &LoadForm{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		BillID:    bill.ID,
		ShopID:    o.ShopID,
		Items:     items,
		Status:    "pending",
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateLoadForm(ctx, f); err != nil {
		return nil, fmt.Errorf("create load form: %w", err)
	}
	if _, err := s.orders.MarkLoadFormReady(ctx, o.ID); err != nil {
		return nil, fmt.Errorf("mark load form ready: %w", err)
	}
	return f, nil
}

// GetBill returns one bill.
func (s *Service) GetBill(ctx context.Context, id string) (*Bill, error) {
	return s.repo.GetBill(ctx, id)
}

// GetBillByOrder returns the bill derived from an order.
func (s *Service) GetBillByOrder(ctx context.Context, orderID string) (*Bill, error) {
	return s.repo.GetBillByOrder(ctx, orderID)
}

// Outstanding returns a shop's unpaid bills, oldest first.
func (s *Service) Outstanding(ctx context.Context, shopID string) ([]Bill, error) {
	bills, err := s.repo.ListBillsByShop(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	out := bills[:0]
	for _, b := range bills {
		if b.Outstanding() {
			out = append(out, b)
		}
	}
	sortByBilledAt(out)
	return out, nil
}

// OutstandingPayments is the read-only projection of Outstanding for
// collection screens.
func (s *Service) OutstandingPayments(ctx context.Context, shopID string) ([]OutstandingPayment, error) {
	bills, err := s.Outstanding(ctx, shopID)
	if err != nil {
		return nil, err
	}
	out := make([]OutstandingPayment, len(bills))
	for i, b := range bills {
		out[i] = OutstandingPayment{
			BillID:          b.ID,
			BillNumber:      b.BillNumber,
			OrderID:         b.OrderID,
			ShopID:          b.ShopID,
			RemainingCredit: b.RemainingCredit,
			BilledAt:        b.BilledAt,
		}
	}
	return out, nil
}

// ApplyPayment adds amount to a bill's paid total and rederives its status.
// Called by the payments module after allocation.
func (s *Service) ApplyPayment(ctx context.Context, billID string, amount float64) (*Bill, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", shared.ErrValidation)
	}
	b, err := s.repo.GetBill(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	b.PaidAmount += amount
	b.Recalculate()
	b.UpdatedAt = s.now()
	if err := s.repo.UpdateBill(ctx, b); err != nil {
		return nil, fmt.Errorf("update bill: %w", err)
	}
	return b, nil
}

func sortByBilledAt(bills []Bill) {
	sort.Slice(bills, func(i, j int) bool {
		return bills[i].BilledAt.Before(bills[j].BilledAt)
	})
}
