// Package payments allocates collected cash against outstanding bills and
// records the matching ledger entries.
package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/routecash/routecash/internal/billing"
	"github.com/routecash/routecash/internal/ledger"
	"github.com/routecash/routecash/internal/shared"
)

// BillPort is the slice of the billing module a collection run needs.
type BillPort interface {
	GetBill(ctx context.Context, id string) (*billing.Bill, error)
	Outstanding(ctx context.Context, shopID string) ([]billing.Bill, error)
	ApplyPayment(ctx context.Context, billID string, amount float64) (*billing.Bill, error)
}

// LedgerPort appends payment entries to the shop ledger.
type LedgerPort interface {
	Append(ctx context.Context, input ledger.AppendInput) (*ledger.Transaction, error)
}

// Service turns a collected amount into bill updates, each mirrored by a
// ledger entry.
type Service struct {
	bills  BillPort
	ledger LedgerPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(bills BillPort, ledgerPort LedgerPort, logger *slog.Logger) *Service {
	return &Service{bills: bills, ledger: ledgerPort, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CollectInput describes one collection run. BillID targets a single bill;
// when empty the amount is spread across the shop's outstanding bills oldest
// first.
type CollectInput struct {
	ShopID string
	BillID string
	Amount float64
	Notes  string
}

// Allocation is the effect of a collection on one bill, paired with the
// ledger entry that recorded it.
type Allocation struct {
	BillID          string                `json:"billId"`
	BillNumber      string                `json:"billNumber"`
	Applied         float64               `json:"applied"`
	RemainingCredit float64               `json:"remainingCredit"`
	PaymentStatus   billing.PaymentStatus `json:"paymentStatus"`
	LedgerEntryID   string                `json:"ledgerEntryId"`
}

// Result summarises a collection run. UnappliedAmount is money handed over
// with no bill left to absorb it; AdvanceAmount is overpayment on a targeted
// bill, which still reduces the shop balance.
type Result struct {
	ShopID          string       `json:"shopId"`
	Allocations     []Allocation `json:"allocations"`
	AppliedAmount   float64      `json:"appliedAmount"`
	AdvanceAmount   float64      `json:"advanceAmount"`
	UnappliedAmount float64      `json:"unappliedAmount"`
}

// Collect records a payment. Each bill update is followed by its own PAYMENT
// ledger entry, appended only after that bill is confirmed written, so the
// ledger only ever records completed allocations.
func (s *Service) Collect(ctx context.Context, actor *shared.Actor, input CollectInput) (*Result, error) {
	if err := actor.CanCollect(); err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: collection amount must be positive", shared.ErrValidation)
	}
	if strings.TrimSpace(input.ShopID) == "" && strings.TrimSpace(input.BillID) == "" {
		return nil, fmt.Errorf("%w: shop id or bill id required", shared.ErrValidation)
	}

	var res *Result
	var err error
	if input.BillID != "" {
		res, err = s.collectTargeted(ctx, input)
	} else {
		res, err = s.collectOldestFirst(ctx, input)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment collected",
		slog.String("shopId", res.ShopID),
		slog.Float64("amount", input.Amount),
		slog.Float64("applied", res.AppliedAmount),
		slog.Float64("unapplied", res.UnappliedAmount),
		slog.Int("bills", len(res.Allocations)))
	return res, nil
}

// collectTargeted applies the full amount to one bill. Overpayment stays on
// the bill as an advance and is reported separately. The shop is taken from
// the bill; a supplied shop id only has to agree with it.
func (s *Service) collectTargeted(ctx context.Context, input CollectInput) (*Result, error) {
	b, err := s.bills.GetBill(ctx, input.BillID)
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	if input.ShopID != "" && b.ShopID != input.ShopID {
		return nil, fmt.Errorf("%w: bill %s belongs to another shop", shared.ErrValidation, b.BillNumber)
	}
	advance := input.Amount - b.RemainingCredit
	if advance < 0 {
		advance = 0
	}
	updated, err := s.bills.ApplyPayment(ctx, b.ID, input.Amount)
	if err != nil {
		return nil, fmt.Errorf("apply payment: %w", err)
	}
	entry, err := s.appendPayment(ctx, b.ShopID, b.ID, input.Amount, input.Notes)
	if err != nil {
		return nil, err
	}
	return &Result{
		ShopID: b.ShopID,
		Allocations: []Allocation{{
			BillID:          updated.ID,
			BillNumber:      updated.BillNumber,
			Applied:         input.Amount,
			RemainingCredit: updated.RemainingCredit,
			PaymentStatus:   updated.PaymentStatus,
			LedgerEntryID:   entry.ID,
		}},
		AppliedAmount: input.Amount,
		AdvanceAmount: advance,
	}, nil
}

// collectOldestFirst spreads the amount across outstanding bills in billing
// order, one ledger entry per allocated bill. Whatever the bills cannot
// absorb is returned as unapplied.
func (s *Service) collectOldestFirst(ctx context.Context, input CollectInput) (*Result, error) {
	outstanding, err := s.bills.Outstanding(ctx, input.ShopID)
	if err != nil {
		return nil, fmt.Errorf("list outstanding: %w", err)
	}
	if len(outstanding) == 0 {
		return nil, fmt.Errorf("%w: shop %s", shared.ErrNoOutstandingBills, input.ShopID)
	}

	res := &Result{ShopID: input.ShopID}
	remaining := input.Amount
	for _, b := range outstanding {
		if remaining <= 0 {
			break
		}
		chunk := b.RemainingCredit
		if chunk > remaining {
			chunk = remaining
		}
		if chunk <= 0 {
			continue
		}
		updated, err := s.bills.ApplyPayment(ctx, b.ID, chunk)
		if err != nil {
			return nil, fmt.Errorf("apply payment to bill %s: %w", b.BillNumber, err)
		}
		entry, err := s.appendPayment(ctx, input.ShopID, b.ID, chunk, input.Notes)
		if err != nil {
			return nil, err
		}
		res.Allocations = append(res.Allocations, Allocation{
			BillID:          updated.ID,
			BillNumber:      updated.BillNumber,
			Applied:         chunk,
			RemainingCredit: updated.RemainingCredit,
			PaymentStatus:   updated.PaymentStatus,
			LedgerEntryID:   entry.ID,
		})
		res.AppliedAmount += chunk
		remaining -= chunk
	}
	res.UnappliedAmount = remaining
	return res, nil
}

func (s *Service) appendPayment(ctx context.Context, shopID, billID string, amount float64, notes string) (*ledger.Transaction, error) {
	entry, err := s.ledger.Append(ctx, ledger.AppendInput{
		ShopID: shopID,
		Type:   ledger.TypePayment,
		Amount: amount,
		BillID: billID,
		Notes:  notes,
	})
	if err != nil {
		return nil, fmt.Errorf("append payment to ledger: %w", err)
	}
	return entry, nil
}
