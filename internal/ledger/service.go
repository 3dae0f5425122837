package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/routecash/routecash/internal/shared"
)

// balanceTolerance absorbs float accumulation noise when verifying the chain.
const balanceTolerance = 1e-6

// Service handles credit ledger bookkeeping. The shop balance is always
// derived by replaying the ledger, never cached and mutated in place.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// AppendInput describes a new ledger entry. Amount is a positive magnitude;
// the sign is derived from the type.
type AppendInput struct {
	ShopID  string
	Type    TransactionType
	Amount  float64
	OrderID string
	BillID  string
	Notes   string
}

// Append records one entry, chaining balanceBefore/balanceAfter onto the
// replay-derived balance of the shop.
func (s *Service) Append(ctx context.Context, input AppendInput) (*Transaction, error) {
	if input.ShopID == "" {
		return nil, fmt.Errorf("%w: shop id required", shared.ErrValidation)
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: ledger amount must be positive", shared.ErrValidation)
	}
	switch input.Type {
	case TypeSale, TypePayment, TypeReturn:
	default:
		return nil, fmt.Errorf("%w: unknown ledger type %q", shared.ErrValidation, input.Type)
	}

	entries, err := s.repo.ListByShop(ctx, input.ShopID)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	sortChronological(entries)

	var balance float64
	var lastSeq int64
	for _, e := range entries {
		balance += e.Amount
		lastSeq = e.Seq
	}

	signed := signFor(input.Type) * input.Amount
	tx := &Transaction{
		ID:            uuid.NewString(),
		ShopID:        input.ShopID,
		Seq:           lastSeq + 1,
		Type:          input.Type,
		Amount:        signed,
		BalanceBefore: balance,
		BalanceAfter:  balance + signed,
		OrderID:       input.OrderID,
		BillID:        input.BillID,
		Notes:         input.Notes,
		Date:          s.now(),
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("append ledger: %w", err)
	}
	s.logger.Info("ledger entry appended",
		slog.String("shopId", tx.ShopID),
		slog.String("type", string(tx.Type)),
		slog.Float64("amount", tx.Amount),
		slog.Float64("balance", tx.BalanceAfter))
	return tx, nil
}

// Balance derives a shop's balance by replaying its ledger from zero.
func (s *Service) Balance(ctx context.Context, shopID string) (float64, error) {
	entries, err := s.repo.ListByShop(ctx, shopID)
	if err != nil {
		return 0, fmt.Errorf("list ledger: %w", err)
	}
	var balance float64
	for _, e := range entries {
		balance += e.Amount
	}
	return balance, nil
}

// Statement returns a shop's entries in chronological order.
func (s *Service) Statement(ctx context.Context, shopID string) ([]Transaction, error) {
	entries, err := s.repo.ListByShop(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	sortChronological(entries)
	return entries, nil
}

// FindByBill returns the entries referencing one bill, oldest first.
func (s *Service) FindByBill(ctx context.Context, billID string) ([]Transaction, error) {
	entries, err := s.repo.ListByBill(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	sortChronological(entries)
	return entries, nil
}

// VerifyReplay folds a shop's ledger from zero and checks that every stored
// balanceBefore/balanceAfter pair matches the running balance.
func (s *Service) VerifyReplay(ctx context.Context, shopID string) error {
	entries, err := s.repo.ListByShop(ctx, shopID)
	if err != nil {
		return fmt.Errorf("list ledger: %w", err)
	}
	sortChronological(entries)
	var balance float64
	for _, e := range entries {
		if math.Abs(e.BalanceBefore-balance) > balanceTolerance {
			return fmt.Errorf("ledger: shop %s entry %s balanceBefore=%.2f, replay=%.2f", shopID, e.ID, e.BalanceBefore, balance)
		}
		if math.Abs(e.BalanceAfter-(e.BalanceBefore+e.Amount)) > balanceTolerance {
			return fmt.Errorf("ledger: shop %s entry %s balanceAfter=%.2f, expected %.2f", shopID, e.ID, e.BalanceAfter, e.BalanceBefore+e.Amount)
		}
		balance = e.BalanceAfter
	}
	return nil
}

func sortChronological(entries []Transaction) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Seq != entries[j].Seq {
			return entries[i].Seq < entries[j].Seq
		}
		return entries[i].Date.Before(entries[j].Date)
	})
}
