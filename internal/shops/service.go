package shops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/routecash/routecash/internal/ledger"
	"github.com/routecash/routecash/internal/shared"
)

// LedgerPort exposes the replay-derived balance and statement for a shop.
type LedgerPort interface {
	Balance(ctx context.Context, shopID string) (float64, error)
	Statement(ctx context.Context, shopID string) ([]ledger.Transaction, error)
}

// Service manages shop master data and exposes ledger views per shop.
type Service struct {
	repo   Repository
	ledger LedgerPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, ledgerPort LedgerPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, ledger: ledgerPort, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput describes a new shop.
type CreateInput struct {
	Name      string
	OwnerName string
	Phone     string
	Address   string
	Area      string
}

// Create registers a shop.
func (s *Service) Create(ctx context.Context, actor *shared.Actor, input CreateInput) (*Shop, error) {
	if err := actor.CanManageShops(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: shop name required", shared.ErrValidation)
	}
	now := s.now()
	shop := &Shop{
		ID:        uuid.NewString(),
		Name:      input.Name,
		OwnerName: input.OwnerName,
		Phone:     input.Phone,
		Address:   input.Address,
		Area:      input.Area,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, shop); err != nil {
		return nil, fmt.Errorf("create shop: %w", err)
	}
	s.logger.Info("shop created", slog.String("shopId", shop.ID), slog.String("name", shop.Name))
	return shop, nil
}

// Update edits shop master data.
func (s *Service) Update(ctx context.Context, actor *shared.Actor, id string, input CreateInput) (*Shop, error) {
	if err := actor.CanManageShops(); err != nil {
		return nil, err
	}
	shop, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	if strings.TrimSpace(input.Name) != "" {
		shop.Name = input.Name
	}
	if input.OwnerName != "" {
		shop.OwnerName = input.OwnerName
	}
	if input.Phone != "" {
		shop.Phone = input.Phone
	}
	if input.Address != "" {
		shop.Address = input.Address
	}
	if input.Area != "" {
		shop.Area = input.Area
	}
	shop.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, shop); err != nil {
		return nil, fmt.Errorf("update shop: %w", err)
	}
	return shop, nil
}

// Get returns one shop.
func (s *Service) Get(ctx context.Context, id string) (*Shop, error) {
	return s.repo.Get(ctx, id)
}

// ListByArea returns the shops on one route area.
func (s *Service) ListByArea(ctx context.Context, area string) ([]Shop, error) {
	return s.repo.ListByArea(ctx, area)
}

// Balance returns the shop's replay-derived ledger balance.
func (s *Service) Balance(ctx context.Context, id string) (float64, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return 0, fmt.Errorf("get shop: %w", err)
	}
	return s.ledger.Balance(ctx, id)
}

// Statement returns the shop's ledger entries in chronological order.
func (s *Service) Statement(ctx context.Context, id string) ([]ledger.Transaction, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	return s.ledger.Statement(ctx, id)
}
