package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/routecash/routecash/internal/shared"
)

// Service handles user management and the unauthorized-discount accumulator.
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

// CreateInput describes a new user record.
type CreateInput struct {
	Name               string
	Role               string
	MaxDiscountPercent float64
}

// Create registers a user record mirrored from the auth collaborator.
func (s *Service) Create(ctx context.Context, input CreateInput) (*User, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: user name is required", shared.ErrValidation)
	}
	switch input.Role {
	case shared.RoleBooker, shared.RoleKPO, shared.RoleSalesman, shared.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, input.Role)
	}
	if input.MaxDiscountPercent < 0 {
		return nil, fmt.Errorf("%w: max discount percent must not be negative", shared.ErrValidation)
	}
	now := s.now()
	u := &User{
		ID:                 uuid.NewString(),
		Name:               input.Name,
		Role:               input.Role,
		MaxDiscountPercent: input.MaxDiscountPercent,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.Get(ctx, id)
}

// ListByRole returns all users with the given role.
func (s *Service) ListByRole(ctx context.Context, role string) ([]User, error) {
	return s.repo.ListByRole(ctx, role)
}

// ApplyUnauthorizedDelta adjusts a booker's accumulator for one period by
// delta. Submissions add; a resubmission after an edit cycle passes the
// difference against the previously recorded amount so nothing double-counts.
func (s *Service) ApplyUnauthorizedDelta(ctx context.Context, bookerID, periodKey string, delta float64) error {
	if delta == 0 {
		return nil
	}
	if err := shared.ValidatePeriodKey(periodKey); err != nil {
		return err
	}
	u, err := s.repo.Get(ctx, bookerID)
	if err != nil {
		return fmt.Errorf("get booker: %w", err)
	}
	if u.MonthlyUnauthorizedDiscounts == nil {
		u.MonthlyUnauthorizedDiscounts = make(map[string]float64)
	}
	u.MonthlyUnauthorizedDiscounts[periodKey] += delta
	u.TotalUnauthorizedDiscount += delta
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return fmt.Errorf("update booker accumulator: %w", err)
	}
	return nil
}

// ResetUnauthorizedDiscount applies a salary deduction: removes exactly one
// period's amount from the total and deletes that period key. Only the
// targeted key is touched.
func (s *Service) ResetUnauthorizedDiscount(ctx context.Context, actor *shared.Actor, bookerID, periodKey string) error {
	if err := actor.CanResetDiscounts(); err != nil {
		return err
	}
	if err := shared.ValidatePeriodKey(periodKey); err != nil {
		return err
	}
	u, err := s.repo.Get(ctx, bookerID)
	if err != nil {
		return fmt.Errorf("get booker: %w", err)
	}
	amount, ok := u.MonthlyUnauthorizedDiscounts[periodKey]
	if !ok {
		return fmt.Errorf("%w: booker %s has no unauthorized discount for %s", shared.ErrPeriodNotFound, bookerID, periodKey)
	}
	u.TotalUnauthorizedDiscount -= amount
	delete(u.MonthlyUnauthorizedDiscounts, periodKey)
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return fmt.Errorf("update booker accumulator: %w", err)
	}
	s.logger.Info("salary deduction applied",
		slog.String("bookerId", bookerID),
		slog.String("period", periodKey),
		slog.Float64("amount", amount))
	return nil
}
