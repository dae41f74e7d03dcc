package entitlement

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"

	"pantrykeeper/internal/app/server/config"
	"pantrykeeper/internal/domain/user"
)

// Servicer answers the two feature-gate questions the sync writers ask before
// mutating state.
type Servicer interface {
	// CookwareLimit returns the plan-derived maximum cookware count; zero or
	// less means unlimited.
	CookwareLimit(ctx context.Context, userID int64) (int, error)

	// CustomLocationsAllowed reports whether the user may store custom
	// storage areas.
	CustomLocationsAllowed(ctx context.Context, userID int64) (bool, error)
}

type Service struct {
	users user.Repository
	plans config.Plans
	log   *slog.Logger
}

func NewService(users user.Repository, plans config.Plans, log *slog.Logger) *Service {
	return &Service{
		users: users,
		plans: plans,
		log:   log.With("component", "entitlement_service"),
	}
}

func (s *Service) CookwareLimit(ctx context.Context, userID int64) (int, error) {
	plan, err := s.users.Plan(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("resolve plan: %w", err)
	}
	return s.plans.Limits(plan).CookwareLimit, nil
}

func (s *Service) CustomLocationsAllowed(ctx context.Context, userID int64) (bool, error) {
	plan, err := s.users.Plan(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("resolve plan: %w", err)
	}
	return s.plans.Limits(plan).CustomLocations, nil
}
