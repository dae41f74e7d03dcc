package user

import "context"

type Repository interface {
	// Plan returns the user's subscription plan name; users without a row
	// are on the free plan.
	Plan(ctx context.Context, userID int64) (string, error)

	// SetOnboardingCompleted marks the account as having finished
	// onboarding. Idempotent.
	SetOnboardingCompleted(ctx context.Context, userID int64) error
}
