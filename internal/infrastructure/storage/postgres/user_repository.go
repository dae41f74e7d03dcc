package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"pantrykeeper/internal/app/server/config"
)

// UserRepository reads and writes the account-level flags the sync engine
// touches: the subscription plan behind the feature gates and the onboarding
// completion marker.
type UserRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewUserRepository(storage *Storage, log *slog.Logger) *UserRepository {
	return &UserRepository{
		pool: storage.Pool(),
		log:  log.With("component", "user_repository"),
	}
}

func (r *UserRepository) Plan(ctx context.Context, userID int64) (string, error) {
	const query = `SELECT plan FROM user_flags WHERE user_id = $1`

	var plan string
	err := r.pool.QueryRow(ctx, query, userID).Scan(&plan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return config.PlanFree, nil
		}
		r.log.Error("failed to get plan", "user_id", userID, "error", err)
		return "", fmt.Errorf("get plan: %w", err)
	}
	return plan, nil
}

func (r *UserRepository) SetOnboardingCompleted(ctx context.Context, userID int64) error {
	const query = `
		INSERT INTO user_flags (user_id, onboarding_completed, updated_at)
		VALUES ($1, true, now())
		ON CONFLICT (user_id) DO UPDATE SET
			onboarding_completed = true,
			updated_at = now()`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		r.log.Error("failed to set onboarding flag", "user_id", userID, "error", err)
		return fmt.Errorf("set onboarding completed: %w", err)
	}
	return nil
}
