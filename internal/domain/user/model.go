package user

import "time"

// Flags are the account-level markers the sync engine reads and writes
// outside the sync state record. Accounts themselves are created by the
// external auth service; a missing row means default values.
type Flags struct {
	UserID              int64     `json:"user_id"`
	Plan                string    `json:"plan"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	UpdatedAt           time.Time `json:"updated_at"`
}
