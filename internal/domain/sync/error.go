package sync

import (
	"errors"
	"fmt"
)

var (
	// ErrStateNotFound means the user has never completed a write; reads
	// treat it as "no data yet", not as empty data.
	ErrStateNotFound = errors.New("sync state not found")

	// ErrMissingData is returned when a write arrives without a data payload.
	ErrMissingData = errors.New("missing data payload")
)

// CookwareLimitError rejects a direct sync whose cookware list exceeds the
// user's plan limit. Guest migration never raises it; it truncates instead.
type CookwareLimitError struct {
	Limit int
	Count int
}

func (e *CookwareLimitError) Error() string {
	return fmt.Sprintf("cookware limit reached: %d items sent, limit is %d", e.Count, e.Limit)
}

// FeatureNotAvailableError rejects use of a section the user's plan does not
// include.
type FeatureNotAvailableError struct {
	Feature string
}

func (e *FeatureNotAvailableError) Error() string {
	return fmt.Sprintf("feature not available on current plan: %s", e.Feature)
}
