package sync

import (
	"context"
	"encoding/json"
)

// Repository is the persistence boundary of the sync engine: the per-user
// state row plus the keyed section store for normalized items.
type Repository interface {
	// GetState loads the user's sync state record, ErrStateNotFound if the
	// user never completed a write.
	GetState(ctx context.Context, userID int64) (*State, error)

	// SaveState upserts the sync state record.
	SaveState(ctx context.Context, state *State) error

	// ListSection returns every stored item document of one normalized
	// section, ordered by item id.
	ListSection(ctx context.Context, userID int64, section string) ([]json.RawMessage, error)

	// ReplaceSection atomically deletes the section's current items and
	// inserts the given set. An empty set clears the section. Concurrent
	// readers must never observe a partially replaced section.
	ReplaceSection(ctx context.Context, userID int64, section string, items []StoredItem) error

	// UpsertItems writes items keyed by (user, section, item id), overwriting
	// existing ids and leaving absent ids untouched.
	UpsertItems(ctx context.Context, userID int64, section string, items []StoredItem) error

	// CountSection returns the number of stored items in one section.
	CountSection(ctx context.Context, userID int64, section string) (int, error)
}
