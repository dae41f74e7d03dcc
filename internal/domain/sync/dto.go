package sync

import (
	"encoding/json"
	"time"
)

// PullResponse answers a read. Exactly one shape is used per case: full and
// delta responses carry Data keyed by section, the unchanged shortcut carries
// a null Data with Unchanged set.
type PullResponse struct {
	Status          string                     `json:"status"`
	Error           string                     `json:"error,omitempty"`
	Data            map[string]json.RawMessage `json:"data"`
	Unchanged       bool                       `json:"unchanged,omitempty"`
	Delta           bool                       `json:"delta,omitempty"`
	LastSyncedAt    *time.Time                 `json:"lastSyncedAt"`
	ServerTimestamp time.Time                  `json:"serverTimestamp"`
}

// PushRequest carries any subset of the known section keys; unknown keys are
// ignored. Section values stay raw until the service decodes them.
type PushRequest struct {
	Data map[string]json.RawMessage `json:"data"`
}

type PushResponse struct {
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	SyncedAt    time.Time `json:"syncedAt"`
	PrefsSynced bool      `json:"prefsSynced"`
	PrefsError  string    `json:"prefsError,omitempty"`
}

// MigrateRequest is the one-time guest-to-account merge payload. GuestID is
// informational only; the authenticated user owns the merge target.
type MigrateRequest struct {
	GuestID string                     `json:"guestId,omitempty"`
	Data    map[string]json.RawMessage `json:"data"`
}

type MigrateResponse struct {
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	MigratedAt time.Time `json:"migratedAt"`
	Merged     bool      `json:"merged"`
}
