package sync

import (
	"encoding/json"
	"time"
)

// Section names as they appear in client payloads.
const (
	SectionInventory       = "inventory"
	SectionRecipes         = "recipes"
	SectionMealPlans       = "mealPlans"
	SectionShoppingList    = "shoppingList"
	SectionCookware        = "cookware"
	SectionPreferences     = "preferences"
	SectionWasteLog        = "wasteLog"
	SectionConsumedLog     = "consumedLog"
	SectionAnalytics       = "analytics"
	SectionOnboarding      = "onboarding"
	SectionCustomLocations = "customLocations"
	SectionUserProfile     = "userProfile"
)

// NormalizedSections are stored as keyed item collections in the section
// store. The remaining sections are opaque blobs on the state row.
var NormalizedSections = []string{
	SectionInventory,
	SectionRecipes,
	SectionMealPlans,
	SectionShoppingList,
	SectionCookware,
}

var BlobSections = []string{
	SectionPreferences,
	SectionWasteLog,
	SectionConsumedLog,
	SectionAnalytics,
	SectionOnboarding,
	SectionCustomLocations,
	SectionUserProfile,
}

// arrayBlobSections are merged entry-by-entry during guest migration; the
// other blob sections are adopted whole, first write wins.
var arrayBlobSections = map[string]bool{
	SectionWasteLog:        true,
	SectionConsumedLog:     true,
	SectionCustomLocations: true,
}

// State is the per-user sync state record: blob section values plus the
// watermarks the delta planner compares against. It is created lazily on the
// first successful write; before that reads see ErrStateNotFound.
type State struct {
	UserID            int64                      `json:"user_id"`
	Preferences       json.RawMessage            `json:"preferences,omitempty"`
	WasteLog          json.RawMessage            `json:"waste_log,omitempty"`
	ConsumedLog       json.RawMessage            `json:"consumed_log,omitempty"`
	Analytics         json.RawMessage            `json:"analytics,omitempty"`
	Onboarding        json.RawMessage            `json:"onboarding,omitempty"`
	CustomLocations   json.RawMessage            `json:"custom_locations,omitempty"`
	UserProfile       json.RawMessage            `json:"user_profile,omitempty"`
	SectionTimestamps map[string]time.Time       `json:"section_timestamps"`
	LastSyncedAt      *time.Time                 `json:"last_synced_at,omitempty"`
	UpdatedAt         time.Time                  `json:"updated_at"`
	CreatedAt         time.Time                  `json:"created_at"`
}

func NewState(userID int64) *State {
	return &State{
		UserID:            userID,
		SectionTimestamps: make(map[string]time.Time),
	}
}

// Blob returns the stored value of a blob section, nil when never written.
func (s *State) Blob(section string) json.RawMessage {
	switch section {
	case SectionPreferences:
		return s.Preferences
	case SectionWasteLog:
		return s.WasteLog
	case SectionConsumedLog:
		return s.ConsumedLog
	case SectionAnalytics:
		return s.Analytics
	case SectionOnboarding:
		return s.Onboarding
	case SectionCustomLocations:
		return s.CustomLocations
	case SectionUserProfile:
		return s.UserProfile
	}
	return nil
}

func (s *State) SetBlob(section string, value json.RawMessage) {
	switch section {
	case SectionPreferences:
		s.Preferences = value
	case SectionWasteLog:
		s.WasteLog = value
	case SectionConsumedLog:
		s.ConsumedLog = value
	case SectionAnalytics:
		s.Analytics = value
	case SectionOnboarding:
		s.Onboarding = value
	case SectionCustomLocations:
		s.CustomLocations = value
	case SectionUserProfile:
		s.UserProfile = value
	}
}

// Touch records a write to section at now. Section timestamps only move
// forward and never exceed UpdatedAt.
func (s *State) Touch(section string, now time.Time) {
	if s.SectionTimestamps == nil {
		s.SectionTimestamps = make(map[string]time.Time)
	}
	if now.After(s.SectionTimestamps[section]) {
		s.SectionTimestamps[section] = now
	}
	if now.After(s.UpdatedAt) {
		s.UpdatedAt = now
	}
}

// isEmptyValue reports whether a blob value is absent for merge purposes:
// never written, JSON null, or an empty object/array.
func isEmptyValue(v json.RawMessage) bool {
	switch string(v) {
	case "", "null", "{}", "[]":
		return true
	}
	return false
}
