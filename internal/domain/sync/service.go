package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"pantrykeeper/internal/domain/entitlement"
	"pantrykeeper/internal/domain/user"
)

var emptyArray = json.RawMessage("[]")

// Servicer is the sync engine: watermark reads, full-replace writes, and the
// one-time guest merge.
type Servicer interface {
	// Pull answers a read against the client's watermark: full payload,
	// delta, or an unchanged shortcut.
	Pull(ctx context.Context, userID int64, lastSyncedAt string) (*PullResponse, error)

	// Push applies a full-replace write of every section in the payload.
	Push(ctx context.Context, userID int64, req PushRequest) (*PushResponse, error)

	// MigrateGuest absorbs an anonymous session's data without discarding
	// anything already on the account.
	MigrateGuest(ctx context.Context, userID int64, req MigrateRequest) (*MigrateResponse, error)
}

type Service struct {
	repo  Repository
	users user.Repository
	gates entitlement.Servicer
	log   *slog.Logger
	now   func() time.Time
}

func NewService(repo Repository, users user.Repository, gates entitlement.Servicer, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		users: users,
		gates: gates,
		log:   log.With("component", "sync_service"),
		now:   time.Now,
	}
}

func (s *Service) Pull(ctx context.Context, userID int64, lastSyncedAt string) (*PullResponse, error) {
	state, err := s.repo.GetState(ctx, userID)
	if errors.Is(err, ErrStateNotFound) {
		return s.pullFresh(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}

	since, watermarkValid := parseWatermark(lastSyncedAt)

	// Unchanged shortcut: nothing written since the client's watermark, so
	// answer before touching any section store.
	if watermarkValid && !state.UpdatedAt.After(since) {
		return &PullResponse{
			Status:          "Ok",
			Unchanged:       true,
			LastSyncedAt:    &state.UpdatedAt,
			ServerTimestamp: s.now(),
		}, nil
	}

	if !watermarkValid {
		return s.pullFull(ctx, state)
	}
	return s.pullDelta(ctx, state, since)
}

// pullFresh serves users who never synced: empty normalized sections plus
// whatever cookware exists (seeded cookware is visible before first write).
func (s *Service) pullFresh(ctx context.Context, userID int64) (*PullResponse, error) {
	cookware, err := s.readSection(ctx, userID, SectionCookware)
	if err != nil {
		return nil, err
	}

	return &PullResponse{
		Status: "Ok",
		Data: map[string]json.RawMessage{
			SectionInventory:    emptyArray,
			SectionRecipes:      emptyArray,
			SectionMealPlans:    emptyArray,
			SectionShoppingList: emptyArray,
			SectionCookware:     cookware,
		},
		ServerTimestamp: s.now(),
	}, nil
}

func (s *Service) pullFull(ctx context.Context, state *State) (*PullResponse, error) {
	data := make(map[string]json.RawMessage, len(NormalizedSections)+len(BlobSections))

	for _, section := range NormalizedSections {
		value, err := s.readSection(ctx, state.UserID, section)
		if err != nil {
			return nil, err
		}
		data[section] = value
	}
	for _, section := range BlobSections {
		data[section] = blobOrNull(state.Blob(section))
	}

	return &PullResponse{
		Status:          "Ok",
		Data:            data,
		LastSyncedAt:    &state.UpdatedAt,
		ServerTimestamp: s.now(),
	}, nil
}

// pullDelta includes only sections written after the client's watermark.
// Sections that are not newer are omitted entirely, never sent empty.
// Cookware always rides along regardless of its own timestamp.
func (s *Service) pullDelta(ctx context.Context, state *State, since time.Time) (*PullResponse, error) {
	data := make(map[string]json.RawMessage)

	for _, section := range NormalizedSections {
		if section != SectionCookware && !state.SectionTimestamps[section].After(since) {
			continue
		}
		value, err := s.readSection(ctx, state.UserID, section)
		if err != nil {
			return nil, err
		}
		data[section] = value
	}
	for _, section := range BlobSections {
		if state.SectionTimestamps[section].After(since) {
			data[section] = blobOrNull(state.Blob(section))
		}
	}

	return &PullResponse{
		Status:          "Ok",
		Data:            data,
		Delta:           true,
		LastSyncedAt:    &state.UpdatedAt,
		ServerTimestamp: s.now(),
	}, nil
}

func (s *Service) Push(ctx context.Context, userID int64, req PushRequest) (*PushResponse, error) {
	if req.Data == nil {
		return nil, ErrMissingData
	}
	now := s.now()

	// Feature gates fail the whole request before anything is written.
	if err := s.checkGates(ctx, userID, req.Data); err != nil {
		return nil, err
	}

	state, err := s.repo.GetState(ctx, userID)
	if errors.Is(err, ErrStateNotFound) {
		state = NewState(userID)
		state.CreatedAt = now
	} else if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}

	// A malformed preferences payload must not block the rest of the sync;
	// it is reported through prefsSynced instead.
	prefsSynced := true
	var prefsError string
	if raw, ok := req.Data[SectionPreferences]; ok {
		if err := ValidatePreferences(raw); err != nil {
			prefsSynced = false
			prefsError = err.Error()
			s.log.Warn("preferences rejected", "user_id", userID, "error", err)
		} else {
			state.SetBlob(SectionPreferences, raw)
			state.Touch(SectionPreferences, now)
		}
	}

	for _, section := range NormalizedSections {
		raw, ok := req.Data[section]
		if !ok {
			continue
		}
		items, dropped, err := decodeSection(section, raw)
		if err != nil {
			return nil, err
		}
		if dropped > 0 {
			s.log.Warn("items without id dropped",
				"user_id", userID, "section", section, "dropped", dropped)
		}
		if err := s.repo.ReplaceSection(ctx, userID, section, items); err != nil {
			return nil, fmt.Errorf("replace %s: %w", section, err)
		}
		state.Touch(section, now)
	}

	for _, section := range BlobSections {
		if section == SectionPreferences {
			continue
		}
		raw, ok := req.Data[section]
		if !ok {
			continue
		}
		state.SetBlob(section, raw)
		state.Touch(section, now)
	}

	state.UpdatedAt = now
	state.LastSyncedAt = &now
	if err := s.repo.SaveState(ctx, state); err != nil {
		return nil, fmt.Errorf("save sync state: %w", err)
	}

	if raw, ok := req.Data[SectionOnboarding]; ok && onboardingCompleted(raw) {
		if err := s.users.SetOnboardingCompleted(ctx, userID); err != nil {
			s.log.Error("failed to flag onboarding completion",
				"user_id", userID, "error", err)
		}
	}

	return &PushResponse{
		Status:      "Ok",
		SyncedAt:    now,
		PrefsSynced: prefsSynced,
		PrefsError:  prefsError,
	}, nil
}

// checkGates enforces plan limits on a direct sync. Order matters: quota
// checks happen before any section is mutated.
func (s *Service) checkGates(ctx context.Context, userID int64, data map[string]json.RawMessage) error {
	if raw, ok := data[SectionCookware]; ok {
		count, err := arrayLen(raw)
		if err != nil {
			return fmt.Errorf("decode %s: %w", SectionCookware, err)
		}
		limit, err := s.gates.CookwareLimit(ctx, userID)
		if err != nil {
			return err
		}
		if limit > 0 && count > limit {
			return &CookwareLimitError{Limit: limit, Count: count}
		}
	}

	if raw, ok := data[SectionCustomLocations]; ok && !isEmptyValue(raw) {
		allowed, err := s.gates.CustomLocationsAllowed(ctx, userID)
		if err != nil {
			return err
		}
		if !allowed {
			return &FeatureNotAvailableError{Feature: SectionCustomLocations}
		}
	}
	return nil
}

func (s *Service) MigrateGuest(ctx context.Context, userID int64, req MigrateRequest) (*MigrateResponse, error) {
	if req.Data == nil {
		return nil, ErrMissingData
	}
	now := s.now()

	merged := true
	state, err := s.repo.GetState(ctx, userID)
	if errors.Is(err, ErrStateNotFound) {
		merged = false
		state = NewState(userID)
		state.CreatedAt = now
	} else if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}

	data, err := s.degradeGates(ctx, userID, req.Data)
	if err != nil {
		return nil, err
	}

	// Normalized sections merge item by item: same id means the guest copy
	// wins, items only on the account survive untouched.
	for _, section := range NormalizedSections {
		raw, ok := data[section]
		if !ok {
			continue
		}
		items, dropped, err := decodeSection(section, raw)
		if err != nil {
			return nil, err
		}
		if dropped > 0 {
			s.log.Warn("guest items without id dropped",
				"user_id", userID, "section", section, "dropped", dropped)
		}
		if len(items) == 0 {
			continue
		}
		if err := s.repo.UpsertItems(ctx, userID, section, items); err != nil {
			return nil, fmt.Errorf("upsert %s: %w", section, err)
		}
		state.Touch(section, now)
	}

	for _, section := range BlobSections {
		raw, ok := data[section]
		if !ok || isEmptyValue(raw) {
			continue
		}
		if arrayBlobSections[section] {
			mergedValue, changed, err := mergeArrayBlob(state.Blob(section), raw)
			if err != nil {
				return nil, fmt.Errorf("merge %s: %w", section, err)
			}
			if !changed {
				continue
			}
			state.SetBlob(section, mergedValue)
			state.Touch(section, now)
			continue
		}

		// Whole-value blobs: first write wins, anything the user entered
		// after registering is protected from the guest copy.
		if !isEmptyValue(state.Blob(section)) {
			continue
		}
		state.SetBlob(section, raw)
		state.Touch(section, now)
	}

	state.UpdatedAt = now
	state.LastSyncedAt = &now
	if err := s.repo.SaveState(ctx, state); err != nil {
		return nil, fmt.Errorf("save sync state: %w", err)
	}

	s.log.Info("guest data migrated",
		"user_id", userID, "guest_id", req.GuestID, "merged", merged)

	return &MigrateResponse{
		Status:     "Ok",
		MigratedAt: now,
		Merged:     merged,
	}, nil
}

// degradeGates applies feature gates to a guest payload without failing the
// migration: cookware overflow is truncated to the remaining slots and
// disallowed custom locations are dropped.
func (s *Service) degradeGates(ctx context.Context, userID int64, data map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(data))
	for k, v := range data {
		out[k] = v
	}

	if raw, ok := out[SectionCookware]; ok {
		limit, err := s.gates.CookwareLimit(ctx, userID)
		if err != nil {
			return nil, err
		}
		if limit > 0 {
			existing, err := s.repo.CountSection(ctx, userID, SectionCookware)
			if err != nil {
				return nil, fmt.Errorf("count %s: %w", SectionCookware, err)
			}
			remaining := limit - existing
			if remaining < 0 {
				remaining = 0
			}
			truncated, count, err := truncateArray(raw, remaining)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", SectionCookware, err)
			}
			if count > remaining {
				s.log.Warn("guest cookware truncated to remaining quota",
					"user_id", userID, "incoming", count, "kept", remaining, "limit", limit)
				out[SectionCookware] = truncated
			}
		}
	}

	if raw, ok := out[SectionCustomLocations]; ok && !isEmptyValue(raw) {
		allowed, err := s.gates.CustomLocationsAllowed(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			s.log.Warn("guest custom locations dropped, plan does not allow them",
				"user_id", userID)
			delete(out, SectionCustomLocations)
		}
	}
	return out, nil
}

func (s *Service) readSection(ctx context.Context, userID int64, section string) (json.RawMessage, error) {
	docs, err := s.repo.ListSection(ctx, userID, section)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", section, err)
	}
	if len(docs) == 0 {
		return emptyArray, nil
	}
	return json.Marshal(docs)
}

// parseWatermark interprets the client-supplied watermark. Absent or
// unparseable values mean "send everything", never an error.
func parseWatermark(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func blobOrNull(v json.RawMessage) json.RawMessage {
	if len(v) == 0 {
		return json.RawMessage("null")
	}
	return v
}

func arrayLen(raw json.RawMessage) (int, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func truncateArray(raw json.RawMessage, max int) (json.RawMessage, int, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, 0, err
	}
	count := len(entries)
	if count <= max {
		return raw, count, nil
	}
	truncated, err := json.Marshal(entries[:max])
	if err != nil {
		return nil, 0, err
	}
	return truncated, count, nil
}

// onboardingCompleted looks for the completion marker in the onboarding blob.
func onboardingCompleted(raw json.RawMessage) bool {
	var marker struct {
		Completed bool `json:"completed"`
	}
	if err := json.Unmarshal(raw, &marker); err != nil {
		return false
	}
	return marker.Completed
}
