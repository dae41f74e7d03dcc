package sync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_MigrateGuest_MissingData(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(new(MockRepository), new(MockUserRepository), new(MockGates), now)

	_, err := svc.MigrateGuest(context.Background(), testUserID, MigrateRequest{})
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestService_MigrateGuest_UpsertsInsteadOfReplacing(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(MockRepository)
	gates := new(MockGates)
	svc := newTestService(repo, new(MockUserRepository), gates, now)

	existing := stateAt(now.Add(-time.Hour), map[string]time.Time{})
	repo.On("GetState", mock.Anything, testUserID).Return(existing, nil)

	var upserted []StoredItem
	repo.On("UpsertItems", mock.Anything, testUserID, SectionInventory, mock.Anything).
		Run(func(args mock.Arguments) { upserted = args.Get(3).([]StoredItem) }).
		Return(nil)
	repo.On("SaveState", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.MigrateGuest(context.Background(), testUserID, MigrateRequest{
		GuestID: "guest-7",
		Data: map[string]json.RawMessage{
			SectionInventory: json.RawMessage(`[{"id":"milk","name":"Oat milk"}]`),
		},
	})
	require.NoError(t, err)

	assert.True(t, resp.Merged)
	assert.Equal(t, now, resp.MigratedAt)
	require.Len(t, upserted, 1)
	assert.Equal(t, "milk", upserted[0].ID)
	// Items already on the account but absent from the guest payload are
	// never touched: a destructive replace must not happen here.
	repo.AssertNotCalled(t, "ReplaceSection", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_MigrateGuest_CreatesStateWhenNoneExists(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockUserRepository), new(MockGates), now)

	repo.On("GetState", mock.Anything, testUserID).Return(nil, ErrStateNotFound)

	var saved *State
	repo.On("SaveState", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*State) }).
		Return(nil)

	resp, err := svc.MigrateGuest(context.Background(), testUserID, MigrateRequest{
		Data: map[string]json.RawMessage{
			SectionPreferences: json.RawMessage(`{"language":"fi"}`),
		},
	})
	require.NoError(t, err)

	assert.False(t, resp.Merged)
	require.NotNil(t, saved)
	assert.JSONEq(t, `{"language":"fi"}`, string(saved.Preferences))
	assert.Equal(t, now, saved.CreatedAt)
}

func TestService_MigrateGuest_WholeBlobFirstWriteWins(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockUserRepository), new(MockGates), now)

	existing := stateAt(now.Add(-time.Hour), map[string]time.Time{})
	existing.Preferences = json.RawMessage(`{"language":"de"}`)
	repo.On("GetState", mock.Anything, testUserID).Return(existing, nil)

	var saved *State
	repo.On("SaveState", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*State) }).
		Return(nil)

	_, err := svc.MigrateGuest(context.Background(), testUserID, MigrateRequest{
		Data: map[string]json.RawMessage{
			SectionPreferences: json.RawMessage(`{"language":"fi"}`),
			SectionUserProfile: json.RawMessage(`{"name":"Guest"}`),
		},
	})
	require.NoError(t, err)

	require.NotNil(t, saved)
	// The account's preferences survive; the empty profile slot adopts the
	// guest value.
	assert.JSONEq(t, `{"language":"de"}`, string(saved.Preferences))
	assert.JSONEq(t, `{"name":"Guest"}`, string(saved.UserProfile))
}

func TestService_MigrateGuest_ArrayBlobAppendsWithoutDuplicates(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockUserRepository), new(MockGates), now)

	existing := stateAt(now.Add(-time.Hour), map[string]time.Time{})
	existing.WasteLog = json.RawMessage(`[{"id":"w1","item":"bread"}]`)
	repo.On("GetState", mock.Anything, testUserID).Return(existing, nil)

	var saved *State
	repo.On("SaveState", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*State) }).
		Return(nil)

	_, err := svc.MigrateGuest(context.Background(), testUserID, MigrateRequest{
		Data: map[string]json.RawMessage{
			SectionWasteLog: json.RawMessage(`[{"id":"w1","item":"stale copy"},{"id":"w2","item":"eggs"}]`),
		},
	})
	require.NoError(t, err)

	require.NotNil(t, saved)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(saved.WasteLog, &entries))
	require.Len(t, entries, 2)
	// The account's w1 entry wins; only w2 was appended.
	assert.Equal(t, "bread", entries[0]["item"])
	assert.Equal(t, "eggs", entries[1]["item"])
}

func TestService_MigrateGuest_CookwareTruncatedToRemainingQuota(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(MockRepository)
	gates := new(MockGates)
	svc := newTestService(repo, new(MockUserRepository), gates, now)

	repo.On("GetState", mock.Anything, testUserID).Return(nil, ErrStateNotFound)
	gates.On("CookwareLimit", mock.Anything, testUserID).Return(3, nil)
	repo.On("CountSection", mock.Anything, testUserID, SectionCookware).Return(2, nil)

	var upserted []StoredItem
	repo.On("UpsertItems", mock.Anything, testUserID, SectionCookware, mock.Anything).
		Run(func(args mock.Arguments) { upserted = args.Get(3).([]StoredItem) }).
		Return(nil)
	repo.On("SaveState", mock.Anything, mock.Anything).Return(nil)

	// Three incoming items, one slot left: the migration still succeeds.
	resp, err := svc.MigrateGuest(context.Background(), testUserID, MigrateRequest{
		Data: map[string]json.RawMessage{
			SectionCookware: json.RawMessage(`[{"id":"a"},{"id":"b"},{"id":"c"}]`),
		},
	})
	require.NoError(t, err)
	assert.False(t, resp.Merged)
	require.Len(t, upserted, 1)
	assert.Equal(t, "a", upserted[0].ID)
}

func TestService_MigrateGuest_DisallowedCustomLocationsDropped(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(MockRepository)
	gates := new(MockGates)
	svc := newTestService(repo, new(MockUserRepository), gates, now)

	repo.On("GetState", mock.Anything, testUserID).Return(nil, ErrStateNotFound)
	gates.On("CustomLocationsAllowed", mock.Anything, testUserID).Return(false, nil)

	var saved *State
	repo.On("SaveState", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*State) }).
		Return(nil)

	resp, err := svc.MigrateGuest(context.Background(), testUserID, MigrateRequest{
		Data: map[string]json.RawMessage{
			SectionCustomLocations: json.RawMessage(`[{"id":"cellar"}]`),
		},
	})
	require.NoError(t, err)
	assert.False(t, resp.Merged)
	require.NotNil(t, saved)
	assert.Empty(t, saved.CustomLocations)
}

func TestMergeArrayBlob(t *testing.T) {
	tests := []struct {
		name         string
		existing     string
		incoming     string
		expected     string
		expectChange bool
	}{
		{
			name:         "appends new entries by id",
			existing:     `[{"id":1,"v":"a"}]`,
			incoming:     `[{"id":1,"v":"dup"},{"id":2,"v":"b"}]`,
			expected:     `[{"id":1,"v":"a"},{"id":2,"v":"b"}]`,
			expectChange: true,
		},
		{
			name:         "no existing value adopts incoming",
			existing:     ``,
			incoming:     `[{"id":"x"}]`,
			expected:     `[{"id":"x"}]`,
			expectChange: true,
		},
		{
			name:         "identical entries without id suppressed",
			existing:     `[{"note":"same"}]`,
			incoming:     `[{"note":"same"},{"note":"new"}]`,
			expected:     `[{"note":"same"},{"note":"new"}]`,
			expectChange: true,
		},
		{
			name:         "all duplicates means no change",
			existing:     `[{"id":"x"}]`,
			incoming:     `[{"id":"x"}]`,
			expected:     `[{"id":"x"}]`,
			expectChange: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, changed, err := mergeArrayBlob(
				json.RawMessage(tt.existing), json.RawMessage(tt.incoming))
			require.NoError(t, err)
			assert.Equal(t, tt.expectChange, changed)
			assert.JSONEq(t, tt.expected, string(merged))
		})
	}
}
