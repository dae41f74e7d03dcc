package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"pantrykeeper/internal/domain/sync"
)

// SyncRepository persists the per-user sync state row and the keyed section
// store backing the five normalized sections.
type SyncRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewSyncRepository(storage *Storage, log *slog.Logger) *SyncRepository {
	return &SyncRepository{
		pool: storage.Pool(),
		log:  log.With("component", "sync_repository"),
	}
}

func (r *SyncRepository) GetState(ctx context.Context, userID int64) (*sync.State, error) {
	const query = `
		SELECT user_id, preferences, waste_log, consumed_log, analytics,
		       onboarding, custom_locations, user_profile,
		       section_timestamps, last_synced_at, updated_at, created_at
		FROM sync_states
		WHERE user_id = $1`

	state := sync.State{}
	var timestamps []byte

	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&state.UserID,
		&state.Preferences,
		&state.WasteLog,
		&state.ConsumedLog,
		&state.Analytics,
		&state.Onboarding,
		&state.CustomLocations,
		&state.UserProfile,
		&timestamps,
		&state.LastSyncedAt,
		&state.UpdatedAt,
		&state.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrStateNotFound
		}
		r.log.Error("failed to get sync state", "user_id", userID, "error", err)
		return nil, fmt.Errorf("get sync state: %w", err)
	}

	if len(timestamps) > 0 {
		if err := json.Unmarshal(timestamps, &state.SectionTimestamps); err != nil {
			return nil, fmt.Errorf("parse section timestamps: %w", err)
		}
	}
	return &state, nil
}

func (r *SyncRepository) SaveState(ctx context.Context, state *sync.State) error {
	const query = `
		INSERT INTO sync_states
			(user_id, preferences, waste_log, consumed_log, analytics,
			 onboarding, custom_locations, user_profile,
			 section_timestamps, last_synced_at, updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			preferences = EXCLUDED.preferences,
			waste_log = EXCLUDED.waste_log,
			consumed_log = EXCLUDED.consumed_log,
			analytics = EXCLUDED.analytics,
			onboarding = EXCLUDED.onboarding,
			custom_locations = EXCLUDED.custom_locations,
			user_profile = EXCLUDED.user_profile,
			section_timestamps = EXCLUDED.section_timestamps,
			last_synced_at = EXCLUDED.last_synced_at,
			updated_at = EXCLUDED.updated_at`

	timestamps, err := json.Marshal(state.SectionTimestamps)
	if err != nil {
		return fmt.Errorf("marshal section timestamps: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		state.UserID,
		state.Preferences,
		state.WasteLog,
		state.ConsumedLog,
		state.Analytics,
		state.Onboarding,
		state.CustomLocations,
		state.UserProfile,
		timestamps,
		state.LastSyncedAt,
		state.UpdatedAt,
		state.CreatedAt,
	)
	if err != nil {
		r.log.Error("failed to save sync state", "user_id", state.UserID, "error", err)
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}

func (r *SyncRepository) ListSection(ctx context.Context, userID int64, section string) ([]json.RawMessage, error) {
	const query = `
		SELECT doc FROM sync_items
		WHERE user_id = $1 AND section = $2
		ORDER BY item_id`

	rows, err := r.pool.Query(ctx, query, userID, section)
	if err != nil {
		r.log.Error("failed to list section",
			"user_id", userID, "section", section, "error", err)
		return nil, fmt.Errorf("list section: %w", err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var doc json.RawMessage
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ReplaceSection clears and refills one section inside a single transaction,
// so a concurrent reader sees either the old set or the new one, never a mix.
func (r *SyncRepository) ReplaceSection(ctx context.Context, userID int64, section string, items []sync.StoredItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	const deleteQuery = `DELETE FROM sync_items WHERE user_id = $1 AND section = $2`
	if _, err := tx.Exec(ctx, deleteQuery, userID, section); err != nil {
		return fmt.Errorf("clear section: %w", err)
	}

	if err := sendItems(ctx, tx, userID, section, items); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func (r *SyncRepository) UpsertItems(ctx context.Context, userID int64, section string, items []sync.StoredItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := sendItems(ctx, tx, userID, section, items); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func (r *SyncRepository) CountSection(ctx context.Context, userID int64, section string) (int, error) {
	const query = `SELECT count(*) FROM sync_items WHERE user_id = $1 AND section = $2`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, section).Scan(&count); err != nil {
		return 0, fmt.Errorf("count section: %w", err)
	}
	return count, nil
}

func sendItems(ctx context.Context, tx pgx.Tx, userID int64, section string, items []sync.StoredItem) error {
	if len(items) == 0 {
		return nil
	}

	const insertQuery = `
		INSERT INTO sync_items (user_id, section, item_id, doc, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, section, item_id) DO UPDATE SET
			doc = EXCLUDED.doc,
			updated_at = EXCLUDED.updated_at`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(insertQuery, userID, section, item.ID, item.Doc)
	}

	results := tx.SendBatch(ctx, batch)
	for range items {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert item: %w", err)
		}
	}
	return results.Close()
}
