package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// CollectionQueue is the sync_state row tracking outbound queue drains.
const CollectionQueue = "queue"

// SyncState is the per-collection drain bookkeeping shown in the status bar.
type SyncState struct {
	Collection   string
	LastSuccess  *time.Time
	LastAttempt  *time.Time
	LastErrorMsg string
	LastApplied  int
	LastFailed   int
}

type SyncStateRepo struct {
	db *sql.DB
}

func NewSyncStateRepo(db *sql.DB) *SyncStateRepo {
	return &SyncStateRepo{db: db}
}

func (r *SyncStateRepo) Get(ctx context.Context, collection string) (SyncState, bool, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT collection, last_success_at, last_attempt_at, COALESCE(last_error, ''), last_applied, last_failed
		 FROM sync_state WHERE collection = ?`,
		collection,
	)

	var state SyncState
	var lastSuccess sql.NullString
	var lastAttempt sql.NullString
	if err := row.Scan(&state.Collection, &lastSuccess, &lastAttempt, &state.LastErrorMsg, &state.LastApplied, &state.LastFailed); err != nil {
		if err == sql.ErrNoRows {
			return SyncState{}, false, nil
		}
		return SyncState{}, false, fmt.Errorf("query sync state for %q: %w", collection, err)
	}

	if strings.TrimSpace(lastSuccess.String) != "" {
		t, err := time.Parse(time.RFC3339Nano, lastSuccess.String)
		if err != nil {
			return SyncState{}, false, fmt.Errorf("parse last_success_at for %q: %w", collection, err)
		}
		state.LastSuccess = &t
	}
	if strings.TrimSpace(lastAttempt.String) != "" {
		t, err := time.Parse(time.RFC3339Nano, lastAttempt.String)
		if err != nil {
			return SyncState{}, false, fmt.Errorf("parse last_attempt_at for %q: %w", collection, err)
		}
		state.LastAttempt = &t
	}

	return state, true, nil
}

// RecordAttempt marks the start of a drain and clears the previous error.
func (r *SyncStateRepo) RecordAttempt(ctx context.Context, collection string, at time.Time) error {
	msg := ""
	return r.upsert(ctx, collection, at, nil, &msg, nil, nil)
}

// RecordSuccess stores a completed drain with its applied/failed counts.
func (r *SyncStateRepo) RecordSuccess(ctx context.Context, collection string, at time.Time, applied, failed int) error {
	msg := ""
	return r.upsert(ctx, collection, at, &at, &msg, &applied, &failed)
}

// RecordError stores a drain failure message without touching last_success.
func (r *SyncStateRepo) RecordError(ctx context.Context, collection string, at time.Time, syncErr error) error {
	msg := ""
	if syncErr != nil {
		msg = syncErr.Error()
	}
	return r.upsert(ctx, collection, at, nil, &msg, nil, nil)
}

func (r *SyncStateRepo) upsert(
	ctx context.Context,
	collection string,
	attemptAt time.Time,
	successAt *time.Time,
	errorMsg *string,
	applied *int,
	failed *int,
) error {
	attemptValue := attemptAt.UTC().Format(time.RFC3339Nano)
	var successValue any
	if successAt != nil {
		successValue = successAt.UTC().Format(time.RFC3339Nano)
	}
	var errorValue any
	if errorMsg != nil {
		errorValue = *errorMsg
	}
	var appliedValue, failedValue any
	if applied != nil {
		appliedValue = *applied
	}
	if failed != nil {
		failedValue = *failed
	}

	const q = `
INSERT INTO sync_state (collection, last_attempt_at, last_success_at, last_error, last_applied, last_failed)
VALUES (?, ?, ?, ?, COALESCE(?, 0), COALESCE(?, 0))
ON CONFLICT(collection) DO UPDATE SET
  last_attempt_at = excluded.last_attempt_at,
  last_success_at = COALESCE(excluded.last_success_at, sync_state.last_success_at),
  last_error = CASE
    WHEN excluded.last_error IS NULL THEN sync_state.last_error
    ELSE excluded.last_error
  END,
  last_applied = CASE WHEN ? THEN excluded.last_applied ELSE sync_state.last_applied END,
  last_failed = CASE WHEN ? THEN excluded.last_failed ELSE sync_state.last_failed END
`
	hasCounts := applied != nil
	if _, err := r.db.ExecContext(ctx, q, collection, attemptValue, successValue, errorValue, appliedValue, failedValue, hasCounts, hasCounts); err != nil {
		return fmt.Errorf("upsert sync state for %q: %w", collection, err)
	}
	return nil
}
