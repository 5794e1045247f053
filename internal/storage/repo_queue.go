package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/navid4x/ghesta/internal/models"
)

// MaxRetries is the number of delivery attempts before a queued operation is
// flagged permanently failed. Permanently failed operations stay in the
// queue until acknowledged; they are never dropped silently.
const MaxRetries = 3

// ErrQueueExhausted marks an operation that exceeded MaxRetries.
var ErrQueueExhausted = errors.New("sync operation exceeded retry limit")

type QueueRepo struct {
	db *sql.DB
}

func NewQueueRepo(db *sql.DB) *QueueRepo {
	return &QueueRepo{db: db}
}

// Append adds an operation to the tail of the queue with a zero retry
// counter.
func (r *QueueRepo) Append(ctx context.Context, op models.SyncOperation) error {
	var payload any
	if len(op.Payload) > 0 {
		payload = string(op.Payload)
	}
	if _, err := r.db.ExecContext(
		ctx,
		`INSERT INTO sync_queue (id, kind, entity_kind, entity_id, payload, created_at, retry_count, status)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		op.ID,
		string(op.Kind),
		string(op.EntityKind),
		op.EntityID,
		payload,
		op.CreatedAt.UTC().Format(time.RFC3339Nano),
		models.OpStatusPending,
	); err != nil {
		return fmt.Errorf("append sync operation %q: %w", op.ID, err)
	}
	return nil
}

// List returns queued operations in insertion order. Remote application must
// follow this order for operations on the same entity.
func (r *QueueRepo) List(ctx context.Context) ([]models.SyncOperation, error) {
	return r.list(ctx, "")
}

// Pending returns only operations still eligible for delivery, FIFO.
func (r *QueueRepo) Pending(ctx context.Context) ([]models.SyncOperation, error) {
	return r.list(ctx, models.OpStatusPending)
}

// PermanentFailures returns operations that exhausted their retries and wait
// for user acknowledgement.
func (r *QueueRepo) PermanentFailures(ctx context.Context) ([]models.SyncOperation, error) {
	return r.list(ctx, models.OpStatusFailedPermanent)
}

func (r *QueueRepo) list(ctx context.Context, status string) ([]models.SyncOperation, error) {
	q := `SELECT id, kind, entity_kind, entity_id, payload, created_at, retry_count, status
	      FROM sync_queue`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query sync queue: %w", err)
	}
	defer rows.Close()

	var out []models.SyncOperation
	for rows.Next() {
		var op models.SyncOperation
		var payload sql.NullString
		var createdAt string
		if err := rows.Scan(&op.ID, &op.Kind, &op.EntityKind, &op.EntityID, &payload, &createdAt, &op.RetryCount, &op.Status); err != nil {
			return nil, fmt.Errorf("scan sync operation: %w", err)
		}
		if payload.Valid {
			op.Payload = []byte(payload.String)
		}
		if op.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of operation %q: %w", op.ID, err)
		}
		out = append(out, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read sync queue: %w", err)
	}
	return out, nil
}

// Remove deletes an operation after confirmed remote application.
func (r *QueueRepo) Remove(ctx context.Context, opID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, opID); err != nil {
		return fmt.Errorf("remove sync operation %q: %w", opID, err)
	}
	return nil
}

// Acknowledge removes a permanently failed operation once the user has seen
// it.
func (r *QueueRepo) Acknowledge(ctx context.Context, opID string) error {
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM sync_queue WHERE id = ? AND status = ?`,
		opID,
		models.OpStatusFailedPermanent,
	)
	if err != nil {
		return fmt.Errorf("acknowledge sync operation %q: %w", opID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("sync operation %q is not permanently failed", opID)
	}
	return nil
}

// RecordFailure increments the retry counter and flips the operation to
// failed_permanent once MaxRetries is reached. It returns ErrQueueExhausted
// on that transition so callers can surface the condition.
func (r *QueueRepo) RecordFailure(ctx context.Context, opID string) error {
	var retries int
	err := r.db.QueryRowContext(ctx, `SELECT retry_count FROM sync_queue WHERE id = ?`, opID).Scan(&retries)
	if err == sql.ErrNoRows {
		return fmt.Errorf("sync operation %q not found", opID)
	}
	if err != nil {
		return fmt.Errorf("read retry count of %q: %w", opID, err)
	}

	retries++
	status := models.OpStatusPending
	if retries >= MaxRetries {
		status = models.OpStatusFailedPermanent
	}
	if _, err := r.db.ExecContext(
		ctx,
		`UPDATE sync_queue SET retry_count = ?, status = ? WHERE id = ?`,
		retries,
		status,
		opID,
	); err != nil {
		return fmt.Errorf("record failure of %q: %w", opID, err)
	}
	if status == models.OpStatusFailedPermanent {
		return fmt.Errorf("operation %q: %w", opID, ErrQueueExhausted)
	}
	return nil
}

// PendingCount is the non-blocking status indicator shown to the user.
func (r *QueueRepo) PendingCount(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE status = ?`,
		models.OpStatusPending,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending sync operations: %w", err)
	}
	return n, nil
}
