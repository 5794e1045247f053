// Package syncer drains the local operation queue against the remote store
// and keeps the local snapshot in line with confirmed remote state. Delivery
// is at-least-once; every remote handler is idempotent, so the combination
// approximates exactly-once effect.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/navid4x/ghesta/internal/models"
	"github.com/navid4x/ghesta/internal/remote"
	"github.com/navid4x/ghesta/internal/storage"
)

// RemoteStore is the slice of the remote contract the reconciler needs.
// *remote.Client satisfies it.
type RemoteStore interface {
	CreateInstallment(ctx context.Context, opID string, inst models.Installment) error
	UpdateInstallment(ctx context.Context, opID string, inst models.Installment) error
	SetPaymentState(ctx context.Context, opID string, p models.TogglePayload) error
	SoftDeleteInstallment(ctx context.Context, opID, installmentID string, deletedAt time.Time) error
	RestoreInstallment(ctx context.Context, opID, installmentID string) error
	HardDeleteInstallment(ctx context.Context, opID, installmentID string) error
	ListInstallments(ctx context.Context, userID string, opts remote.ListOptions) ([]models.Installment, error)
}

// DrainResult summarizes one pass over the queue.
type DrainResult struct {
	Applied   int
	Failed    int
	Skipped   int
	Exhausted int // operations that crossed into failed_permanent this pass
}

type Reconciler struct {
	queue *storage.QueueRepo
	store RemoteStore
}

func NewReconciler(queue *storage.QueueRepo, store RemoteStore) *Reconciler {
	return &Reconciler{queue: queue, store: store}
}

// Drain applies pending operations strictly in FIFO order. When an operation
// fails, later operations targeting the same entity are skipped for this
// pass so per-entity ordering survives (an update never lands before its
// create); operations on other entities continue. Interrupting a drain is
// safe: the queue is persistent and the next pass resumes from it.
func (r *Reconciler) Drain(ctx context.Context) (DrainResult, error) {
	ops, err := r.queue.Pending(ctx)
	if err != nil {
		return DrainResult{}, err
	}

	var result DrainResult
	failedEntities := make(map[string]bool)
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if failedEntities[op.EntityID] {
			result.Skipped++
			continue
		}

		if err := r.apply(ctx, op); err != nil {
			result.Failed++
			failedEntities[op.EntityID] = true
			if recErr := r.queue.RecordFailure(ctx, op.ID); recErr != nil {
				if errors.Is(recErr, storage.ErrQueueExhausted) {
					result.Exhausted++
					continue
				}
				return result, recErr
			}
			continue
		}

		if err := r.queue.Remove(ctx, op.ID); err != nil {
			return result, err
		}
		result.Applied++
	}
	return result, nil
}

func (r *Reconciler) apply(ctx context.Context, op models.SyncOperation) error {
	switch op.Kind {
	case models.OpCreate, models.OpUpdate:
		var inst models.Installment
		if err := json.Unmarshal(op.Payload, &inst); err != nil {
			return fmt.Errorf("decode %s payload of %q: %w", op.Kind, op.ID, err)
		}
		if op.Kind == models.OpCreate {
			return r.store.CreateInstallment(ctx, op.ID, inst)
		}
		return r.store.UpdateInstallment(ctx, op.ID, inst)

	case models.OpTogglePayment:
		var payload models.TogglePayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("decode toggle payload of %q: %w", op.ID, err)
		}
		return r.store.SetPaymentState(ctx, op.ID, payload)

	case models.OpSoftDelete:
		var payload struct {
			DeletedAt time.Time `json:"deleted_at"`
		}
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("decode soft delete payload of %q: %w", op.ID, err)
		}
		return r.store.SoftDeleteInstallment(ctx, op.ID, op.EntityID, payload.DeletedAt)

	case models.OpRestore:
		return r.store.RestoreInstallment(ctx, op.ID, op.EntityID)

	case models.OpHardDelete:
		return r.store.HardDeleteInstallment(ctx, op.ID, op.EntityID)

	default:
		return fmt.Errorf("unknown operation kind %q in %q", op.Kind, op.ID)
	}
}
