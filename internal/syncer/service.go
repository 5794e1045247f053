package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/navid4x/ghesta/internal/jalali"
	"github.com/navid4x/ghesta/internal/models"
	"github.com/navid4x/ghesta/internal/remote"
	"github.com/navid4x/ghesta/internal/schedule"
	"github.com/navid4x/ghesta/internal/storage"
)

// Service is the local-first facade the UI talks to. Every mutation writes
// the local snapshot first and enqueues a sync operation speculatively;
// remote errors never block local reads or writes.
type Service struct {
	installments *storage.InstallmentsRepo
	queue        *storage.QueueRepo
	store        RemoteStore
	now          func() time.Time
}

func NewService(installments *storage.InstallmentsRepo, queue *storage.QueueRepo, store RemoteStore) *Service {
	return &Service{
		installments: installments,
		queue:        queue,
		store:        store,
		now:          time.Now,
	}
}

// CreateParams is the user input for a new installment plan.
type CreateParams struct {
	UserID       string
	Creditor     string
	Description  string
	TotalAmount  int64
	StartJalali  string
	Count        int
	Recurrence   models.Recurrence
	ReminderDays int
	Notes        string
}

// Load returns the user's installments, serving the local cache while it is
// fresh. On a stale or absent cache it reloads from remote and replaces the
// snapshot; if the remote is unreachable the stale snapshot is returned
// instead, flagged by fromCache.
func (s *Service) Load(ctx context.Context, userID string) (installments []models.Installment, fromCache bool, err error) {
	cached, fetchedAt, found, err := s.installments.Snapshot(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if found && storage.CacheFresh(fetchedAt, s.now()) {
		return cached, true, nil
	}

	fetched, remoteErr := s.store.ListInstallments(ctx, userID, remote.ListOptions{IncludeDeleted: true})
	if remoteErr != nil {
		if found {
			return cached, true, nil
		}
		return nil, false, fmt.Errorf("load installments for %q: %w", userID, remoteErr)
	}

	if err := s.installments.ReplaceSnapshot(ctx, userID, fetched, s.now()); err != nil {
		return nil, false, err
	}
	return fetched, false, nil
}

// Refresh drops the cache stamp and reloads from remote, bypassing the
// freshness window.
func (s *Service) Refresh(ctx context.Context, userID string) ([]models.Installment, bool, error) {
	if err := s.installments.Invalidate(ctx, userID); err != nil {
		return nil, false, err
	}
	return s.Load(ctx, userID)
}

// Create builds the installment with its generated schedule, persists it
// locally, and queues the remote create.
func (s *Service) Create(ctx context.Context, params CreateParams) (models.Installment, error) {
	if !params.Recurrence.Valid() {
		return models.Installment{}, fmt.Errorf("unknown recurrence %q", params.Recurrence)
	}
	count := params.Count
	if params.Recurrence == models.RecurrenceNever {
		count = 1
	}
	if count < 1 {
		return models.Installment{}, fmt.Errorf("installment count %d must be at least 1", params.Count)
	}

	start, err := jalali.Parse(params.StartJalali)
	if err != nil {
		return models.Installment{}, fmt.Errorf("start date: %w", err)
	}
	gy, gm, gd, err := jalali.ToGregorian(start.Year, start.Month, start.Day)
	if err != nil {
		return models.Installment{}, err
	}

	amount := models.PerInstallmentAmount(params.TotalAmount, count, params.Recurrence)
	payments, err := schedule.Generate(start.Format(), count, params.Recurrence, amount)
	if err != nil {
		return models.Installment{}, err
	}

	now := s.now().UTC()
	inst := models.Installment{
		ID:                 uuid.NewString(),
		UserID:             params.UserID,
		Creditor:           params.Creditor,
		Description:        params.Description,
		TotalAmount:        params.TotalAmount,
		StartDateGregorian: fmt.Sprintf("%04d-%02d-%02d", gy, gm, gd),
		StartDateJalali:    start.Format(),
		InstallmentCount:   count,
		Recurrence:         params.Recurrence,
		InstallmentAmount:  amount,
		Payments:           payments,
		ReminderDays:       params.ReminderDays,
		Notes:              params.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.installments.Upsert(ctx, inst); err != nil {
		return models.Installment{}, err
	}
	if err := s.enqueue(ctx, models.OpCreate, inst.ID, inst); err != nil {
		return models.Installment{}, err
	}
	return inst, nil
}

// Update applies edited plan parameters, reconciling the schedule against
// the existing payments so paid history survives, and queues the remote
// update.
func (s *Service) Update(ctx context.Context, installmentID string, params CreateParams) (models.Installment, error) {
	inst, found, err := s.installments.Get(ctx, installmentID)
	if err != nil {
		return models.Installment{}, err
	}
	if !found {
		return models.Installment{}, fmt.Errorf("installment %q not found", installmentID)
	}
	if !params.Recurrence.Valid() {
		return models.Installment{}, fmt.Errorf("unknown recurrence %q", params.Recurrence)
	}
	count := params.Count
	if params.Recurrence == models.RecurrenceNever {
		count = 1
	}

	start, err := jalali.Parse(params.StartJalali)
	if err != nil {
		return models.Installment{}, fmt.Errorf("start date: %w", err)
	}
	gy, gm, gd, err := jalali.ToGregorian(start.Year, start.Month, start.Day)
	if err != nil {
		return models.Installment{}, err
	}

	amount := models.PerInstallmentAmount(params.TotalAmount, count, params.Recurrence)
	payments, err := schedule.Reconcile(inst.Payments, start.Format(), count, params.Recurrence, amount)
	if err != nil {
		return models.Installment{}, err
	}

	inst.Creditor = params.Creditor
	inst.Description = params.Description
	inst.TotalAmount = params.TotalAmount
	inst.StartDateGregorian = fmt.Sprintf("%04d-%02d-%02d", gy, gm, gd)
	inst.StartDateJalali = start.Format()
	inst.InstallmentCount = count
	inst.Recurrence = params.Recurrence
	inst.InstallmentAmount = amount
	inst.Payments = payments
	inst.ReminderDays = params.ReminderDays
	inst.Notes = params.Notes
	inst.UpdatedAt = s.now().UTC()

	if err := s.installments.Upsert(ctx, inst); err != nil {
		return models.Installment{}, err
	}
	if err := s.enqueue(ctx, models.OpUpdate, inst.ID, inst); err != nil {
		return models.Installment{}, err
	}
	return inst, nil
}

// TogglePayment flips a payment's paid flag, stamping or clearing the paid
// timestamp. The queued operation carries the absolute target state so the
// remote side stays idempotent.
func (s *Service) TogglePayment(ctx context.Context, installmentID, paymentID string) (models.Payment, error) {
	inst, found, err := s.installments.Get(ctx, installmentID)
	if err != nil {
		return models.Payment{}, err
	}
	if !found {
		return models.Payment{}, fmt.Errorf("installment %q not found", installmentID)
	}

	var target *models.Payment
	for i := range inst.Payments {
		if inst.Payments[i].ID == paymentID {
			target = &inst.Payments[i]
			break
		}
	}
	if target == nil {
		return models.Payment{}, fmt.Errorf("payment %q not found under installment %q", paymentID, installmentID)
	}

	target.IsPaid = !target.IsPaid
	if target.IsPaid {
		paidAt := s.now().UTC()
		target.PaidAt = &paidAt
	} else {
		target.PaidAt = nil
	}

	if err := s.installments.SetPaymentState(ctx, installmentID, paymentID, target.IsPaid, target.PaidAt); err != nil {
		return models.Payment{}, err
	}
	payload := models.TogglePayload{
		InstallmentID: installmentID,
		PaymentID:     paymentID,
		IsPaid:        target.IsPaid,
		PaidAt:        target.PaidAt,
	}
	if err := s.enqueue(ctx, models.OpTogglePayment, installmentID, payload); err != nil {
		return models.Payment{}, err
	}
	return *target, nil
}

// SoftDelete hides an installment locally and queues the remote soft
// delete. The record stays restorable for the retention window.
func (s *Service) SoftDelete(ctx context.Context, installmentID string) error {
	deletedAt := s.now().UTC()
	if err := s.installments.SoftDelete(ctx, installmentID, deletedAt); err != nil {
		return err
	}
	payload := map[string]any{"deleted_at": deletedAt.Format(time.RFC3339Nano)}
	return s.enqueue(ctx, models.OpSoftDelete, installmentID, payload)
}

// Restore clears a soft delete locally and queues the remote restore.
func (s *Service) Restore(ctx context.Context, installmentID string) error {
	if err := s.installments.Restore(ctx, installmentID); err != nil {
		return err
	}
	return s.enqueue(ctx, models.OpRestore, installmentID, nil)
}

// HardDelete purges an installment locally and queues the remote purge.
func (s *Service) HardDelete(ctx context.Context, installmentID string) error {
	if err := s.installments.HardDelete(ctx, installmentID); err != nil {
		return err
	}
	return s.enqueue(ctx, models.OpHardDelete, installmentID, nil)
}

// PendingCount is the queue depth surfaced as the sync status indicator.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.queue.PendingCount(ctx)
}

// PermanentFailures lists operations that exhausted their retries. They
// require an explicit Acknowledge and are never discarded silently.
func (s *Service) PermanentFailures(ctx context.Context) ([]models.SyncOperation, error) {
	return s.queue.PermanentFailures(ctx)
}

// Acknowledge removes a permanently failed operation after the user has
// seen it.
func (s *Service) Acknowledge(ctx context.Context, opID string) error {
	return s.queue.Acknowledge(ctx, opID)
}

func (s *Service) enqueue(ctx context.Context, kind models.OperationKind, entityID string, payload any) error {
	entityKind := models.EntityInstallment
	if kind == models.OpTogglePayment {
		// Toggles target a payment row, but EntityID stays the parent
		// installment so the queue orders them with its other mutations.
		entityKind = models.EntityPayment
	}
	op := models.SyncOperation{
		ID:         uuid.NewString(),
		Kind:       kind,
		EntityKind: entityKind,
		EntityID:   entityID,
		CreatedAt:  s.now().UTC(),
		Status:     models.OpStatusPending,
	}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload for %q: %w", kind, entityID, err)
		}
		op.Payload = encoded
	}
	return s.queue.Append(ctx, op)
}
