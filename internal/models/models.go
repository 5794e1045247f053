// Package models defines the domain types shared across the local store,
// the sync queue, and the remote client.
package models

import (
	"encoding/json"
	"time"
)

// Recurrence is the step unit between consecutive payments of a plan.
type Recurrence string

const (
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
	RecurrenceNever   Recurrence = "never"
)

// Valid reports whether r is a known recurrence unit.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly, RecurrenceNever:
		return true
	}
	return false
}

// Lifecycle is the explicit record state: active, hidden behind a soft
// delete, or permanently purged.
type Lifecycle string

const (
	LifecycleActive      Lifecycle = "active"
	LifecycleSoftDeleted Lifecycle = "soft_deleted"
	LifecyclePurged      Lifecycle = "purged"
)

// Payment is one scheduled due event, owned exclusively by its parent
// Installment. Both date forms must always agree under calendar conversion.
type Payment struct {
	ID                string     `json:"id"`
	DueDateGregorian  string     `json:"due_date_gregorian"`
	DueDateJalali     string     `json:"due_date_jalali"`
	Amount            int64      `json:"amount"`
	IsPaid            bool       `json:"is_paid"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
}

// Lifecycle returns the payment's record state.
func (p Payment) Lifecycle() Lifecycle {
	if p.DeletedAt != nil {
		return LifecycleSoftDeleted
	}
	return LifecycleActive
}

// Installment is a debt plan with its ordered payment schedule.
// Due dates in Payments are strictly increasing in calendar order.
type Installment struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	Creditor           string     `json:"creditor"`
	Description        string     `json:"description"`
	TotalAmount        int64      `json:"total_amount"`
	StartDateGregorian string     `json:"start_date_gregorian"`
	StartDateJalali    string     `json:"start_date_jalali"`
	InstallmentCount   int        `json:"installment_count"`
	Recurrence         Recurrence `json:"recurrence"`
	InstallmentAmount  int64      `json:"installment_amount"`
	Payments           []Payment  `json:"payments"`
	ReminderDays       int        `json:"reminder_days"`
	Notes              string     `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
}

// Lifecycle returns the installment's record state.
func (i Installment) Lifecycle() Lifecycle {
	if i.DeletedAt != nil {
		return LifecycleSoftDeleted
	}
	return LifecycleActive
}

// PerInstallmentAmount splits total across count installments, rounding up
// so the schedule never undershoots the total. A plan that never recurs has
// a single installment carrying the whole amount.
func PerInstallmentAmount(total int64, count int, recurrence Recurrence) int64 {
	if recurrence == RecurrenceNever || count <= 1 {
		return total
	}
	return (total + int64(count) - 1) / int64(count)
}

// OperationKind is the mutation kind carried by a queued sync operation.
type OperationKind string

const (
	OpCreate        OperationKind = "create"
	OpUpdate        OperationKind = "update"
	OpTogglePayment OperationKind = "toggle_payment"
	OpSoftDelete    OperationKind = "soft_delete"
	OpHardDelete    OperationKind = "hard_delete"
	OpRestore       OperationKind = "restore"
)

// EntityKind names the record type a sync operation targets.
type EntityKind string

const (
	EntityInstallment EntityKind = "installment"
	EntityPayment     EntityKind = "payment"
)

// Queue status values for SyncOperation.
const (
	OpStatusPending         = "pending"
	OpStatusFailedPermanent = "failed_permanent"
)

// SyncOperation is a queued local mutation awaiting remote application.
// The ID doubles as the idempotency key sent to the remote store, so a
// retried delivery of the same operation is a no-op there.
type SyncOperation struct {
	ID         string          `json:"id"`
	Kind       OperationKind   `json:"kind"`
	EntityKind EntityKind      `json:"entity_kind"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	RetryCount int             `json:"retry_count"`
	Status     string          `json:"status"`
}

// TogglePayload is the payload of a toggle_payment operation. It carries the
// absolute target state rather than a delta so remote application is
// idempotent.
type TogglePayload struct {
	InstallmentID string     `json:"installment_id"`
	PaymentID     string     `json:"payment_id"`
	IsPaid        bool       `json:"is_paid"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}
