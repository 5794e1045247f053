package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/navid4x/ghesta/internal/models"
)

// CacheDuration bounds how long a local snapshot is served without a remote
// reload.
const CacheDuration = 30 * time.Second

// CacheFresh reports whether a snapshot stamped at fetchedAt is still
// servable without hitting the remote store.
func CacheFresh(fetchedAt time.Time, now time.Time) bool {
	return now.Sub(fetchedAt) <= CacheDuration
}

type InstallmentsRepo struct {
	db *sql.DB
}

func NewInstallmentsRepo(db *sql.DB) *InstallmentsRepo {
	return &InstallmentsRepo{db: db}
}

// Snapshot returns the cached installments for a user together with the
// cache stamp. found is false when no snapshot has ever been stored.
func (r *InstallmentsRepo) Snapshot(ctx context.Context, userID string) (installments []models.Installment, fetchedAt time.Time, found bool, err error) {
	var stamp string
	err = r.db.QueryRowContext(ctx, `SELECT fetched_at FROM cache_state WHERE user_id = ?`, userID).Scan(&stamp)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("query cache state for %q: %w", userID, err)
	}
	fetchedAt, err = time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("parse cache stamp for %q: %w", userID, err)
	}

	installments, err = r.listByUser(ctx, userID)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	return installments, fetchedAt, true, nil
}

// ReplaceSnapshot replaces a user's local installments with the given set
// and stamps the cache with fetchedAt.
func (r *InstallmentsRepo) ReplaceSnapshot(ctx context.Context, userID string, installments []models.Installment, fetchedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin installments snapshot transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(
		ctx,
		`DELETE FROM payments WHERE installment_id IN (SELECT id FROM installments WHERE user_id = ?)`,
		userID,
	); err != nil {
		return fmt.Errorf("clear payments for %q: %w", userID, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM installments WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear installments for %q: %w", userID, err)
	}

	for _, inst := range installments {
		if err = upsertInstallmentTx(ctx, tx, inst); err != nil {
			return err
		}
	}

	stamp := fetchedAt.UTC().Format(time.RFC3339Nano)
	if _, err = tx.ExecContext(
		ctx,
		`INSERT INTO cache_state (user_id, fetched_at) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET fetched_at = excluded.fetched_at`,
		userID,
		stamp,
	); err != nil {
		return fmt.Errorf("stamp cache for %q: %w", userID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit installments snapshot transaction: %w", err)
	}
	return nil
}

// Invalidate drops the cache stamp so the next Snapshot read reports absent
// and the caller reloads from remote. The rows themselves stay readable for
// offline fallback.
func (r *InstallmentsRepo) Invalidate(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cache_state WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("invalidate cache for %q: %w", userID, err)
	}
	return nil
}

// Get returns a single installment with its payments in due-date order.
func (r *InstallmentsRepo) Get(ctx context.Context, id string) (models.Installment, bool, error) {
	row := r.db.QueryRowContext(ctx, selectInstallment+` WHERE id = ?`, id)
	inst, err := scanInstallment(row)
	if err == sql.ErrNoRows {
		return models.Installment{}, false, nil
	}
	if err != nil {
		return models.Installment{}, false, fmt.Errorf("query installment %q: %w", id, err)
	}
	if inst.Payments, err = r.paymentsFor(ctx, id); err != nil {
		return models.Installment{}, false, err
	}
	return inst, true, nil
}

// Upsert writes one installment and replaces its payment rows.
func (r *InstallmentsRepo) Upsert(ctx context.Context, inst models.Installment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin installment upsert transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = upsertInstallmentTx(ctx, tx, inst); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit installment upsert transaction: %w", err)
	}
	return nil
}

// SetPaymentState records the absolute paid state of one payment and bumps
// the parent's updated_at.
func (r *InstallmentsRepo) SetPaymentState(ctx context.Context, installmentID, paymentID string, isPaid bool, paidAt *time.Time) error {
	paid := 0
	if isPaid {
		paid = 1
	}
	var paidValue any
	if paidAt != nil {
		paidValue = paidAt.UTC().Format(time.RFC3339Nano)
	}

	res, err := r.db.ExecContext(
		ctx,
		`UPDATE payments SET is_paid = ?, paid_at = ? WHERE id = ? AND installment_id = ?`,
		paid,
		paidValue,
		paymentID,
		installmentID,
	)
	if err != nil {
		return fmt.Errorf("set payment %q state: %w", paymentID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("payment %q not found under installment %q", paymentID, installmentID)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := r.db.ExecContext(ctx, `UPDATE installments SET updated_at = ? WHERE id = ?`, now, installmentID); err != nil {
		return fmt.Errorf("touch installment %q: %w", installmentID, err)
	}
	return nil
}

// SoftDelete hides an installment behind a deletion timestamp.
func (r *InstallmentsRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	stamp := at.UTC().Format(time.RFC3339Nano)
	if _, err := r.db.ExecContext(
		ctx,
		`UPDATE installments SET deleted_at = ?, updated_at = ? WHERE id = ?`,
		stamp,
		stamp,
		id,
	); err != nil {
		return fmt.Errorf("soft delete installment %q: %w", id, err)
	}
	return nil
}

// Restore clears a soft deletion.
func (r *InstallmentsRepo) Restore(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := r.db.ExecContext(
		ctx,
		`UPDATE installments SET deleted_at = NULL, updated_at = ? WHERE id = ?`,
		now,
		id,
	); err != nil {
		return fmt.Errorf("restore installment %q: %w", id, err)
	}
	return nil
}

// HardDelete purges an installment and its payments permanently.
func (r *InstallmentsRepo) HardDelete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin hard delete transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM payments WHERE installment_id = ?`, id); err != nil {
		return fmt.Errorf("hard delete payments of %q: %w", id, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM installments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("hard delete installment %q: %w", id, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit hard delete transaction: %w", err)
	}
	return nil
}

// ListSoftDeletedBefore returns installments soft deleted at or before
// cutoff, for the retention sweep.
func (r *InstallmentsRepo) ListSoftDeletedBefore(ctx context.Context, cutoff time.Time) ([]models.Installment, error) {
	rows, err := r.db.QueryContext(
		ctx,
		selectInstallment+` WHERE deleted_at IS NOT NULL AND deleted_at <= ? ORDER BY deleted_at`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query soft deleted installments: %w", err)
	}
	defer rows.Close()

	var out []models.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan soft deleted installment: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read soft deleted installments: %w", err)
	}
	return out, nil
}

const selectInstallment = `
SELECT id, user_id, creditor, description, total_amount, start_date_gregorian,
       start_date_jalali, installment_count, recurrence, installment_amount,
       reminder_days, notes, created_at, updated_at, deleted_at
FROM installments`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstallment(row rowScanner) (models.Installment, error) {
	var inst models.Installment
	var createdAt, updatedAt string
	var deletedAt sql.NullString
	if err := row.Scan(
		&inst.ID,
		&inst.UserID,
		&inst.Creditor,
		&inst.Description,
		&inst.TotalAmount,
		&inst.StartDateGregorian,
		&inst.StartDateJalali,
		&inst.InstallmentCount,
		&inst.Recurrence,
		&inst.InstallmentAmount,
		&inst.ReminderDays,
		&inst.Notes,
		&createdAt,
		&updatedAt,
		&deletedAt,
	); err != nil {
		return models.Installment{}, err
	}

	var err error
	if inst.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return models.Installment{}, fmt.Errorf("parse created_at of %q: %w", inst.ID, err)
	}
	if inst.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return models.Installment{}, fmt.Errorf("parse updated_at of %q: %w", inst.ID, err)
	}
	if inst.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return models.Installment{}, fmt.Errorf("parse deleted_at of %q: %w", inst.ID, err)
	}
	return inst, nil
}

func (r *InstallmentsRepo) listByUser(ctx context.Context, userID string) ([]models.Installment, error) {
	rows, err := r.db.QueryContext(ctx, selectInstallment+` WHERE user_id = ? ORDER BY start_date_gregorian, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query installments for %q: %w", userID, err)
	}
	defer rows.Close()

	var out []models.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read installments for %q: %w", userID, err)
	}

	for i := range out {
		if out[i].Payments, err = r.paymentsFor(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *InstallmentsRepo) paymentsFor(ctx context.Context, installmentID string) ([]models.Payment, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, due_date_gregorian, due_date_jalali, amount, is_paid, paid_at, deleted_at
		 FROM payments WHERE installment_id = ? ORDER BY due_date_gregorian, id`,
		installmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query payments for %q: %w", installmentID, err)
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		var p models.Payment
		var paid int
		var paidAt, deletedAt sql.NullString
		if err := rows.Scan(&p.ID, &p.DueDateGregorian, &p.DueDateJalali, &p.Amount, &paid, &paidAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.IsPaid = paid == 1
		if p.PaidAt, err = parseNullTime(paidAt); err != nil {
			return nil, fmt.Errorf("parse paid_at of %q: %w", p.ID, err)
		}
		if p.DeletedAt, err = parseNullTime(deletedAt); err != nil {
			return nil, fmt.Errorf("parse deleted_at of %q: %w", p.ID, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read payments for %q: %w", installmentID, err)
	}
	return out, nil
}

func upsertInstallmentTx(ctx context.Context, tx *sql.Tx, inst models.Installment) error {
	var deletedValue any
	if inst.DeletedAt != nil {
		deletedValue = inst.DeletedAt.UTC().Format(time.RFC3339Nano)
	}

	const upsert = `
INSERT INTO installments (
	id, user_id, creditor, description, total_amount, start_date_gregorian,
	start_date_jalali, installment_count, recurrence, installment_amount,
	reminder_days, notes, created_at, updated_at, deleted_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	user_id = excluded.user_id,
	creditor = excluded.creditor,
	description = excluded.description,
	total_amount = excluded.total_amount,
	start_date_gregorian = excluded.start_date_gregorian,
	start_date_jalali = excluded.start_date_jalali,
	installment_count = excluded.installment_count,
	recurrence = excluded.recurrence,
	installment_amount = excluded.installment_amount,
	reminder_days = excluded.reminder_days,
	notes = excluded.notes,
	updated_at = excluded.updated_at,
	deleted_at = excluded.deleted_at
`
	if _, err := tx.ExecContext(
		ctx,
		upsert,
		inst.ID,
		inst.UserID,
		inst.Creditor,
		inst.Description,
		inst.TotalAmount,
		inst.StartDateGregorian,
		inst.StartDateJalali,
		inst.InstallmentCount,
		string(inst.Recurrence),
		inst.InstallmentAmount,
		inst.ReminderDays,
		inst.Notes,
		inst.CreatedAt.UTC().Format(time.RFC3339Nano),
		inst.UpdatedAt.UTC().Format(time.RFC3339Nano),
		deletedValue,
	); err != nil {
		return fmt.Errorf("upsert installment %q: %w", inst.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE installment_id = ?`, inst.ID); err != nil {
		return fmt.Errorf("replace payments of %q: %w", inst.ID, err)
	}
	for _, p := range inst.Payments {
		paid := 0
		if p.IsPaid {
			paid = 1
		}
		var paidValue, deletedPayment any
		if p.PaidAt != nil {
			paidValue = p.PaidAt.UTC().Format(time.RFC3339Nano)
		}
		if p.DeletedAt != nil {
			deletedPayment = p.DeletedAt.UTC().Format(time.RFC3339Nano)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO payments (id, installment_id, due_date_gregorian, due_date_jalali, amount, is_paid, paid_at, deleted_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID,
			inst.ID,
			p.DueDateGregorian,
			p.DueDateJalali,
			p.Amount,
			paid,
			paidValue,
			deletedPayment,
		); err != nil {
			return fmt.Errorf("insert payment %q of %q: %w", p.ID, inst.ID, err)
		}
	}
	return nil
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
