// Package schedule generates payment schedules from a start date and a
// recurrence unit, and reconciles an edited schedule against existing
// payments so paid history survives plan edits.
package schedule

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/navid4x/ghesta/internal/jalali"
	"github.com/navid4x/ghesta/internal/models"
)

// Generate produces the ordered payment list for a plan starting at the
// given Jalali date. A "never" recurrence yields exactly one payment at the
// start date regardless of count.
func Generate(startJalali string, count int, unit models.Recurrence, amount int64) ([]models.Payment, error) {
	dates, err := dueDates(startJalali, count, unit)
	if err != nil {
		return nil, err
	}

	payments := make([]models.Payment, 0, len(dates))
	for _, due := range dates {
		p, err := newPayment(due, amount)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// Reconcile recomputes the schedule for the new parameters and maps existing
// payments onto it positionally: the i-th new slot inherits the identifier,
// paid flag, and paid timestamp of the i-th existing payment in due-date
// order. Amount and due dates always come from the new schedule; slots past
// the existing list get fresh identifiers, unpaid.
//
// Identity is bound to position, not to the original due date. Inserting a
// payment mid-schedule therefore shifts paid history by one slot; tests pin
// this behavior.
func Reconcile(
	existing []models.Payment,
	startJalali string,
	count int,
	unit models.Recurrence,
	amount int64,
) ([]models.Payment, error) {
	dates, err := dueDates(startJalali, count, unit)
	if err != nil {
		return nil, err
	}

	ordered := make([]models.Payment, len(existing))
	copy(ordered, existing)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DueDateJalali < ordered[j].DueDateJalali
	})

	payments := make([]models.Payment, 0, len(dates))
	for i, due := range dates {
		p, err := newPayment(due, amount)
		if err != nil {
			return nil, err
		}
		if i < len(ordered) {
			p.ID = ordered[i].ID
			p.IsPaid = ordered[i].IsPaid
			p.PaidAt = ordered[i].PaidAt
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func dueDates(startJalali string, count int, unit models.Recurrence) ([]string, error) {
	if !unit.Valid() {
		return nil, fmt.Errorf("unknown recurrence %q", unit)
	}
	if unit == models.RecurrenceNever {
		count = 1
	}
	if count < 1 {
		return nil, fmt.Errorf("installment count %d must be at least 1", count)
	}
	if _, err := jalali.Parse(startJalali); err != nil {
		return nil, fmt.Errorf("schedule start date: %w", err)
	}

	dates := make([]string, 0, count)
	current := startJalali
	for i := 0; i < count; i++ {
		dates = append(dates, current)
		if i == count-1 {
			break
		}
		next, err := step(current, unit)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return dates, nil
}

func step(current string, unit models.Recurrence) (string, error) {
	switch unit {
	case models.RecurrenceDaily:
		return jalali.AddDays(current, 1)
	case models.RecurrenceWeekly:
		return jalali.AddDays(current, 7)
	case models.RecurrenceMonthly:
		return jalali.AddMonths(current, 1)
	case models.RecurrenceYearly:
		return jalali.AddYears(current, 1)
	default:
		return "", fmt.Errorf("recurrence %q has no step", unit)
	}
}

func newPayment(dueJalali string, amount int64) (models.Payment, error) {
	d, err := jalali.Parse(dueJalali)
	if err != nil {
		return models.Payment{}, err
	}
	gy, gm, gd, err := jalali.ToGregorian(d.Year, d.Month, d.Day)
	if err != nil {
		return models.Payment{}, err
	}
	return models.Payment{
		ID:               uuid.NewString(),
		DueDateGregorian: fmt.Sprintf("%04d-%02d-%02d", gy, gm, gd),
		DueDateJalali:    d.Format(),
		Amount:           amount,
	}, nil
}
