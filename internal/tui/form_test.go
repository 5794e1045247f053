package tui

import (
	"testing"

	"github.com/navid4x/ghesta/internal/models"
)

func filledForm() formState {
	f := newFormState()
	f.inputs[0].SetValue("بانک ملی")
	f.inputs[1].SetValue("laptop")
	f.inputs[2].SetValue("۱۲٬۰۰۰٬۰۰۰")
	f.inputs[3].SetValue("1403/01/01")
	f.inputs[4].SetValue("12")
	f.inputs[5].SetValue("5")
	return f
}

func TestFormParamsParsesPersianCurrency(t *testing.T) {
	f := filledForm()

	params, err := f.params("user@example.com")
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if params.TotalAmount != 12000000 {
		t.Fatalf("got amount %d, want 12000000", params.TotalAmount)
	}
	if params.Count != 12 || params.Recurrence != models.RecurrenceMonthly {
		t.Fatalf("got count %d recurrence %q, want 12 monthly", params.Count, params.Recurrence)
	}
	if params.ReminderDays != 5 {
		t.Fatalf("got reminder %d, want 5", params.ReminderDays)
	}
	if params.UserID != "user@example.com" {
		t.Fatalf("got user %q", params.UserID)
	}
}

func TestFormParamsRejectsBadStartDate(t *testing.T) {
	f := filledForm()
	f.inputs[3].SetValue("1403/13/01")

	if _, err := f.params("user@example.com"); err == nil {
		t.Fatal("expected error for month 13")
	}
}

func TestFormParamsForcesSinglePaymentForNever(t *testing.T) {
	f := filledForm()
	f.inputs[4].SetValue("")
	for f.recurrence() != models.RecurrenceNever {
		f.recurrenceIdx++
	}

	params, err := f.params("user@example.com")
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if params.Count != 1 {
		t.Fatalf("got count %d, want 1 for one-off", params.Count)
	}
}

func TestFormParamsRequiresCreditor(t *testing.T) {
	f := filledForm()
	f.inputs[0].SetValue("  ")

	if _, err := f.params("user@example.com"); err == nil {
		t.Fatal("expected error for missing creditor")
	}
}
