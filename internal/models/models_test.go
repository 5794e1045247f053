package models

import (
	"testing"
	"time"
)

func TestPerInstallmentAmountRoundsUp(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		count      int
		recurrence Recurrence
		want       int64
	}{
		{"even split", 1200, 12, RecurrenceMonthly, 100},
		{"remainder rounds up", 1000, 3, RecurrenceMonthly, 334},
		{"never carries full total", 1000, 12, RecurrenceNever, 1000},
		{"single installment", 999, 1, RecurrenceMonthly, 999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PerInstallmentAmount(tt.total, tt.count, tt.recurrence)
			if got != tt.want {
				t.Fatalf(
					"PerInstallmentAmount(%d, %d, %q) = %d, want %d",
					tt.total, tt.count, tt.recurrence, got, tt.want,
				)
			}
		})
	}
}

func TestRecurrenceValid(t *testing.T) {
	for _, r := range []Recurrence{RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly, RecurrenceNever} {
		if !r.Valid() {
			t.Fatalf("Recurrence(%q).Valid() = false, want true", r)
		}
	}
	if Recurrence("fortnightly").Valid() {
		t.Fatal("Recurrence(\"fortnightly\").Valid() = true, want false")
	}
}

func TestLifecycleFromDeletedAt(t *testing.T) {
	now := time.Now()

	inst := Installment{}
	if got := inst.Lifecycle(); got != LifecycleActive {
		t.Fatalf("Lifecycle() = %q, want %q", got, LifecycleActive)
	}
	inst.DeletedAt = &now
	if got := inst.Lifecycle(); got != LifecycleSoftDeleted {
		t.Fatalf("Lifecycle() = %q, want %q", got, LifecycleSoftDeleted)
	}

	pay := Payment{DeletedAt: &now}
	if got := pay.Lifecycle(); got != LifecycleSoftDeleted {
		t.Fatalf("payment Lifecycle() = %q, want %q", got, LifecycleSoftDeleted)
	}
}
