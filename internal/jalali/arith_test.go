package jalali

import (
	"errors"
	"testing"
)

func TestAddDays(t *testing.T) {
	tests := []struct {
		name  string
		start string
		n     int
		want  string
	}{
		{"within month", "1403/01/01", 7, "1403/01/08"},
		{"across month boundary", "1403/01/31", 1, "1403/02/01"},
		{"across 30-day month", "1403/07/30", 1, "1403/08/01"},
		{"across leap year end", "1403/12/30", 1, "1404/01/01"},
		{"across common year end", "1402/12/29", 1, "1403/01/01"},
		{"backwards", "1403/01/01", -1, "1402/12/29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AddDays(tt.start, tt.n)
			if err != nil {
				t.Fatalf("AddDays(%q, %d) unexpected error: %v", tt.start, tt.n, err)
			}
			if got != tt.want {
				t.Fatalf("AddDays(%q, %d) = %q, want %q", tt.start, tt.n, got, tt.want)
			}
		})
	}
}

func TestAddMonthsClampsDay(t *testing.T) {
	tests := []struct {
		name  string
		start string
		n     int
		want  string
	}{
		{"day 31 into 31-day month keeps day", "1403/01/31", 1, "1403/02/31"},
		{"day 31 into 30-day month clamps", "1403/06/31", 1, "1403/07/30"},
		{"day 30 into leap esfand keeps day", "1403/11/30", 1, "1403/12/30"},
		{"day 30 into common esfand clamps", "1402/11/30", 1, "1402/12/29"},
		{"across year boundary", "1403/12/01", 1, "1404/01/01"},
		{"twelve months", "1403/03/15", 12, "1404/03/15"},
		{"zero months", "1403/03/15", 0, "1403/03/15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AddMonths(tt.start, tt.n)
			if err != nil {
				t.Fatalf("AddMonths(%q, %d) unexpected error: %v", tt.start, tt.n, err)
			}
			if got != tt.want {
				t.Fatalf("AddMonths(%q, %d) = %q, want %q", tt.start, tt.n, got, tt.want)
			}
		})
	}
}

func TestAddYearsClampsLeapDay(t *testing.T) {
	got, err := AddYears("1403/12/30", 1)
	if err != nil {
		t.Fatalf("AddYears() unexpected error: %v", err)
	}
	if got != "1404/12/29" {
		t.Fatalf("AddYears(1403/12/30, 1) = %q, want %q", got, "1404/12/29")
	}

	got, err = AddYears("1403/05/10", 2)
	if err != nil {
		t.Fatalf("AddYears() unexpected error: %v", err)
	}
	if got != "1405/05/10" {
		t.Fatalf("AddYears(1403/05/10, 2) = %q, want %q", got, "1405/05/10")
	}
}

func TestArithmeticRejectsMalformedInput(t *testing.T) {
	if _, err := AddDays("1403-01-01", 1); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("AddDays() error = %v, want ErrInvalidDate", err)
	}
	if _, err := AddMonths("1403/07/31", 1); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("AddMonths() error = %v, want ErrInvalidDate", err)
	}
	if _, err := AddYears("", 1); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("AddYears() error = %v, want ErrInvalidDate", err)
	}
}
