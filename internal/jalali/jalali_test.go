package jalali

import (
	"errors"
	"testing"
)

func TestToGregorianKnownDates(t *testing.T) {
	tests := []struct {
		name       string
		jy, jm, jd int
		gy, gm, gd int
	}{
		{"nowruz 1403", 1403, 1, 1, 2024, 3, 20},
		{"nowruz 1400", 1400, 1, 1, 2021, 3, 21},
		{"leap esfand 1399", 1399, 12, 30, 2021, 3, 20},
		{"leap esfand 1403", 1403, 12, 30, 2025, 3, 20},
		{"last day 1402", 1402, 12, 29, 2024, 3, 19},
		{"mid year", 1403, 6, 31, 2024, 9, 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gy, gm, gd, err := ToGregorian(tt.jy, tt.jm, tt.jd)
			if err != nil {
				t.Fatalf("ToGregorian(%d, %d, %d) unexpected error: %v", tt.jy, tt.jm, tt.jd, err)
			}
			if gy != tt.gy || gm != tt.gm || gd != tt.gd {
				t.Fatalf(
					"ToGregorian(%d, %d, %d) = %d-%d-%d, want %d-%d-%d",
					tt.jy, tt.jm, tt.jd, gy, gm, gd, tt.gy, tt.gm, tt.gd,
				)
			}
		})
	}
}

func TestFromGregorianKnownDates(t *testing.T) {
	jy, jm, jd, err := FromGregorian(2024, 3, 20)
	if err != nil {
		t.Fatalf("FromGregorian(2024, 3, 20) unexpected error: %v", err)
	}
	if jy != 1403 || jm != 1 || jd != 1 {
		t.Fatalf("FromGregorian(2024, 3, 20) = %d/%d/%d, want 1403/1/1", jy, jm, jd)
	}
}

func TestConversionRoundTrip(t *testing.T) {
	for jy := 1390; jy <= 1410; jy++ {
		for jm := 1; jm <= 12; jm++ {
			for jd := 1; jd <= MonthDays(jy, jm); jd++ {
				gy, gm, gd, err := ToGregorian(jy, jm, jd)
				if err != nil {
					t.Fatalf("ToGregorian(%d, %d, %d) unexpected error: %v", jy, jm, jd, err)
				}
				ry, rm, rd, err := FromGregorian(gy, gm, gd)
				if err != nil {
					t.Fatalf("FromGregorian(%d, %d, %d) unexpected error: %v", gy, gm, gd, err)
				}
				if ry != jy || rm != jm || rd != jd {
					t.Fatalf(
						"round trip %d/%d/%d -> %d-%d-%d -> %d/%d/%d",
						jy, jm, jd, gy, gm, gd, ry, rm, rd,
					)
				}
			}
		}
	}
}

func TestToGregorianRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name       string
		jy, jm, jd int
	}{
		{"month zero", 1403, 0, 1},
		{"month thirteen", 1403, 13, 1},
		{"day zero", 1403, 1, 0},
		{"day 31 in mehr", 1403, 7, 31},
		{"esfand 30 in common year", 1402, 12, 30},
		{"year out of range", 5000, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := ToGregorian(tt.jy, tt.jm, tt.jd)
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("ToGregorian(%d, %d, %d) error = %v, want ErrInvalidDate", tt.jy, tt.jm, tt.jd, err)
			}
		})
	}
}

func TestMonthDaysPattern(t *testing.T) {
	for jy := 1390; jy <= 1410; jy++ {
		for jm := 1; jm <= 6; jm++ {
			if got := MonthDays(jy, jm); got != 31 {
				t.Fatalf("MonthDays(%d, %d) = %d, want 31", jy, jm, got)
			}
		}
		for jm := 7; jm <= 11; jm++ {
			if got := MonthDays(jy, jm); got != 30 {
				t.Fatalf("MonthDays(%d, %d) = %d, want 30", jy, jm, got)
			}
		}
		got := MonthDays(jy, 12)
		if got != 29 && got != 30 {
			t.Fatalf("MonthDays(%d, 12) = %d, want 29 or 30", jy, got)
		}
		if (got == 30) != IsLeapYear(jy) {
			t.Fatalf("MonthDays(%d, 12) = %d disagrees with IsLeapYear = %v", jy, got, IsLeapYear(jy))
		}
	}
}

func TestIsLeapYearCycle(t *testing.T) {
	leaps := map[int]bool{
		1387: true,
		1391: true,
		1395: true,
		1399: true,
		1402: false,
		1403: true,
		1404: false,
		1407: false,
		1408: true,
	}
	for jy, want := range leaps {
		if got := IsLeapYear(jy); got != want {
			t.Fatalf("IsLeapYear(%d) = %v, want %v", jy, got, want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	d, err := Parse("1403/01/09")
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if d.Year != 1403 || d.Month != 1 || d.Day != 9 {
		t.Fatalf("Parse() = %+v, want 1403/1/9", d)
	}
	if got := d.Format(); got != "1403/01/09" {
		t.Fatalf("Format() = %q, want %q", got, "1403/01/09")
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	for _, input := range []string{"", "1403-01-09", "1403/01", "1403/01/09/01", "x/y/z", "1403/13/01"} {
		if _, err := Parse(input); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("Parse(%q) error = %v, want ErrInvalidDate", input, err)
		}
	}
}

func TestDateBefore(t *testing.T) {
	a := Date{Year: 1403, Month: 6, Day: 31}
	b := Date{Year: 1403, Month: 7, Day: 1}
	if !a.Before(b) {
		t.Fatalf("%s.Before(%s) = false, want true", a.Format(), b.Format())
	}
	if b.Before(a) {
		t.Fatalf("%s.Before(%s) = true, want false", b.Format(), a.Format())
	}
	if a.Before(a) {
		t.Fatal("date reported as before itself")
	}
}
