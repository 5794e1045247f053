// Package jalali implements Jalali (Persian) calendar arithmetic: conversion
// to and from the Gregorian calendar, month lengths, leap years, and
// date-string math on "YYYY/MM/DD" values.
//
// Leap years follow the 33-year cyclical approximation of the Jalali
// calendar, not astronomical observation. The approximation is exact for
// roughly 1178-1633 AP, which covers every date this application handles.
package jalali

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate reports calendar input outside the valid range.
var ErrInvalidDate = errors.New("invalid date")

// Supported year range of the integer conversion algorithm.
const (
	minYear = 1
	maxYear = 3177
)

// Date is a Jalali calendar date.
type Date struct {
	Year  int
	Month int
	Day   int
}

// IsLeapYear reports whether jy is a leap year under the 33-year cycle.
func IsLeapYear(jy int) bool {
	return (25*jy+11)%33 < 8
}

// MonthDays returns the number of days in the given Jalali month.
// Months 1-6 have 31 days, 7-11 have 30, and Esfand has 29 or 30.
func MonthDays(jy, jm int) int {
	switch {
	case jm >= 1 && jm <= 6:
		return 31
	case jm >= 7 && jm <= 11:
		return 30
	case jm == 12:
		if IsLeapYear(jy) {
			return 30
		}
		return 29
	default:
		return 0
	}
}

func validate(jy, jm, jd int) error {
	if jy < minYear || jy > maxYear {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidDate, jy)
	}
	if jm < 1 || jm > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidDate, jm)
	}
	if jd < 1 || jd > MonthDays(jy, jm) {
		return fmt.Errorf("%w: day %d out of range for %04d/%02d", ErrInvalidDate, jd, jy, jm)
	}
	return nil
}

// ToGregorian converts a Jalali date to its Gregorian equivalent.
func ToGregorian(jy, jm, jd int) (gy, gm, gd int, err error) {
	if err := validate(jy, jm, jd); err != nil {
		return 0, 0, 0, err
	}

	y := jy + 1595
	days := -355668 + 365*y + (y/33)*8 + ((y%33)+3)/4 + jd
	if jm < 7 {
		days += (jm - 1) * 31
	} else {
		days += (jm-7)*30 + 186
	}

	gy = 400 * (days / 146097)
	days %= 146097
	if days > 36524 {
		days--
		gy += 100 * (days / 36524)
		days %= 36524
		if days >= 365 {
			days++
		}
	}
	gy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		gy += (days - 1) / 365
		days = (days - 1) % 365
	}
	gd = days + 1

	leap := 0
	if (gy%4 == 0 && gy%100 != 0) || gy%400 == 0 {
		leap = 1
	}
	monthLengths := [13]int{0, 31, 28 + leap, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	gm = 1
	for gm <= 12 && gd > monthLengths[gm] {
		gd -= monthLengths[gm]
		gm++
	}
	return gy, gm, gd, nil
}

// FromGregorian converts a Gregorian date to its Jalali equivalent.
func FromGregorian(gy, gm, gd int) (jy, jm, jd int, err error) {
	if gm < 1 || gm > 12 || gd < 1 || gd > 31 {
		return 0, 0, 0, fmt.Errorf("%w: gregorian %04d-%02d-%02d", ErrInvalidDate, gy, gm, gd)
	}

	daysBeforeMonth := [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}
	var days int
	if gy > 1600 {
		jy = 979
		gy -= 1600
	} else {
		jy = 0
		gy -= 621
	}
	gy2 := gy
	if gm > 2 {
		gy2 = gy + 1
	}
	days = 365*gy + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400 - 80 + gd + daysBeforeMonth[gm-1]

	jy += 33 * (days / 12053)
	days %= 12053
	jy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}
	if days < 186 {
		jm = 1 + days/31
		jd = 1 + days%31
	} else {
		jm = 7 + (days-186)/30
		jd = 1 + (days-186)%30
	}
	if err := validate(jy, jm, jd); err != nil {
		return 0, 0, 0, err
	}
	return jy, jm, jd, nil
}

// FromTime converts the wall-clock date of t to a Jalali Date.
func FromTime(t time.Time) (Date, error) {
	jy, jm, jd, err := FromGregorian(t.Year(), int(t.Month()), t.Day())
	if err != nil {
		return Date{}, err
	}
	return Date{Year: jy, Month: jm, Day: jd}, nil
}

// Time returns the Gregorian midnight (local wall clock) for d.
func (d Date) Time() (time.Time, error) {
	gy, gm, gd, err := ToGregorian(d.Year, d.Month, d.Day)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(gy, time.Month(gm), gd, 0, 0, 0, 0, time.Local), nil
}

// Format renders d as a zero-padded "YYYY/MM/DD" string.
func (d Date) Format() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// Valid reports whether d is a real calendar date.
func (d Date) Valid() bool {
	return validate(d.Year, d.Month, d.Day) == nil
}

// Before reports whether d is earlier than other in calendar order.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// Parse parses a zero-padded or plain "YYYY/MM/DD" Jalali date string.
func Parse(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q is not YYYY/MM/DD", ErrInvalidDate, s)
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q is not YYYY/MM/DD", ErrInvalidDate, s)
		}
		nums[i] = n
	}
	d := Date{Year: nums[0], Month: nums[1], Day: nums[2]}
	if err := validate(d.Year, d.Month, d.Day); err != nil {
		return Date{}, err
	}
	return d, nil
}

// Today returns the current local date in the Jalali calendar.
func Today() Date {
	d, err := FromTime(time.Now())
	if err != nil {
		// Unreachable while the system clock is within the supported range.
		panic(err)
	}
	return d
}
