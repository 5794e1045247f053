package jalali

import "fmt"

// AddDays adds n days (n may be negative) to a "YYYY/MM/DD" Jalali date
// string by round-tripping through the Gregorian calendar.
func AddDays(s string, n int) (string, error) {
	d, err := Parse(s)
	if err != nil {
		return "", err
	}
	t, err := d.Time()
	if err != nil {
		return "", err
	}
	shifted, err := FromTime(t.AddDate(0, 0, n))
	if err != nil {
		return "", fmt.Errorf("add %d days to %s: %w", n, s, err)
	}
	return shifted.Format(), nil
}

// AddMonths adds n months to a Jalali date string. When the source day does
// not exist in the target month, the day clamps to the target month's last
// day (1403/06/31 plus one month is 1403/07/30). Recurrence generation
// depends on this clamping.
func AddMonths(s string, n int) (string, error) {
	d, err := Parse(s)
	if err != nil {
		return "", err
	}

	months := d.Year*12 + (d.Month - 1) + n
	year := months / 12
	month := months%12 + 1
	if months < 0 {
		return "", fmt.Errorf("%w: add %d months to %s", ErrInvalidDate, n, s)
	}

	day := d.Day
	if max := MonthDays(year, month); day > max {
		day = max
	}
	out := Date{Year: year, Month: month, Day: day}
	if !out.Valid() {
		return "", fmt.Errorf("%w: add %d months to %s", ErrInvalidDate, n, s)
	}
	return out.Format(), nil
}

// AddYears adds n years to a Jalali date string, clamping Esfand 30 to
// Esfand 29 when the target year is not a leap year.
func AddYears(s string, n int) (string, error) {
	d, err := Parse(s)
	if err != nil {
		return "", err
	}

	year := d.Year + n
	day := d.Day
	if max := MonthDays(year, d.Month); day > max {
		day = max
	}
	out := Date{Year: year, Month: d.Month, Day: day}
	if !out.Valid() {
		return "", fmt.Errorf("%w: add %d years to %s", ErrInvalidDate, n, s)
	}
	return out.Format(), nil
}
