package jalali

import (
	"fmt"
	"strconv"
	"strings"
)

var persianDigits = [10]rune{'۰', '۱', '۲', '۳', '۴', '۵', '۶', '۷', '۸', '۹'}

// ToPersianDigits maps ASCII digits 0-9 to the corresponding Persian glyphs.
// All other characters pass through untouched.
func ToPersianDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(persianDigits[r-'0'])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatCurrency renders an integer amount with thousands separators and
// Persian digits, e.g. 1250000 -> "۱,۲۵۰,۰۰۰".
func FormatCurrency(n int64) string {
	return ToPersianDigits(groupThousands(n))
}

// ParseCurrency is the exact inverse of FormatCurrency: it strips thousands
// separators, maps Persian digits back to ASCII, and parses the result.
func ParseCurrency(s string) (int64, error) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ',' || r == '٬':
			// separator
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		default:
			return 0, fmt.Errorf("parse currency %q: unexpected character %q", s, r)
		}
	}
	if b.Len() == 0 {
		return 0, fmt.Errorf("parse currency %q: no digits", s)
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse currency %q: %w", s, err)
	}
	return n, nil
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteRune(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
