package jalali

import "testing"

func TestToPersianDigits(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1403/01/09", "۱۴۰۳/۰۱/۰۹"},
		{"0123456789", "۰۱۲۳۴۵۶۷۸۹"},
		{"no digits here", "no digits here"},
		{"", ""},
		{"mix 42 و ۷", "mix ۴۲ و ۷"},
	}

	for _, tt := range tests {
		if got := ToPersianDigits(tt.in); got != tt.want {
			t.Fatalf("ToPersianDigits(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "۰"},
		{999, "۹۹۹"},
		{1000, "۱,۰۰۰"},
		{1250000, "۱,۲۵۰,۰۰۰"},
		{987654321, "۹۸۷,۶۵۴,۳۲۱"},
	}

	for _, tt := range tests {
		if got := FormatCurrency(tt.in); got != tt.want {
			t.Fatalf("FormatCurrency(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCurrencyRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, 999, 1000, 70000, 1250000, 999999999999} {
		s := FormatCurrency(n)
		got, err := ParseCurrency(s)
		if err != nil {
			t.Fatalf("ParseCurrency(%q) unexpected error: %v", s, err)
		}
		if got != n {
			t.Fatalf("ParseCurrency(FormatCurrency(%d)) = %d", n, got)
		}
	}
}

func TestParseCurrencyAcceptsASCIIInput(t *testing.T) {
	got, err := ParseCurrency("1,250,000")
	if err != nil {
		t.Fatalf("ParseCurrency() unexpected error: %v", err)
	}
	if got != 1250000 {
		t.Fatalf("ParseCurrency(\"1,250,000\") = %d, want 1250000", got)
	}
}

func TestParseCurrencyRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "abc", "۱۲x", "12.5"} {
		if _, err := ParseCurrency(input); err == nil {
			t.Fatalf("ParseCurrency(%q) error = nil, want non-nil", input)
		}
	}
}
