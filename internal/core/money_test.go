package core

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		out     string
		wantErr error
	}{
		{"1", "1", nil},
		{"12.5", "12.5", nil},
		{"12,50", "12.5", nil},
		{" 2.50 ", "2.5", nil},
		{"0.01", "0.01", nil},
		{"0", "", ErrNonPositiveAmount},
		{"-1", "", ErrNonPositiveAmount},
		{"abc", "", ErrInvalidAmount},
		{"1.2.3", "", ErrInvalidAmount},
		{"1e3", "", ErrInvalidAmount},
		{"", "", ErrInvalidAmount},
		{"999999999999999.99", "999999999999999.99", nil},
		{"1000000000000000", "", ErrAmountTooLarge},
		{"99999999999999999999", "", ErrInvalidAmount},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("%q expected %v, got %v", tc.in, tc.wantErr, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%q expected a validation error, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q unexpected error: %v", tc.in, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("%q expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestTruncateAmount(t *testing.T) {
	cases := map[string]int64{
		"0":                     0,
		"12.99":                 12,
		"100":                   100,
		"250.5":                 250,
		"0.9999":                0,
		"99999999999999999999":  math.MaxInt64,
		"-99999999999999999999": -math.MaxInt64,
		"9223372036854775807.5": math.MaxInt64,
	}
	for in, want := range cases {
		if got := TruncateAmount(decimal.RequireFromString(in)); got != want {
			t.Fatalf("%s expected %d, got %d", in, want, got)
		}
	}
}
