package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestMoneyFromFloat(t *testing.T) {
	cases := map[float64]int64{42.5: 4250, 0.1 + 0.2: 30, 19.999: 2000, 100: 10000}
	for in, want := range cases {
		if got := MoneyFromFloat(in).Cents; got != want {
			t.Errorf("MoneyFromFloat(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{4250: "42.50", 5: "0.05", 100000: "1000.00", -150: "-1.50"}
	for in, want := range cases {
		if got := (Money{Cents: in}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", in, got, want)
		}
	}
}
