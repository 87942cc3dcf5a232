package core

import (
	"encoding/json"
	"errors"
	"testing"
)

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
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1.234,5", 0, false},
		{"1e3", 0, false},
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
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%q expected a validation error, got %v", tc.in, err)
			}
		}
	}
}

func TestParseMoneySigned(t *testing.T) {
	m, err := ParseMoney("-10.5")
	if err != nil || m.Cents != -1050 {
		t.Fatalf("got %v err=%v", m, err)
	}
	if m.String() != "-10.50" {
		t.Fatalf("String() = %q", m.String())
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		1:      "0.01",
		12000:  "120.00",
		123456: "1234.56",
		-250:   "-2.50",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 12050})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"120.50"` {
		t.Fatalf("marshal = %s", b)
	}

	for _, in := range []string{`"120.50"`, `120.50`, `120.5`, `"120,50"`} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if m.Cents != 12050 {
			t.Fatalf("unmarshal %s = %d", in, m.Cents)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`"ten"`), &m); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 10_00}
	b := Money{Cents: 2_50}
	if got := a.Add(b); got.Cents != 12_50 {
		t.Fatalf("Add = %d", got.Cents)
	}
	if got := b.Sub(a); got.Cents != -7_50 {
		t.Fatalf("Sub = %d", got.Cents)
	}
}
