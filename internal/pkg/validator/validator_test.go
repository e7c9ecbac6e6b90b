package validator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B",
	}
	invalid := []string{
		"123e4567-e89b-12d3-a456-426614174000",
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"",
	}
	for _, uuid := range valid {
		if !IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = false, want true", uuid)
		}
	}
	for _, uuid := range invalid {
		if IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = true, want false", uuid)
		}
	}
}

func TestIsValidClock(t *testing.T) {
	cases := []struct {
		input string
		want  time.Duration
		ok    bool
	}{
		{"08:00", 8 * time.Hour, true},
		{"22:30", 22*time.Hour + 30*time.Minute, true},
		{"00:00", 0, true},
		{"24:00", 0, false},
		{"8am", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := IsValidClock(c.input)
		if ok != c.ok || got != c.want {
			t.Errorf("IsValidClock(%q) = (%v, %v), want (%v, %v)", c.input, got, ok, c.want, c.ok)
		}
	}
}

func TestInRange(t *testing.T) {
	min, max := decimal.NewFromInt(1), decimal.NewFromInt(10)
	if !InRange(decimal.NewFromInt(1), min, max) || !InRange(decimal.NewFromInt(10), min, max) {
		t.Error("InRange should include both bounds")
	}
	if InRange(decimal.RequireFromString("0.99"), min, max) || InRange(decimal.RequireFromString("10.01"), min, max) {
		t.Error("InRange should exclude values outside the bounds")
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	if errs.Err() != nil {
		t.Fatal("empty ValidationErrors.Err() should be nil")
	}
	errs.Add("days", "must be positive")
	errs.Add("year", "is required")
	if errs.Err() == nil {
		t.Fatal("ValidationErrors.Err() should not be nil after Add")
	}
	if got, want := errs.Error(), "days: must be positive; year: is required"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if m := errs.ToMap(); m["days"] != "must be positive" {
		t.Errorf("ToMap()[days] = %q", m["days"])
	}
}
