package util

import (
	"math"
	"testing"
)

func TestTrimQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no quotes", "front", "front"},
		{"double quoted", `"front"`, "front"},
		{"single quotes only", "'front'", "'front'"},
		{"quotes in middle", `fr"ont`, `fr"ont`},
		{"only quotes", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrimQuotes(tt.input)
			if result != tt.expected {
				t.Errorf("TrimQuotes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		wantErr  bool
	}{
		{"integer", "5", 5, false},
		{"negative", "-0.25", -0.25, false},
		{"quoted", `"4.5"`, 4.5, false},
		{"padded", "  3 ", 3, false},
		{"empty", "", 0, true},
		{"word", "big", 0, true},
		{"nan", "NaN", 0, true},
		{"inf", "+Inf", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseFloat(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseFloat(%q) expected error, got %v", tt.input, result)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFloat(%q) unexpected error: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("ParseFloat(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		wantErr  bool
	}{
		{"1", 1, false},
		{"120", 120, false},
		{`"7"`, 7, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"2.5", 0, true},
	}

	for _, tt := range tests {
		result, err := ParseCount(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if result != tt.expected {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.input, result, tt.expected)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, expected float64
	}{
		{5, 1, 20, 5},
		{0.2, 1, 20, 1},
		{25, 1, 20, 20},
		{math.Inf(1), 1, 20, 20},
	}

	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.expected {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.expected)
		}
	}
}
