package models

import "testing"

func TestShow_ValidSeat(t *testing.T) {
	s := &Show{Rows: []string{"A", "B", "AA"}, SeatsPerRow: 12}

	tests := []struct {
		label string
		want  bool
	}{
		{"A1", true},
		{"B12", true},
		{"AA3", true},
		{"A13", false},
		{"A0", false},
		{"A01", false},
		{"A+1", false},
		{"A-1", false},
		{"A 1", false},
		{"A1.0", false},
		{"C1", false},
		{"A", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := s.ValidSeat(tt.label); got != tt.want {
				t.Errorf("ValidSeat(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}
