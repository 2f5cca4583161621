package utils

import (
	"testing"
)

func TestGenerateTripID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateTripID()
		if !IsTripID(id) {
			t.Fatalf("GenerateTripID() = %q, not a valid uuid", id)
		}
		if seen[id] {
			t.Fatalf("GenerateTripID() returned duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestIsTripID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"uuid", "550e8400-e29b-41d4-a716-446655440000", true},
		{"empty", "", false},
		{"national id", "12345678", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTripID(tt.input); got != tt.want {
				t.Errorf("IsTripID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
