package id

import (
	"strings"
	"testing"
)

func TestGenerate_Format(t *testing.T) {
	id := Generate()

	parts := strings.Split(id, "-")
	if len(parts) != 3 || parts[0] != "job" {
		t.Fatalf("expected job-<unix>-<hex> format, got %s", id)
	}
	if len(parts[2]) != 8 {
		t.Errorf("expected 8 hex chars of randomness, got %q", parts[2])
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}
