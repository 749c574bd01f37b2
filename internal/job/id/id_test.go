package id

import (
	"strings"
	"testing"
)

func TestGenerate_Format(t *testing.T) {
	got := Generate()
	if !strings.HasPrefix(got, "job-") {
		t.Errorf("expected job- prefix, got %s", got)
	}
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}
