package uuid

import (
	"strings"
	"testing"

	googleuuid "github.com/google/uuid"
)

func TestNewIsVersion7(t *testing.T) {
	id, err := googleuuid.Parse(New())
	if err != nil {
		t.Fatalf("New() returned an unparsable id: %v", err)
	}
	if id.Version() != 7 {
		t.Errorf("expected version 7, got %d", id.Version())
	}
}

func TestNewIsTimeOrdered(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		if next <= prev {
			t.Fatalf("expected %s to sort after %s", next, prev)
		}
		prev = next
	}
}

func TestCanonical(t *testing.T) {
	upper := "0190A1B2-0000-7000-8000-000000000001"
	got, err := Canonical(upper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != strings.ToLower(upper) {
		t.Errorf("expected lower-case form, got %s", got)
	}
	if _, err := Canonical("not-a-uuid"); err == nil {
		t.Error("expected an error for an invalid id")
	}
}
