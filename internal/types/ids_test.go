// internal/types/ids_test.go
package types

import (
	"testing"
)

func TestNewJobID(t *testing.T) {
	id := NewJobID()
	if id == "" {
		t.Error("expected non-empty JobID")
	}
	if len(string(id)) != 36 {
		t.Errorf("expected UUID format, got %s", id)
	}
	if NewJobID() == id {
		t.Error("expected distinct job ids")
	}
}

func TestParseActorID(t *testing.T) {
	id, err := ParseActorID("555")
	if err != nil {
		t.Fatal(err)
	}
	if id != 555 {
		t.Errorf("expected 555, got %d", id)
	}
	if id.String() != "555" {
		t.Errorf("expected '555', got %q", id.String())
	}

	if _, err := ParseActorID("abc"); err == nil {
		t.Error("expected error for non-numeric actor id")
	}
}

func TestParseItemID(t *testing.T) {
	id, err := ParseItemID("42")
	if err != nil {
		t.Fatal(err)
	}
	if id != 42 {
		t.Errorf("expected 42, got %d", id)
	}
	if _, err := ParseItemID(""); err == nil {
		t.Error("expected error for empty item id")
	}
}
