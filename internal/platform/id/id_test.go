package id

import "testing"

func TestNewReturnsUniqueIDs(t *testing.T) {
	a := New()
	b := New()
	if a == "" || b == "" {
		t.Fatal("expected non-empty ids")
	}
	if a == b {
		t.Fatalf("expected unique ids, got %s twice", a)
	}
}

func TestValid(t *testing.T) {
	if !Valid(New()) {
		t.Fatal("expected generated id to be valid")
	}
	if Valid("not-an-id") {
		t.Fatal("expected malformed id to be invalid")
	}
}
