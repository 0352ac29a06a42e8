package sessionstore

import "testing"

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	if _, ok := store.Get("field"); ok {
		t.Fatal("expected empty store")
	}

	if err := store.Set("field", "value"); err != nil {
		t.Fatal(err)
	}
	value, ok := store.Get("field")
	if !ok || value != "value" {
		t.Fatalf("expected value, got %q (present=%v)", value, ok)
	}

	if err := store.Set("field", "other"); err != nil {
		t.Fatal(err)
	}
	if value, _ := store.Get("field"); value != "other" {
		t.Fatalf("expected last write to win, got %q", value)
	}

	if err := store.Delete("field"); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get("field"); ok {
		t.Fatal("expected field to be deleted")
	}

	// deleting again is a no-op
	if err := store.Delete("field"); err != nil {
		t.Fatal(err)
	}
}
