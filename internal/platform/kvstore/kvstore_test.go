package kvstore

import (
	"context"
	"testing"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if _, ok, err := store.Get(ctx, "access_token"); err != nil || ok {
		t.Fatalf("Get on empty store = ok %v err %v, want absent", ok, err)
	}
	if err := store.Set(ctx, "access_token", "tok-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, ok, err := store.Get(ctx, "access_token")
	if err != nil || !ok || value != "tok-1" {
		t.Fatalf("Get = (%q, %v, %v), want tok-1", value, ok, err)
	}
	if err := store.Set(ctx, "access_token", "tok-2"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if value, _, _ := store.Get(ctx, "access_token"); value != "tok-2" {
		t.Fatalf("value after overwrite = %q, want tok-2", value)
	}
	if err := store.Delete(ctx, "access_token"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "access_token"); ok {
		t.Fatal("expected key to be absent after delete")
	}
	if err := store.Delete(ctx, "access_token"); err != nil {
		t.Fatalf("Delete absent key: %v", err)
	}
}

func TestMemoryZeroValueUsable(t *testing.T) {
	var store Memory
	if err := store.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Set on zero value: %v", err)
	}
	if value, ok, _ := store.Get(context.Background(), "k"); !ok || value != "v" {
		t.Fatalf("Get = (%q, %v), want v", value, ok)
	}
}
