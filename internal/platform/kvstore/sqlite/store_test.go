package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/kvstore"
)

var _ kvstore.Store = (*Store)(nil)

func openTempStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTempStore(t, filepath.Join(t.TempDir(), "state.db"))

	if _, ok, err := store.Get(ctx, "access_token"); err != nil || ok {
		t.Fatalf("Get on empty store = ok %v err %v, want absent", ok, err)
	}
	if err := store.Set(ctx, "access_token", "tok-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, "access_token", "tok-2"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	value, ok, err := store.Get(ctx, "access_token")
	if err != nil || !ok || value != "tok-2" {
		t.Fatalf("Get = (%q, %v, %v), want tok-2", value, ok, err)
	}
	if err := store.Delete(ctx, "access_token"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "access_token"); ok {
		t.Fatal("expected key to be absent after delete")
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open first: %v", err)
	}
	if err := first.Set(ctx, "impersonate_client", `{"id":"t-1","companyName":"Acme"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close first: %v", err)
	}

	second := openTempStore(t, path)
	value, ok, err := second.Get(ctx, "impersonate_client")
	if err != nil || !ok {
		t.Fatalf("Get after reopen = ok %v err %v", ok, err)
	}
	if value != `{"id":"t-1","companyName":"Acme"}` {
		t.Fatalf("value after reopen = %q", value)
	}
}
