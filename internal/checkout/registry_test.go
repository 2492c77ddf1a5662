package checkout

import (
	"context"
	"testing"
)

func TestRegistryRebuildAdoptsPersistedCartID(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	registry, err := NewRegistry(client, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	cartSync := registry.ForSession("sess_1", "")
	if _, err := cartSync.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	cartID := cartSync.CartID()
	if cartID == "" {
		t.Fatal("expected a cart id after the first fetch")
	}

	// Simulate LRU eviction or a process restart.
	registry.Drop("sess_1")

	rebuilt := registry.ForSession("sess_1", cartID)
	if got := rebuilt.CartID(); got != cartID {
		t.Fatalf("rebuilt CartID() = %q, want %q", got, cartID)
	}

	if _, err := rebuilt.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() after rebuild error = %v", err)
	}
	client.mu.Lock()
	created := client.nextCart
	client.mu.Unlock()
	if created != 1 {
		t.Errorf("platform created %d carts, want 1; the session must keep its cart", created)
	}
}

func TestCartSyncAdoptNeverOverridesPlatformCartID(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	cartSync := NewCartSync(client, nil)
	if _, err := cartSync.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	original := cartSync.CartID()

	cartSync.Adopt("cart_stale")

	if got := cartSync.CartID(); got != original {
		t.Errorf("CartID() = %q, want the platform-learned %q", got, original)
	}
}
