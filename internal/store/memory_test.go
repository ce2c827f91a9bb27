package store

import (
	"context"
	"testing"
)

func TestMemoryPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	resource := map[string]any{"id": "https://example.com/a", "type": "schema:Product", "schema:name": "Widget"}
	if err := s.Put(ctx, "https://example.com/a", resource); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["schema:name"] != "Widget" {
		t.Fatalf("got %v", got)
	}
}

func TestMemoryGetMissingReturnsErrNotFound(t *testing.T) {
	s := NewMemory()
	if _, err := s.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestMemoryFindByType(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_ = s.Put(ctx, "a", map[string]any{"id": "a", "type": "schema:Product"})
	_ = s.Put(ctx, "b", map[string]any{"id": "b", "type": "schema:DataProduct"})
	products, err := s.FindByType(ctx, "schema:Product")
	if err != nil {
		t.Fatalf("findByType: %v", err)
	}
	if len(products) != 1 || products[0]["id"] != "a" {
		t.Fatalf("got %v", products)
	}
}

func TestMemoryDeleteReportsExistence(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_ = s.Put(ctx, "a", map[string]any{"id": "a", "type": "schema:Product"})
	existed, err := s.Delete(ctx, "a")
	if err != nil || !existed {
		t.Fatalf("existed=%v err=%v", existed, err)
	}
	existed, err = s.Delete(ctx, "a")
	if err != nil || existed {
		t.Fatalf("second delete should report false, got %v", existed)
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			_ = s.Put(ctx, "a", map[string]any{"id": "a", "type": "schema:Product", "n": i})
		}
		close(done)
	}()
	for i := 0; i < 1000; i++ {
		_, _ = s.Get(ctx, "a")
	}
	<-done
}
