package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyprcat/hyprcat/internal/config"
	"github.com/hyprcat/hyprcat/internal/server"
	"github.com/hyprcat/hyprcat/internal/store"
)

// TestGateway_Integration wires the same components runServe uses (an
// in-memory store + the server handler) under httptest, without going
// through cobra or a real listener.
func TestGateway_Integration(t *testing.T) {
	cfg := config.Config{
		Env:             "dev",
		BaseURL:         "http://localhost:8080",
		CORSOrigins:     []string{"*"},
		RateLimitWindow: time.Minute,
		RateLimitMax:    1000,
		RequestTimeout:  5 * time.Second,
		JWTSecret:       []byte("test-secret"),
		StorageBackend:  config.StorageMemory,
	}
	h := server.New(cfg, store.NewMemory(), slog.New(slog.DiscardHandler))
	if err := h.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ts := httptest.NewServer(h.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/catalog")
	if err != nil {
		t.Fatalf("catalog request error: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("catalog status = %d", resp2.StatusCode)
	}
}

func TestOpenStoreRejectsUnknownBackend(t *testing.T) {
	_, err := openStore(config.Config{StorageBackend: "nonsense"})
	if err == nil {
		t.Fatal("expected an error for an unrecognized storage backend")
	}
}
