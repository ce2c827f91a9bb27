package navigator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyprcat/hyprcat/internal/apierr"
)

func TestFetchDecodesDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/ld+json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "https://example/1", "type": "hydra:Resource"})
	}))
	defer srv.Close()

	c := New(Config{})
	doc, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if doc["id"] != "https://example/1" {
		t.Fatalf("unexpected document: %v", doc)
	}
	if c.VisitCount(srv.URL) != 1 {
		t.Fatalf("expected one visit recorded")
	}
}

func TestFetchTranslatesPaymentRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"title":  "Payment required",
			"detail": "pay up",
			"invoice": map[string]any{"invoiceId": "inv_1"},
		})
	}))
	defer srv.Close()

	c := New(Config{})
	_, err := c.Fetch(context.Background(), srv.URL)
	apiErr, ok := apierr.As(err)
	if !ok {
		t.Fatalf("expected an apierr.Error, got %v", err)
	}
	if apiErr.Kind != apierr.PaymentRequired {
		t.Fatalf("kind = %v, want PaymentRequired", apiErr.Kind)
	}
	if apiErr.Extra["invoice"] == nil {
		t.Fatal("expected invoice to be carried through Extra")
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "ok"})
	}))
	defer srv.Close()

	c := New(Config{MaxRetries: 3, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond})
	doc, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if doc["id"] != "ok" {
		t.Fatalf("unexpected document: %v", doc)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestExecuteOperationRejectsMissingRequiredInput(t *testing.T) {
	c := New(Config{})
	op := map[string]any{
		"method": "POST",
		"target": "https://example/op",
		"expects": []any{
			map[string]any{"property": "schema:name", "required": true, "datatype": "string"},
		},
	}
	_, _, err := c.ExecuteOperation(context.Background(), op, map[string]any{})
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.ValidationError {
		t.Fatalf("expected a ValidationError, got %v", err)
	}
}

func TestExecuteOperationPostsBody(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer srv.Close()

	c := New(Config{})
	op := map[string]any{"method": "POST", "target": srv.URL}
	doc, status, err := c.ExecuteOperation(context.Background(), op, map[string]any{"schema:name": "widget"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if doc["status"] != "ok" {
		t.Fatalf("unexpected response: %v", doc)
	}
	if received["schema:name"] != "widget" {
		t.Fatalf("server did not receive input: %v", received)
	}
}

func TestExpandTemplatePositionalAndQueryForm(t *testing.T) {
	got := ExpandTemplate("/nodes/{id}{?type,domain}", map[string]string{"id": "abc", "type": "schema:Store"})
	want := "/nodes/abc?type=schema%3AStore"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExpandTemplateElidesUnresolvedQueryForm(t *testing.T) {
	got := ExpandTemplate("/catalog{?q}", map[string]string{})
	if got != "/catalog" {
		t.Fatalf("got %q, want /catalog", got)
	}
}

func TestSubscribeReceivesFetchEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "x"})
	}))
	defer srv.Close()

	c := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := c.Subscribe(ctx)

	if _, err := c.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	select {
	case evt := <-events:
		if evt.Kind != EventFetched {
			t.Fatalf("kind = %v, want EventFetched", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
