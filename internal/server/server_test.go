package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyprcat/hyprcat/internal/config"
	"github.com/hyprcat/hyprcat/internal/store"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()
	cfg := config.Config{
		Env:             "dev",
		BaseURL:         "http://localhost:8080",
		CORSOrigins:     []string{"*"},
		RateLimitWindow: time.Minute,
		RateLimitMax:    1000,
		RequestTimeout:  5 * time.Second,
		JWTSecret:       []byte("test-secret"),
	}
	h := New(cfg, store.NewMemory(), slog.New(slog.DiscardHandler))
	if err := h.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return h
}

func TestHealthReadyStats(t *testing.T) {
	h := testHandler(t)
	for _, path := range []string{"/health", "/ready", "/stats"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestRootDocument(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-HyprCAT-Version") == "" {
		t.Fatal("expected X-HyprCAT-Version header")
	}
	if rec.Header().Get("Link") == "" {
		t.Fatal("expected Link header")
	}
}

func TestCatalogSearch(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/catalog?type=schema:Store", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	members, _ := body["member"].([]any)
	if len(members) != 1 {
		t.Fatalf("expected 1 retail member, got %v", body)
	}
}

func TestNodeFetchNotFound(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/nodes/does/not/exist", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body = %s", rec.Code, rec.Body.String())
	}
}

func TestNotAcceptableRejected(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotAcceptable {
		t.Fatalf("status = %d, want 406, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAuthChallengeThenVerifyIssuesToken(t *testing.T) {
	h := testHandler(t)

	challengeReq := httptest.NewRequest(http.MethodPost, "/auth/challenge", jsonBody(t, map[string]any{"domain": "localhost"}))
	challengeRec := httptest.NewRecorder()
	h.Router().ServeHTTP(challengeRec, challengeReq)
	if challengeRec.Code != http.StatusOK {
		t.Fatalf("challenge status = %d, body = %s", challengeRec.Code, challengeRec.Body.String())
	}
	var challenge map[string]any
	_ = json.Unmarshal(challengeRec.Body.Bytes(), &challenge)
	nonce, _ := challenge["nonce"].(string)
	if nonce == "" {
		t.Fatal("expected nonce in challenge response")
	}

	verifyReq := httptest.NewRequest(http.MethodPost, "/auth/verify", jsonBody(t, map[string]any{
		"did":       "did:key:test-agent",
		"nonce":     nonce,
		"signature": "sim:placeholder",
	}))
	verifyRec := httptest.NewRecorder()
	h.Router().ServeHTTP(verifyRec, verifyReq)
	if verifyRec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body = %s", verifyRec.Code, verifyRec.Body.String())
	}
	var session map[string]any
	_ = json.Unmarshal(verifyRec.Body.Bytes(), &session)
	token, _ := session["token"].(string)
	if token == "" {
		t.Fatal("expected a session token")
	}

	profileReq := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	profileReq.Header.Set("Authorization", "Bearer "+token)
	profileRec := httptest.NewRecorder()
	h.Router().ServeHTTP(profileRec, profileReq)
	if profileRec.Code != http.StatusOK {
		t.Fatalf("profile status = %d, body = %s", profileRec.Code, profileRec.Body.String())
	}
}

func TestAuthProfileRequiresAuthentication(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutWithoutProofReturnsInvoice(t *testing.T) {
	h := testHandler(t)
	body := jsonBody(t, map[string]any{
		"nodeId":          "https://www.hyprcat.dev/store/retail-001",
		"operationTarget": "https://www.hyprcat.dev/store/retail-001/purchase",
	})
	req := httptest.NewRequest(http.MethodPost, "/operations/checkout", body)
	req.Header.Set("X-Agent-DID", "did:key:buyer-1")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutWithPriceBodyCompletesWithProof(t *testing.T) {
	h := testHandler(t)

	noProofReq := httptest.NewRequest(http.MethodPost, "/operations/checkout", jsonBody(t, map[string]any{
		"schema:price": "100",
	}))
	noProofRec := httptest.NewRecorder()
	h.Router().ServeHTTP(noProofRec, noProofReq)
	if noProofRec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402, body = %s", noProofRec.Code, noProofRec.Body.String())
	}
	var invoiceDoc map[string]any
	if err := json.Unmarshal(noProofRec.Body.Bytes(), &invoiceDoc); err != nil {
		t.Fatalf("decode invoice: %v", err)
	}
	if amount, _ := invoiceDoc["x402:amount"].(float64); amount != 100 {
		t.Fatalf("x402:amount = %v, want 100", invoiceDoc["x402:amount"])
	}
	invoice, _ := invoiceDoc["invoice"].(map[string]any)
	invoiceID, _ := invoice["invoiceId"].(string)
	if invoiceID == "" {
		t.Fatal("expected a non-empty invoiceId")
	}

	payReq := httptest.NewRequest(http.MethodPost, "/operations/checkout", jsonBody(t, map[string]any{
		"schema:price": "100",
		"paymentProof": "0123456789abcdef0123456789abcdef",
		"invoiceId":    invoiceID,
	}))
	payReq.Header.Set("X-Agent-DID", "did:key:buyer-2")
	payRec := httptest.NewRecorder()
	h.Router().ServeHTTP(payRec, payReq)
	if payRec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body = %s", payRec.Code, payRec.Body.String())
	}
	var order map[string]any
	if err := json.Unmarshal(payRec.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order["type"] != "schema:Order" {
		t.Fatalf("type = %v, want schema:Order", order["type"])
	}
	if price, _ := order["schema:price"].(float64); price != 100 {
		t.Fatalf("schema:price = %v, want 100", order["schema:price"])
	}
	if order["x402:paymentReceipt"] == nil {
		t.Fatal("expected a non-nil x402:paymentReceipt")
	}
}

func TestFederatedQueryDispatches(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/operations/query", jsonBody(t, map[string]any{
		"statement": "SELECT * FROM sales",
	}))
	req.Header.Set("X-Agent-DID", "did:key:analyst-1")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc["type"] != "czero:ResultSet" {
		t.Fatalf("type = %v, want czero:ResultSet", doc["type"])
	}
	if doc["executionTime"] == nil || doc["executionTime"] == "" {
		t.Fatal("expected a non-empty executionTime")
	}
}

func TestRateLimitHeadersPresent(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Header().Get("X-RateLimit-Limit") == "" {
		t.Fatal("expected X-RateLimit-Limit header")
	}
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(payload)
}
