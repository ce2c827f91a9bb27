package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyprcat/hyprcat/internal/navigator"
	"github.com/hyprcat/hyprcat/internal/provenance"
	"github.com/hyprcat/hyprcat/internal/strategy"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

func TestRunCompletesOnEmptyFrontier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":   "https://example/root",
			"type": "hydra:Resource",
		})
	}))
	defer srv.Close()

	nav := navigator.New(navigator.Config{})
	wallets := wallet.New()
	prov := provenance.New()
	rt := New(Config{AgentDID: "did:key:agent-1", StartURL: srv.URL, MaxIterations: 5}, nav, wallets, prov, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if rt.State() != StateCompleted {
		t.Fatalf("state = %v, want completed", rt.State())
	}
}

func TestRunFollowsFrontierThenCompletes(t *testing.T) {
	visits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visits++
		if r.URL.Path == "/" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":   "root",
				"type": "hydra:Collection",
				"member": []any{
					map[string]any{"id": "http://" + r.Host + "/child"},
				},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "child", "type": "hydra:Resource"})
	}))
	defer srv.Close()

	nav := navigator.New(navigator.Config{})
	wallets := wallet.New()
	prov := provenance.New()
	rt := New(Config{AgentDID: "did:key:agent-2", StartURL: srv.URL + "/", MaxIterations: 5}, nav, wallets, prov, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if visits < 2 {
		t.Fatalf("expected the agent to follow the frontier to the child resource, visits=%d", visits)
	}
}

func TestRunExecutesRetailStrategy(t *testing.T) {
	purchased := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			purchased = true
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "receipt", "type": "hyprcat:CheckoutResult"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":   "store",
			"type": "schema:Store",
			"member": []any{
				map[string]any{
					"price": 10.0, "stock": 1.0,
					"operation": []any{
						map[string]any{"method": "POST", "title": "Buy", "target": "http://" + r.Host + "/buy"},
					},
				},
			},
		})
	}))
	defer srv.Close()

	nav := navigator.New(navigator.Config{})
	wallets := wallet.New()
	prov := provenance.New()
	rt := New(Config{AgentDID: "did:key:agent-3", StartURL: srv.URL, MaxIterations: 3},
		nav, wallets, prov, []strategy.Strategy{strategy.Retail{}}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !purchased {
		t.Fatal("expected the retail strategy to execute the buy operation")
	}

	history := prov.HistoryOf("did:key:agent-3")
	if len(history) == 0 {
		t.Fatal("expected a provenance chain for the agent")
	}
	chain := history[len(history)-1]
	var last *provenance.Activity
	for _, item := range chain.Items {
		if item.Kind == provenance.KindActivity {
			last = item.Activity
		}
	}
	require.NotNil(t, last, "expected at least one recorded activity")
	assert.Equal(t, "schema:BuyAction", last.ActionType)
	assert.Equal(t, http.StatusOK, last.StatusCode)
}

func TestPauseBeforeRunKeepsStateIdle(t *testing.T) {
	nav := navigator.New(navigator.Config{})
	wallets := wallet.New()
	prov := provenance.New()
	rt := New(Config{AgentDID: "did:key:agent-4", StartURL: "http://unused", MaxIterations: 1}, nav, wallets, prov, nil, nil)
	rt.Pause()
	if rt.State() != StateIdle {
		t.Fatalf("expected idle before Run starts, got %v", rt.State())
	}
}
