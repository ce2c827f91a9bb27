package server

import (
	"net/http"
	"sync"

	"github.com/hyprcat/hyprcat/internal/provenance"
)

// chainRegistry hands out one long-lived provenance chain per agent
// DID, lazily started on first use and reused across the process's
// lifetime for that agent.
type chainRegistry struct {
	mu     sync.Mutex
	byDID  map[string]*provenance.Chain
	source *provenance.Service
}

func newChainRegistry(source *provenance.Service) *chainRegistry {
	return &chainRegistry{byDID: make(map[string]*provenance.Chain), source: source}
}

func (r *chainRegistry) chainFor(did string) *provenance.Chain {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain, ok := r.byDID[did]
	if !ok || chain.IsSealed() {
		chain = r.source.StartChain(did)
		r.byDID[did] = chain
	}
	return chain
}

// recordObservation logs the fetch of a resource as the chain's
// current entity, establishing it as the referent for the next
// recorded activity.
func (h *Handler) recordObservation(did string, resource map[string]any) {
	chain := h.chains.chainFor(did)
	label, _ := resource["title"].(string)
	if label == "" {
		label = "observed resource"
	}
	if _, err := chain.RecordEntity(label, resource); err != nil {
		chain = h.chains.source.StartChain(did)
		h.chains.mu.Lock()
		h.chains.byDID[did] = chain
		h.chains.mu.Unlock()
		_, _ = chain.RecordEntity(label, resource)
	}
	incrementProvenanceItem("entity")
}

// activityRecordOf builds the provenance activity for an action whose
// payload is a single statement string.
func activityRecordOf(actionType, statement string, r *http.Request) provenance.Activity {
	return provenance.Activity{
		Label:      actionType,
		ActionType: actionType,
		Payload:    map[string]any{"statement": statement},
		Method:     r.Method,
		TargetURL:  r.URL.Path,
	}
}

// recordAttribution logs a mutating or attributing action against the
// chain's current entity, first recording a baseline entity when the
// agent has not yet observed anything in this chain.
func (h *Handler) recordAttribution(did, actionType string, payload map[string]any, r *http.Request) {
	chain := h.chains.chainFor(did)
	activity := provenance.Activity{
		Label:      actionType,
		ActionType: actionType,
		Payload:    payload,
		Method:     r.Method,
		TargetURL:  r.URL.Path,
	}
	if _, err := chain.RecordActivity(activity); err != nil {
		// No baseline entity yet this session: record one from the
		// request itself, then retry the activity.
		if _, entErr := chain.RecordEntity("session start", map[string]any{"path": r.URL.Path}); entErr == nil {
			_, _ = chain.RecordActivity(activity)
		}
	}
	incrementProvenanceItem("activity")
}
