package server

import (
	"net/http"
	"runtime"
	"time"
)

var processStarted = time.Now()

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeDocument(w, r, http.StatusOK, map[string]any{
		"@context": ldContext,
		"type":     "hyprcat:Health",
		"status":   "ok",
	})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.List(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDocument(w, r, http.StatusOK, map[string]any{
		"@context": ldContext,
		"type":     "hyprcat:Readiness",
		"status":   "ready",
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDocument(w, r, http.StatusOK, map[string]any{
		"@context":      ldContext,
		"type":          "hyprcat:Stats",
		"resourceCount": len(ids),
		"uptimeSeconds": int(time.Since(processStarted).Seconds()),
		"goroutines":    runtime.NumGoroutine(),
	})
}
