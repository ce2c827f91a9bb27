package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/catalog"
	"github.com/hyprcat/hyprcat/internal/store"
)

func (h *Handler) handleWellKnown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	resource, err := h.store.Get(r.Context(), catalog.ResourceID(".well-known/service"))
	if err != nil {
		h.writeError(w, r, notFoundOrInternal(err, "service description"))
		return
	}
	h.writeDocument(w, r, http.StatusOK, resource)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.writeError(w, r, apierr.New(apierr.NotFound, "Not found", "no resource at this path"))
		return
	}
	if r.Method != http.MethodGet {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	resource, err := h.store.Get(r.Context(), catalog.ResourceID(""))
	if err != nil {
		h.writeError(w, r, notFoundOrInternal(err, "root document"))
		return
	}
	h.writeDocument(w, r, http.StatusOK, resource)
}

func (h *Handler) handleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	view, err := h.catalog.Search(r.Context(), catalog.SearchQuery{
		Query:    q.Get("q"),
		Type:     q.Get("type"),
		Domain:   q.Get("domain"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDocument(w, r, http.StatusOK, map[string]any{
		"@context":   ldContext,
		"id":         catalog.ResourceID("catalog/search"),
		"type":       "hydra:Collection",
		"member":     view.Member,
		"totalItems": view.TotalItems,
		"first":      view.First,
		"previous":   view.Previous,
		"next":       view.Next,
	})
}

func (h *Handler) handlePrompts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	resource, err := h.store.Get(r.Context(), catalog.ResourceID("prompts"))
	if err != nil {
		h.writeError(w, r, notFoundOrInternal(err, "prompt collection"))
		return
	}
	h.writeDocument(w, r, http.StatusOK, resource)
}

func (h *Handler) handleNodeFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	suffix := strings.TrimPrefix(r.URL.Path, "/nodes/")
	if suffix == "" {
		h.writeError(w, r, apierr.New(apierr.InvalidRequest, "Missing node path", "a resource type and slug are required"))
		return
	}
	resource, err := h.store.Get(r.Context(), catalog.ResourceID(suffix))
	if err != nil {
		h.writeError(w, r, notFoundOrInternal(err, "resource"))
		return
	}

	did := identityFromContext(r.Context())
	if did != "" {
		h.recordObservation(did, resource)
	}
	h.writeDocument(w, r, http.StatusOK, resource)
}

func (h *Handler) handleNodesRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	var resource map[string]any
	if err := decodeJSON(r, &resource); err != nil {
		h.writeError(w, r, invalidJSONBodyError())
		return
	}
	if err := h.catalog.Register(r.Context(), resource); err != nil {
		h.writeError(w, r, err)
		return
	}

	did := identityFromContext(r.Context())
	if did != "" {
		h.recordAttribution(did, "register", resource, r)
	}
	h.writeDocument(w, r, http.StatusCreated, resource)
}

func notFoundOrInternal(err error, what string) error {
	if err == store.ErrNotFound {
		return apierr.New(apierr.NotFound, "Not found", what+" not found")
	}
	return apierr.Wrap(apierr.InternalError, "Lookup failed", "failed to load "+what, err)
}
