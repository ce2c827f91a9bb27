package server

import (
	"net/http"
	"strings"
)

const (
	contentTypeLDJSON = "application/ld+json"
	contentTypeJSON   = "application/json"
)

// withNegotiation rejects requests whose Accept header names neither
// application/ld+json, application/json, nor a wildcard, with 406.
func (h *Handler) withNegotiation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !acceptable(r.Header.Get("Accept")) {
			h.writeError(w, r, notAcceptableError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func acceptable(accept string) bool {
	if accept == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch mediaType {
		case contentTypeLDJSON, contentTypeJSON, "*/*", "application/*":
			return true
		}
	}
	return false
}

// negotiatedContentType picks the response Content-Type a request's
// Accept header prefers, defaulting to application/ld+json.
func negotiatedContentType(r *http.Request) string {
	accept := r.Header.Get("Accept")
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if mediaType == contentTypeJSON {
			return contentTypeJSON
		}
	}
	return contentTypeLDJSON
}
