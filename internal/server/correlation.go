package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// withCorrelationID ensures every request carries an X-Correlation-Id,
// generating one when the caller didn't supply it, and echoes it back
// on the response — the teacher's ensureCorrelationID lifted to a
// standalone middleware so every handler in the larger route table
// gets it uniformly.
func (h *Handler) withCorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerCorrelationID))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerCorrelationID, id)
		ctx := context.WithValue(r.Context(), contextKeyCorrelationID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func correlationIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyCorrelationID).(string); ok {
		return id
	}
	return ""
}
