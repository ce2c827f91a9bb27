package server

import (
	"context"
	"net/http"
	"strings"
)

const contextKeyDID contextKey = "did"

// identityFromContext returns the DID a prior withAuth call resolved,
// or "" if the request carries none.
func identityFromContext(ctx context.Context) string {
	if did, ok := ctx.Value(contextKeyDID).(string); ok {
		return did
	}
	return ""
}

// withAuth resolves the caller's identity in the three-way precedence
// order the gateway honors: a verified bearer session token, a
// verified DID-Auth signature header, or an unauthenticated,
// weakly-attributed X-Agent-DID header. When requireAuth is true and
// none resolves to a verified identity, the request is rejected before
// reaching next.
func (h *Handler) withAuth(requireAuth bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		did, verified, err := h.resolveIdentity(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if requireAuth && !verified {
			h.writeError(w, r, authChallengeRequiredError())
			return
		}
		if did != "" {
			r = r.WithContext(context.WithValue(r.Context(), contextKeyDID, did))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) resolveIdentity(r *http.Request) (did string, verified bool, err error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	switch {
	case strings.HasPrefix(auth, "Bearer "):
		token := strings.TrimPrefix(auth, "Bearer ")
		did, _, verr := h.identity.VerifyToken(token)
		if verr != nil {
			return "", false, verr
		}
		return did, true, nil

	case strings.HasPrefix(auth, "DID-Auth "):
		did, signature, nonce, perr := parseDIDAuthHeader(strings.TrimPrefix(auth, "DID-Auth "))
		if perr != nil {
			return "", false, perr
		}
		identityRecord, known := h.identity.IdentityOf(did)
		if !known {
			return "", false, unknownDIDError(did)
		}
		if verr := h.identity.VerifyChallenge(r.Context(), did, signature, nonce, identityRecord.PublicKey); verr != nil {
			return "", false, verr
		}
		return did, true, nil

	default:
		if agentDID := strings.TrimSpace(r.Header.Get("X-Agent-DID")); agentDID != "" {
			return agentDID, false, nil
		}
		return "", false, nil
	}
}

// parseDIDAuthHeader splits `<did>;sig=…;nonce=…` into its parts.
func parseDIDAuthHeader(raw string) (did, signature, nonce string, err error) {
	parts := strings.Split(raw, ";")
	if len(parts) == 0 {
		return "", "", "", malformedDIDAuthError()
	}
	did = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.TrimSpace(kv[0]) {
		case "sig":
			signature = strings.TrimSpace(kv[1])
		case "nonce":
			nonce = strings.TrimSpace(kv[1])
		}
	}
	if did == "" || signature == "" || nonce == "" {
		return "", "", "", malformedDIDAuthError()
	}
	return did, signature, nonce, nil
}
