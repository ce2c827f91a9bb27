package server

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/hyprcat/hyprcat/internal/apierr"
)

type challengeRequest struct {
	Domain string `json:"domain"`
}

func (h *Handler) handleAuthChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	var req challengeRequest
	_ = decodeJSON(r, &req)
	if req.Domain == "" {
		req.Domain = h.cfg.BaseURL
	}

	challenge, err := h.identity.IssueChallenge(req.Domain)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDocument(w, r, http.StatusOK, map[string]any{
		"@context":  ldContext,
		"type":      "hyprcat:AuthChallenge",
		"nonce":     challenge.Nonce,
		"domain":    challenge.Domain,
		"expiresAt": challenge.ExpiresAt,
	})
}

type verifyRequest struct {
	DID       string `json:"did"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
	Scope     string `json:"scope"`
}

func (h *Handler) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, invalidJSONBodyError())
		return
	}
	if req.DID == "" || req.Nonce == "" || req.Signature == "" {
		h.writeError(w, r, apierr.New(apierr.InvalidRequest, "Malformed verify request", "did, nonce, and signature are required"))
		return
	}

	publicKey, err := base64.RawURLEncoding.DecodeString(req.PublicKey)
	if err != nil && strings.TrimPrefix(req.Signature, "sim:") == req.Signature {
		h.writeError(w, r, apierr.New(apierr.InvalidRequest, "Malformed public key", "publicKey must be base64url-encoded"))
		return
	}

	if err := h.identity.VerifyChallenge(r.Context(), req.DID, req.Signature, req.Nonce, publicKey); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.wallets.EnsureWallet(req.DID)

	token, err := h.identity.IssueToken(req.DID, req.Scope)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDocument(w, r, http.StatusOK, map[string]any{
		"@context":  ldContext,
		"type":      "hyprcat:AuthSession",
		"did":       req.DID,
		"token":     token,
		"tokenType": "Bearer",
	})
}

func (h *Handler) handleAuthProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	did := identityFromContext(r.Context())
	wallet := h.wallets.EnsureWallet(did)
	h.writeDocument(w, r, http.StatusOK, map[string]any{
		"@context": ldContext,
		"type":     "hyprcat:AgentProfile",
		"did":      did,
		"wallet":   wallet,
	})
}
