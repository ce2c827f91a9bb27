package server

import "net/http"

func (h *Handler) handleWalletSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	did := identityFromContext(r.Context())
	state := h.wallets.EnsureWallet(did)
	h.writeDocument(w, r, http.StatusOK, map[string]any{
		"@context":      ldContext,
		"type":          "hyprcat:Wallet",
		"did":           state.DID,
		"balances":      state.Balances,
		"tokens":        state.Tokens,
		"subscriptions": state.Subscriptions,
	})
}
