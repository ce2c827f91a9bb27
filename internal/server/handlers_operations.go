package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/federation"
	"github.com/hyprcat/hyprcat/internal/governance"
	"github.com/hyprcat/hyprcat/internal/ld"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

type checkoutRequest struct {
	NodeID          string `json:"nodeId"`
	OperationTarget string `json:"operationTarget"`
	Price           string `json:"schema:price"`
	Currency        string `json:"schema:priceCurrency"`
	PaymentProof    string `json:"paymentProof"`
	InvoiceID       string `json:"invoiceId"`
}

// handleCheckout evaluates a payment constraint, either the one
// attached to a catalog node's purchase affordance (nodeId +
// operationTarget) or, for a direct checkout against an ad hoc price,
// one built from the request's own schema:price. With no payment
// proof it returns a 402 carrying a freshly issued invoice; with proof
// it verifies, debits, and returns the resulting order.
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, invalidJSONBodyError())
		return
	}

	constraint, err := h.checkoutConstraint(r, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	did := identityFromContext(r.Context())
	if req.PaymentProof != "" && did == "" {
		h.writeError(w, r, apierr.New(apierr.AuthenticationRequired, "Agent identity required", "supply a bearer token, DID-Auth header, or X-Agent-DID to settle this payment"))
		return
	}

	result, err := h.governance.Check(constraint, governance.Request{
		PayerDID:     did,
		PaymentProof: req.PaymentProof,
		InvoiceID:    req.InvoiceID,
		Context:      map[string]any{"nodeId": req.NodeID},
	})
	if err != nil {
		incrementPaymentConfirmed("failure")
		h.writeError(w, r, err)
		return
	}

	if result.Invoice != nil {
		incrementInvoiceIssued()
		h.writeDocument(w, r, http.StatusPaymentRequired, map[string]any{
			"@context":      ldContext,
			"type":          "x402:Invoice",
			"x402:amount":   result.Invoice.Amount,
			"x402:currency": result.Invoice.Currency,
			"x402:bolt11":   result.Invoice.Bolt11,
			"invoice":       result.Invoice,
		})
		return
	}

	incrementPaymentConfirmed("success")
	h.recordAttribution(did, "checkout", map[string]any{"nodeId": req.NodeID, "receipt": result.Receipt}, r)
	h.writeDocument(w, r, http.StatusCreated, map[string]any{
		"@context":             ldContext,
		"type":                 "schema:Order",
		"schema:price":         result.Receipt.Amount,
		"schema:priceCurrency": result.Receipt.Currency,
		"x402:paymentReceipt":  result.Receipt,
	})
}

// checkoutConstraint resolves the payment constraint a checkout must
// satisfy: the one declared on a catalog node's operation when nodeId
// is given, or one built directly from the request's own price for a
// node-free checkout.
func (h *Handler) checkoutConstraint(r *http.Request, req checkoutRequest) (map[string]any, error) {
	if req.NodeID != "" {
		node, err := h.store.Get(r.Context(), req.NodeID)
		if err != nil {
			return nil, notFoundOrInternal(err, "node")
		}
		return findOperationConstraint(node, req.OperationTarget)
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(req.Price), 10, 64)
	if err != nil || amount <= 0 {
		return nil, apierr.New(apierr.InvalidRequest, "Malformed checkout request", "either nodeId or a positive schema:price is required")
	}
	currency := req.Currency
	if currency == "" {
		currency = wallet.DemoCurrency
	}
	return map[string]any{
		"type":          "x402:PaymentConstraint",
		"x402:amount":   amount,
		"x402:currency": currency,
	}, nil
}

type queryRequest struct {
	Statement string `json:"statement"`
}

// handleFederatedQuery parses and dispatches a federated query string
// against the fixed source dictionary.
func (h *Handler) handleFederatedQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, invalidJSONBodyError())
		return
	}
	if strings.TrimSpace(req.Statement) == "" {
		h.writeError(w, r, apierr.New(apierr.InvalidRequest, "Missing statement", "a query statement is required"))
		return
	}

	did := identityFromContext(r.Context())
	activityID := "urn:uuid:pending"
	if did != "" {
		if activity, err := h.chains.chainFor(did).RecordActivity(activityRecordOf("federated-query", req.Statement, r)); err == nil {
			activityID = activity.ID
		}
	}

	result, err := federation.Run(r.Context(), req.Statement, activityID)
	if err != nil {
		incrementFederationQuery("failure")
		h.writeError(w, r, err)
		return
	}
	incrementFederationQuery("success")
	h.writeDocument(w, r, http.StatusOK, map[string]any{
		"@context":       ldContext,
		"type":           "czero:ResultSet",
		"items":          result.Items,
		"totalResults":   result.TotalResults,
		"queryLanguage":  result.QueryLanguage,
		"executionTime":  result.ExecutionTime,
		"sources":        result.Sources,
		"wasGeneratedBy": result.WasGeneratedBy,
	})
}

// handleLearningRecordExport exports the calling agent's provenance
// chain history. Authentication is optional: an unauthenticated caller
// supplying only X-Agent-DID still gets its own (weakly-attributed)
// history.
func (h *Handler) handleLearningRecordExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	did := identityFromContext(r.Context())
	if did == "" {
		did = strings.TrimSpace(r.Header.Get("X-Agent-DID"))
	}
	if did == "" {
		h.writeError(w, r, apierr.New(apierr.AuthenticationRequired, "Agent identity required", "supply a bearer token, DID-Auth header, or X-Agent-DID"))
		return
	}

	history := h.provenance.HistoryOf(did)
	encoding := r.URL.Query().Get("encoding")
	bundles := make([]any, 0, len(history))
	for _, chain := range history {
		if encoding == "flat" {
			bundles = append(bundles, chain.ExportFlatSummary())
		} else {
			bundles = append(bundles, chain.ExportLinkedData())
		}
	}
	h.writeDocument(w, r, http.StatusOK, map[string]any{
		"@context": ldContext,
		"type":     "hyprcat:LearningRecordExport",
		"agent":    did,
		"chains":   bundles,
	})
}

type tokenRequest struct {
	TokenID      string `json:"tokenId"`
	Amount       int64  `json:"amount"`
	PaymentProof string `json:"paymentProof"`
	InvoiceID    string `json:"invoiceId"`
}

// handleTokenMint charges the caller (via the same x402 pipeline as
// checkout) and grants a token balance on success.
func (h *Handler) handleTokenMint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, invalidJSONBodyError())
		return
	}
	if req.TokenID == "" || req.Amount <= 0 {
		h.writeError(w, r, apierr.New(apierr.InvalidRequest, "Malformed mint request", "tokenId and a positive amount are required"))
		return
	}

	did := identityFromContext(r.Context())
	if did == "" {
		h.writeError(w, r, apierr.New(apierr.InvalidRequest, "Agent identity required", "supply a bearer token, DID-Auth header, or X-Agent-DID"))
		return
	}
	constraint := map[string]any{"type": "x402:PaymentConstraint", "x402:amount": req.Amount, "x402:currency": "SAT"}
	result, err := h.governance.Check(constraint, governance.Request{
		PayerDID:     did,
		PaymentProof: req.PaymentProof,
		InvoiceID:    req.InvoiceID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if result.Invoice != nil {
		incrementInvoiceIssued()
		h.writeDocument(w, r, http.StatusPaymentRequired, map[string]any{
			"@context": ldContext,
			"type":     "x402:Invoice",
			"invoice":  result.Invoice,
		})
		return
	}

	h.wallets.GrantToken(did, req.TokenID, req.Amount)
	h.recordAttribution(did, "token-mint", map[string]any{"tokenId": req.TokenID, "amount": req.Amount}, r)
	h.writeDocument(w, r, http.StatusOK, map[string]any{
		"@context": ldContext,
		"type":     "hyprcat:TokenMintResult",
		"tokenId":  req.TokenID,
		"balance":  h.wallets.TokenBalance(did, req.TokenID),
		"receipt":  result.Receipt,
	})
}

// handleTokenBurn burns a token balance and refunds the DID's wallet
// in the token's backing currency at a 1:1 rate.
func (h *Handler) handleTokenBurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		h.writeError(w, r, methodNotAllowedError(r.Method))
		return
	}
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, invalidJSONBodyError())
		return
	}
	if req.TokenID == "" || req.Amount <= 0 {
		h.writeError(w, r, apierr.New(apierr.InvalidRequest, "Malformed burn request", "tokenId and a positive amount are required"))
		return
	}

	did := identityFromContext(r.Context())
	held := h.wallets.TokenBalance(did, req.TokenID)
	if held < req.Amount {
		h.writeError(w, r, apierr.New(apierr.InvalidRequest, "Insufficient token balance", "cannot burn more than is held"))
		return
	}

	h.wallets.GrantToken(did, req.TokenID, held-req.Amount)
	if err := h.wallets.Credit(did, "SAT", req.Amount); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.recordAttribution(did, "token-burn", map[string]any{"tokenId": req.TokenID, "amount": req.Amount}, r)
	h.writeDocument(w, r, http.StatusOK, map[string]any{
		"@context": ldContext,
		"type":     "hyprcat:TokenBurnResult",
		"tokenId":  req.TokenID,
		"balance":  h.wallets.TokenBalance(did, req.TokenID),
	})
}

func findOperationConstraint(node map[string]any, target string) (map[string]any, error) {
	for _, op := range ld.OperationsOf(node) {
		opTarget, _ := op["target"].(string)
		if target == "" || opTarget == target {
			constraint, _ := op["constraint"].(map[string]any)
			if constraint == nil {
				return nil, apierr.New(apierr.InvalidRequest, "No constraint on operation", "this operation carries no governance constraint")
			}
			return constraint, nil
		}
	}
	return nil, apierr.New(apierr.InvalidRequest, "Operation not found", "no operation matches the requested target")
}
