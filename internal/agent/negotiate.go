package agent

import (
	"context"
	"strings"
	"time"

	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/governance"
	"github.com/hyprcat/hyprcat/internal/provenance"
	"github.com/hyprcat/hyprcat/internal/strategy"
)

// negotiationOutcome is what one negotiate() pass decided: exactly one
// of decision (an execution), navigateTo, or complete is set.
type negotiationOutcome struct {
	decision   strategy.Decision
	navigateTo string
	complete   bool
}

// negotiate iterates every registered strategy, collects their
// decisions, and picks the highest-priority executable one. With none
// executable it falls back to a navigateTo suggestion, then the first
// unvisited member of the current resource, then completion.
func (r *Runtime) negotiate(resource map[string]any) negotiationOutcome {
	walletState := r.wallets.EnsureWallet(r.cfg.AgentDID)
	visited := make(map[string]bool)
	for _, u := range r.nav.History() {
		visited[u] = true
	}
	sctx := strategy.Context{
		Resource: resource,
		Wallet:   strategy.WalletView{Balances: walletState.Balances, Tokens: walletState.Tokens},
		Visited:  visited,
	}

	var decisions []strategy.Decision
	for _, s := range r.strategies {
		if !s.Matches(sctx) {
			continue
		}
		decisions = append(decisions, s.Evaluate(sctx))
	}

	var best *strategy.Decision
	for i := range decisions {
		d := &decisions[i]
		if !d.ShouldExecute {
			continue
		}
		if best == nil || d.Priority > best.Priority {
			best = d
		}
	}
	if best != nil {
		return negotiationOutcome{decision: *best}
	}

	for _, d := range decisions {
		if d.NavigateTo != "" {
			return negotiationOutcome{navigateTo: d.NavigateTo}
		}
	}

	for _, id := range memberIDs(resource) {
		if !visited[id] {
			return negotiationOutcome{navigateTo: id}
		}
	}

	return negotiationOutcome{complete: true}
}

func memberIDs(resource map[string]any) []string {
	raw, _ := resource["member"].([]any)
	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := m["id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// attest executes decision's operation, satisfying any declared
// constraint first (token gate and policy are checked locally; a
// payment constraint is satisfied by retrying once with a signed
// proof after the first attempt's 402), and records the outcome as a
// PROV activity.
func (r *Runtime) attest(ctx context.Context, decision strategy.Decision) {
	start := time.Now()
	op := decision.Operation
	method, _ := op["method"].(string)
	target, _ := op["target"].(string)
	if target == "" {
		target, _ = op["id"].(string)
	}
	actionType := actionTypeFor(op)

	if constraint, ok := op["constraint"].(map[string]any); ok {
		if err := r.satisfyLocalConstraint(constraint); err != nil {
			r.recordActivityOutcome(decision, actionType, method, target, 0, time.Since(start), err)
			return
		}
	}

	input := cloneInput(decision.Input)
	resource, status, err := r.nav.ExecuteOperation(ctx, op, input)
	if err != nil {
		if apiErr, ok := apierr.As(err); ok && apiErr.Kind == apierr.PaymentRequired && r.cfg.AutoPayEnabled {
			proof, payErr := r.tryAutoPay(apiErr)
			if payErr == nil {
				invoice, _ := apiErr.Extra["invoice"].(map[string]any)
				input["paymentProof"] = proof
				input["invoiceId"] = invoice["invoiceId"]
				resource, status, err = r.nav.ExecuteOperation(ctx, op, input)
			}
		}
	}

	if err != nil {
		r.recordActivityOutcome(decision, actionType, method, target, 0, time.Since(start), err)
		return
	}
	r.recordActivityOutcome(decision, actionType, method, target, status, time.Since(start), nil)

	label, _ := resource["title"].(string)
	if label == "" {
		label = target
	}
	if _, recErr := r.chain.RecordEntity(label, resource); recErr != nil {
		r.logger.Warn("record entity after attest failed", "agentDid", r.cfg.AgentDID, "error", recErr)
	}
}

// actionTypeFor maps an operation's declared title onto a schema.org
// action type the provenance chain can carry, falling back to a
// generic label when the title doesn't name a recognized affordance.
func actionTypeFor(op map[string]any) string {
	title, _ := op["title"].(string)
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "purchase"), strings.Contains(lower, "buy"), strings.Contains(lower, "checkout"):
		return "schema:BuyAction"
	case strings.Contains(lower, "query"), strings.Contains(lower, "search"):
		return "schema:SearchAction"
	default:
		return "execute"
	}
}

func (r *Runtime) satisfyLocalConstraint(constraint map[string]any) error {
	kind, _ := constraint["type"].(string)
	switch kind {
	case "hyprcat:TokenGateConstraint":
		return governance.CheckTokenGate(r.wallets, r.cfg.AgentDID, constraint)
	case "odrl:Policy":
		return governance.EvaluatePolicy(governance.ParsePolicy(constraint), map[string]any{"agentDid": r.cfg.AgentDID})
	default:
		// Payment constraints are satisfied reactively on the 402
		// retry path in attest/observe, not pre-checked here.
		return nil
	}
}

func (r *Runtime) recordActivityOutcome(decision strategy.Decision, actionType, method, target string, statusCode int, duration time.Duration, err error) {
	activity := provenance.Activity{
		Label:      decision.Reason,
		ActionType: actionType,
		Payload:    decision.Input,
		Strategy:   decision.Reason,
		Method:     method,
		TargetURL:  target,
		StatusCode: statusCode,
		Duration:   duration,
	}
	if err != nil {
		activity.StatusCode = 500
		activity.Payload = map[string]any{"error": err.Error()}
	}
	if _, recErr := r.chain.RecordActivity(activity); recErr != nil {
		r.logger.Warn("record activity failed", "agentDid", r.cfg.AgentDID, "error", recErr)
	}
}

func cloneInput(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = v
	}
	return out
}
