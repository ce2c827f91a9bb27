// Package strategy holds the pluggable negotiation logic the agent
// runtime consults each iteration: given the currently observed
// resource and the agent's wallet, decide whether (and what) to
// execute next.
package strategy

import "github.com/hyprcat/hyprcat/internal/ld"

// WalletView is the read-only wallet snapshot a strategy may consult.
type WalletView struct {
	Balances map[string]int64
	Tokens   map[string]int64
}

// Balance returns the wallet's holding of currency, 0 if absent.
func (w WalletView) Balance(currency string) int64 {
	return w.Balances[currency]
}

// Context is everything a strategy needs to decide on one iteration.
type Context struct {
	Resource map[string]any
	Wallet   WalletView
	Visited  map[string]bool
	Override map[string]any
}

// Decision is a strategy's proposed next action. ShouldExecute with a
// nil Operation is invalid; the runtime treats NavigateTo as a
// fallback suggestion when no decision proposes an execution.
type Decision struct {
	ShouldExecute bool
	Operation     map[string]any
	Input         map[string]any
	NavigateTo    string
	Reason        string
	Priority      int
}

// Strategy is the negotiation contract every built-in and custom
// strategy implements.
type Strategy interface {
	Name() string
	TriggerTypes() []string
	Description() string
	Matches(ctx Context) bool
	Evaluate(ctx Context) Decision
}

// MatchesTypes reports whether any of a resource's declared types
// intersects triggerTypes, the shared test every built-in strategy's
// Matches uses.
func MatchesTypes(resource map[string]any, triggerTypes []string) bool {
	resourceTypes := ld.TypesOf(resource)
	for _, want := range triggerTypes {
		for _, got := range resourceTypes {
			if want == got {
				return true
			}
		}
	}
	return false
}

func membersOf(resource map[string]any) []map[string]any {
	raw, _ := resource["member"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func numberField(node map[string]any, key string) (float64, bool) {
	switch v := node[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
