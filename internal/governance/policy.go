package governance

import (
	"fmt"

	"github.com/hyprcat/hyprcat/internal/apierr"
)

// Condition is a single operator-value test against the request
// context, the same comparison shape the pack's rights-expression
// language uses for its statement "when" clauses.
type Condition struct {
	Property string
	Operator string
	Value    any
}

// Clause is one permission, prohibition, or obligation entry: an
// optional target/action match plus a list of conditions. A
// prohibition matches when its target/action match and all its
// conditions hold; an obligation applies on target/action alone, and
// its conditions are what must then hold.
type Clause struct {
	Target     string
	Action     string
	Conditions []Condition
}

// Policy is a declarative rights document: permission clauses are
// informational, prohibition clauses are fatal on match, and
// obligation clauses are fatal when their conditions are NOT met.
type Policy struct {
	Permissions  []Clause
	Prohibitions []Clause
	Obligations  []Clause
}

// EvaluatePolicy checks policy against reqCtx (the request's target,
// action, and any properties the policy's conditions reference). A
// matching prohibition or an unmet obligation is fatal; otherwise the
// request is permitted.
func EvaluatePolicy(policy Policy, reqCtx map[string]any) error {
	for _, clause := range policy.Prohibitions {
		if clauseApplies(clause, reqCtx) && conditionsHold(clause.Conditions, reqCtx) {
			return apierr.New(apierr.AccessDenied, "Policy prohibition", "a prohibition clause matched this request")
		}
	}
	for _, clause := range policy.Obligations {
		if !clauseApplies(clause, reqCtx) {
			continue
		}
		if !conditionsHold(clause.Conditions, reqCtx) {
			return apierr.New(apierr.AccessDenied, "Unsatisfied obligation", "an obligation clause was not satisfied")
		}
	}
	return nil
}

func clauseApplies(clause Clause, reqCtx map[string]any) bool {
	if clause.Target != "" {
		target, _ := reqCtx["target"].(string)
		if target != clause.Target {
			return false
		}
	}
	if clause.Action != "" {
		action, _ := reqCtx["action"].(string)
		if action != clause.Action {
			return false
		}
	}
	return true
}

func conditionsHold(conditions []Condition, reqCtx map[string]any) bool {
	for _, c := range conditions {
		if !conditionHolds(c, reqCtx) {
			return false
		}
	}
	return true
}

func conditionHolds(c Condition, reqCtx map[string]any) bool {
	actual, ok := reqCtx[c.Property]
	if !ok {
		return false
	}
	switch c.Operator {
	case "=", "==":
		return fmt.Sprint(actual) == fmt.Sprint(c.Value)
	case "!=":
		return fmt.Sprint(actual) != fmt.Sprint(c.Value)
	case ">", ">=", "<", "<=":
		a, aok := asFloat(actual)
		b, bok := asFloat(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Operator {
		case ">":
			return a > b
		case ">=":
			return a >= b
		case "<":
			return a < b
		case "<=":
			return a <= b
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// ParsePolicy decodes a policy document's loosely-typed JSON shape
// (permission/prohibition/obligation lists of clause maps) into a
// Policy.
func ParsePolicy(doc map[string]any) Policy {
	return Policy{
		Permissions:  parseClauses(doc["permission"]),
		Prohibitions: parseClauses(doc["prohibition"]),
		Obligations:  parseClauses(doc["obligation"]),
	}
}

func parseClauses(raw any) []Clause {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	clauses := make([]Clause, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		clause := Clause{
			Target: stringField(m, "target"),
			Action: stringField(m, "action"),
		}
		if rawConds, ok := m["constraint"].([]any); ok {
			for _, rc := range rawConds {
				cm, ok := rc.(map[string]any)
				if !ok {
					continue
				}
				clause.Conditions = append(clause.Conditions, Condition{
					Property: stringField(cm, "property"),
					Operator: stringField(cm, "operator"),
					Value:    cm["value"],
				})
			}
		}
		clauses = append(clauses, clause)
	}
	return clauses
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
