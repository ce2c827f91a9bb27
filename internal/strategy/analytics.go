package strategy

import (
	"strings"

	"github.com/hyprcat/hyprcat/internal/ld"
)

// Analytics proposes querying a data product or virtual graph, falling
// back to a download affordance when no query operation is declared.
type Analytics struct {
	DefaultStatement string
}

func (a Analytics) Name() string { return "analytics" }
func (a Analytics) TriggerTypes() []string {
	return []string{"czero:DataProduct", "hyprcat:VirtualGraph"}
}
func (a Analytics) Description() string {
	return "queries a data product's virtual graph, falling back to a bulk download affordance"
}

func (a Analytics) Matches(ctx Context) bool {
	return MatchesTypes(ctx.Resource, a.TriggerTypes())
}

func (a Analytics) Evaluate(ctx Context) Decision {
	ops := ld.OperationsOf(ctx.Resource)
	if op := findOperation(ops, "query"); op != nil {
		input := ctx.Override
		if input == nil {
			statement := a.DefaultStatement
			if statement == "" {
				statement = "SELECT * FROM sales LIMIT 10"
			}
			input = map[string]any{"czero:statement": statement}
		}
		return Decision{
			ShouldExecute: true,
			Operation:     op,
			Input:         input,
			Reason:        "data product declares a query affordance",
			Priority:      8,
		}
	}
	if op := findOperation(ops, "download"); op != nil {
		return Decision{
			ShouldExecute: true,
			Operation:     op,
			Input:         map[string]any{},
			Reason:        "data product declares a download affordance",
			Priority:      6,
		}
	}
	return Decision{Reason: "no query or download affordance declared"}
}

func findOperation(ops []map[string]any, keyword string) map[string]any {
	for _, op := range ops {
		title, _ := op["title"].(string)
		target, _ := op["target"].(string)
		if strings.Contains(strings.ToLower(title), keyword) || strings.Contains(strings.ToLower(target), keyword) {
			return op
		}
	}
	return nil
}
