package federation

import "strings"

// Source describes one backing data source available to the planner.
type Source struct {
	Endpoint    string
	MappingType string
}

// sourceDictionary maps keywords found in a query's FROM/JOIN/UNION
// clauses to a concrete source. Lookup is substring-based so
// "sales_eu" still resolves to "sales".
var sourceDictionary = map[string]Source{
	"analytics": {Endpoint: "https://sources.internal/analytics", MappingType: "columnar"},
	"sales":     {Endpoint: "https://sources.internal/sales", MappingType: "relational"},
	"inventory": {Endpoint: "https://sources.internal/inventory", MappingType: "relational"},
	"telemetry": {Endpoint: "https://sources.internal/telemetry", MappingType: "timeseries"},
}

var defaultSource = Source{Endpoint: "https://sources.internal/default", MappingType: "relational"}

// Plan is an ordered list of sources a query must be dispatched
// against. Order is significant: the merger preserves this contiguity.
type Plan struct {
	Sources []Source
}

// PlanQuery maps a parsed query's from/extra table names to concrete
// sources via keyword matching against the fixed dictionary, falling
// back to defaultSource for unrecognized names. JOIN/UNION references
// widen the plan with additional sources, deduplicated by endpoint.
func PlanQuery(q Query) Plan {
	seen := map[string]bool{}
	var sources []Source

	add := func(name string) {
		src := resolveSource(name)
		if seen[src.Endpoint] {
			return
		}
		seen[src.Endpoint] = true
		sources = append(sources, src)
	}

	add(q.From)
	for _, name := range q.Extra {
		add(name)
	}
	return Plan{Sources: sources}
}

func resolveSource(name string) Source {
	lower := strings.ToLower(name)
	for keyword, src := range sourceDictionary {
		if strings.Contains(lower, keyword) {
			return src
		}
	}
	return defaultSource
}
