package federation

import (
	"strconv"
	"time"
)

// MergedResult is the federation engine's final response shape.
type MergedResult struct {
	Items          []map[string]any `json:"items"`
	TotalResults   int              `json:"totalResults"`
	QueryLanguage  string           `json:"queryLanguage"`
	ExecutionTime  string           `json:"executionTime"`
	Sources        []string         `json:"sources"`
	WasGeneratedBy string           `json:"wasGeneratedBy"`
}

// Merge flattens every source's rows in plan order (never interleaving
// across sources) and trims the flattened sequence to the query's
// overall LIMIT. activityID is the provenance activity id this
// federated query is recorded under.
func Merge(results []SourceResult, q Query, elapsed time.Duration, activityID string) MergedResult {
	var items []map[string]any
	sources := make([]string, 0, len(results))
	for _, r := range results {
		sources = append(sources, r.Source.Endpoint)
		items = append(items, r.Rows...)
	}
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return MergedResult{
		Items:          items,
		TotalResults:   len(items),
		QueryLanguage:  "hyprcat-sql-subset",
		ExecutionTime:  formatExecutionTime(elapsed),
		Sources:        sources,
		WasGeneratedBy: activityID,
	}
}

// formatExecutionTime renders elapsed as whole milliseconds, e.g.
// "12ms", matching the wire form every duration field in a query
// response uses regardless of how small or large elapsed is.
func formatExecutionTime(elapsed time.Duration) string {
	return strconv.FormatInt(elapsed.Milliseconds(), 10) + "ms"
}
