package federation

import (
	"context"
	"time"
)

// DefaultDeadline bounds how long a single federated query's dispatch
// may run before every in-flight source call is canceled.
const DefaultDeadline = 5 * time.Second

// Run parses text, plans it against the fixed source dictionary,
// dispatches concurrently under DefaultDeadline, and merges the
// per-source results. activityID, supplied by the caller's provenance
// layer, is written into the merged result's wasGeneratedBy field.
func Run(ctx context.Context, text, activityID string) (MergedResult, error) {
	query, err := Parse(text)
	if err != nil {
		return MergedResult{}, err
	}
	plan := PlanQuery(query)

	deadlineCtx, cancel := context.WithTimeout(ctx, DefaultDeadline)
	defer cancel()

	start := time.Now()
	results, err := Dispatch(deadlineCtx, plan, query)
	if err != nil {
		return MergedResult{}, err
	}
	return Merge(results, query, time.Since(start), activityID), nil
}
