package federation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hyprcat/hyprcat/internal/apierr"
)

// SourceResult is one source's contribution to a federated query:
// its rows (already filtered, sorted, projected, and limited) plus the
// source it came from.
type SourceResult struct {
	Source Source
	Rows   []map[string]any
}

// Dispatch fans the query out to every source in plan concurrently,
// each under the shared deadline in ctx, and returns results in plan
// order (contiguous per source) regardless of completion order. A
// single source failure aborts the whole dispatch with a
// FederationError naming the failed endpoint.
func Dispatch(ctx context.Context, plan Plan, q Query) ([]SourceResult, error) {
	results := make([]SourceResult, len(plan.Sources))
	errs := make([]error, len(plan.Sources))

	var wg sync.WaitGroup
	for i, src := range plan.Sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			rows, err := execute(ctx, src, q)
			if err != nil {
				errs[i] = apierr.New(apierr.FederationError, "Federation source failed", fmt.Sprintf("source %s failed: %v", src.Endpoint, err)).
					WithExtra(map[string]any{"endpoint": src.Endpoint})
				return
			}
			results[i] = SourceResult{Source: src, Rows: rows}
		}(i, src)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func execute(ctx context.Context, src Source, q Query) ([]map[string]any, error) {
	start := time.Now()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	rows := rowsFor(src.Endpoint)

	filtered := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if matchesAll(row, q.Where) {
			filtered = append(filtered, row)
		}
	}

	if q.OrderBy != nil {
		sortRows(filtered, *q.OrderBy)
	}

	if q.Limit > 0 && len(filtered) > q.Limit {
		filtered = filtered[:q.Limit]
	}

	projected := project(filtered, q.Select)

	elapsed := time.Since(start)
	for _, row := range projected {
		row["provenance"] = map[string]any{
			"sourceNode":    src.Endpoint,
			"executionTime": formatExecutionTime(elapsed),
		}
	}
	return projected, nil
}

func matchesAll(row map[string]any, predicates []Predicate) bool {
	for _, p := range predicates {
		if !matches(row, p) {
			return false
		}
	}
	return true
}

func matches(row map[string]any, p Predicate) bool {
	actual, ok := row[p.Field]
	if !ok {
		return false
	}
	if p.Op == "LIKE" {
		pattern, _ := p.Literal.(string)
		return likeMatch(fmt.Sprint(actual), pattern)
	}

	actualNum, actualIsNum := asNumber(actual)
	literalNum, literalIsNum := asNumber(p.Literal)
	if actualIsNum && literalIsNum {
		return compareNumbers(actualNum, p.Op, literalNum)
	}
	return compareStrings(fmt.Sprint(actual), p.Op, fmt.Sprint(p.Literal))
}

func compareNumbers(a float64, op string, b float64) bool {
	switch op {
	case "=":
		return a == b
	case "!=":
		return a != b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "<":
		return a < b
	case "<=":
		return a <= b
	}
	return false
}

func compareStrings(a, op, b string) bool {
	switch op {
	case "=":
		return a == b
	case "!=":
		return a != b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "<":
		return a < b
	case "<=":
		return a <= b
	}
	return false
}

// likeMatch implements a SQL LIKE subset with % as wildcard,
// case-insensitive, without regular expressions.
func likeMatch(value, pattern string) bool {
	value = strings.ToLower(value)
	pattern = strings.ToLower(pattern)
	parts := strings.Split(pattern, "%")

	if len(parts) == 1 {
		return value == pattern
	}
	if parts[0] != "" && !strings.HasPrefix(value, parts[0]) {
		return false
	}
	if last := parts[len(parts)-1]; last != "" && !strings.HasSuffix(value, last) {
		return false
	}
	cursor := value
	if parts[0] != "" {
		cursor = cursor[len(parts[0]):]
	}
	for _, mid := range parts[1 : len(parts)-1] {
		if mid == "" {
			continue
		}
		idx := strings.Index(cursor, mid)
		if idx < 0 {
			return false
		}
		cursor = cursor[idx+len(mid):]
	}
	return true
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func sortRows(rows []map[string]any, order OrderClause) {
	sort.SliceStable(rows, func(i, j int) bool {
		if order.Descending {
			i, j = j, i
		}
		a, aok := asNumber(rows[i][order.Field])
		b, bok := asNumber(rows[j][order.Field])
		if aok && bok {
			return a < b
		}
		return fmt.Sprint(rows[i][order.Field]) < fmt.Sprint(rows[j][order.Field])
	})
}

func project(rows []map[string]any, columns []string) []map[string]any {
	if len(columns) == 0 {
		return rows
	}
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		projected := make(map[string]any, len(columns))
		for _, col := range columns {
			if v, ok := row[col]; ok {
				projected[col] = v
			}
		}
		out[i] = projected
	}
	return out
}
