package federation

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunEndToEnd(t *testing.T) {
	result, err := Run(context.Background(), "SELECT * FROM sales WHERE status = 'fulfilled'", "urn:uuid:activity-1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.WasGeneratedBy != "urn:uuid:activity-1" {
		t.Fatalf("got %+v", result)
	}
	if len(result.Sources) != 1 || result.Sources[0] != "https://sources.internal/sales" {
		t.Fatalf("sources = %v", result.Sources)
	}
	for _, item := range result.Items {
		if item["status"] != "fulfilled" {
			t.Fatalf("expected only fulfilled rows, got %v", item)
		}
	}
}

func TestRunPropagatesParseError(t *testing.T) {
	if _, err := Run(context.Background(), "NOT A QUERY", "urn:uuid:activity-1"); err == nil {
		t.Fatal("expected parse error to propagate")
	}
}

func TestRunWidensAcrossJoinedSources(t *testing.T) {
	result, err := Run(context.Background(), "SELECT * FROM sales JOIN inventory", "urn:uuid:activity-1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %v", result.Sources)
	}
}

func TestRunFiltersBySpendAndReportsExecutionTimeInMilliseconds(t *testing.T) {
	result, err := Run(context.Background(), "SELECT user_id, total_spend FROM analytics WHERE total_spend > 500", "urn:uuid:activity-2")
	require.NoError(t, err)
	if len(result.Items) == 0 {
		t.Fatal("expected at least one row with total_spend > 500")
	}
	for _, item := range result.Items {
		spend, _ := item["total_spend"].(float64)
		if spend <= 500 {
			t.Fatalf("expected every row to satisfy total_spend > 500, got %v", item)
		}
	}
	if !strings.HasSuffix(result.ExecutionTime, "ms") {
		t.Fatalf("executionTime = %q, want the <digits>ms form", result.ExecutionTime)
	}
	if _, err := strconv.Atoi(strings.TrimSuffix(result.ExecutionTime, "ms")); err != nil {
		t.Fatalf("executionTime = %q is not an integer millisecond count", result.ExecutionTime)
	}
}

func TestRunOrdersAndLimitsBySpend(t *testing.T) {
	result, err := Run(context.Background(), "SELECT user_id, total_spend FROM analytics ORDER BY total_spend DESC LIMIT 3", "urn:uuid:activity-3")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Items) > 3 {
		t.Fatalf("expected at most 3 items, got %d", len(result.Items))
	}
	for i := 1; i < len(result.Items); i++ {
		prev, _ := result.Items[i-1]["total_spend"].(float64)
		cur, _ := result.Items[i]["total_spend"].(float64)
		if prev < cur {
			t.Fatalf("expected non-increasing total_spend, got %v then %v", prev, cur)
		}
	}
}
