package federation

import (
	"context"
	"testing"
)

func TestExecuteFiltersSortsAndLimits(t *testing.T) {
	q := Query{
		Where:   []Predicate{{Field: "region", Op: "!=", Literal: "apac"}},
		OrderBy: &OrderClause{Field: "total_spend", Descending: true},
		Limit:   2,
	}
	rows, err := execute(context.Background(), sourceDictionary["analytics"], q)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after limit, got %d", len(rows))
	}
	if rows[0]["region"] == "apac" {
		t.Fatal("apac should have been filtered out")
	}
	first, _ := rows[0]["total_spend"].(float64)
	second, _ := rows[1]["total_spend"].(float64)
	if first < second {
		t.Fatalf("expected descending order, got %v then %v", first, second)
	}
}

func TestExecuteStampsProvenance(t *testing.T) {
	rows, err := execute(context.Background(), sourceDictionary["sales"], Query{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, row := range rows {
		prov, ok := row["provenance"].(map[string]any)
		if !ok {
			t.Fatalf("row missing provenance: %v", row)
		}
		if prov["sourceNode"] != "https://sources.internal/sales" {
			t.Fatalf("wrong sourceNode: %v", prov["sourceNode"])
		}
	}
}

func TestLikeMatchWildcards(t *testing.T) {
	cases := []struct {
		value, pattern string
		want           bool
	}{
		{"widget-a", "widget-%", true},
		{"gadget-a", "widget-%", false},
		{"widget-a", "%-a", true},
		{"widget-a", "%idget%", true},
		{"WIDGET-A", "widget-a", true},
	}
	for _, c := range cases {
		if got := likeMatch(c.value, c.pattern); got != c.want {
			t.Errorf("likeMatch(%q, %q) = %v, want %v", c.value, c.pattern, got, c.want)
		}
	}
}

func TestDispatchAppliesProjection(t *testing.T) {
	plan := Plan{Sources: []Source{sourceDictionary["inventory"]}}
	q := Query{Select: []string{"sku", "onHand"}}
	results, err := Dispatch(context.Background(), plan, q)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	for _, row := range results[0].Rows {
		if _, ok := row["warehouse"]; ok {
			t.Fatal("warehouse should have been projected away")
		}
		if _, ok := row["sku"]; !ok {
			t.Fatal("sku should survive projection")
		}
	}
}

func TestPlanQueryDeduplicatesSources(t *testing.T) {
	q, _ := Parse("SELECT * FROM sales JOIN sales_archive")
	plan := PlanQuery(q)
	if len(plan.Sources) != 1 {
		t.Fatalf("expected dedup to one source, got %d", len(plan.Sources))
	}
}

func TestPlanQueryFallsBackToDefault(t *testing.T) {
	q, _ := Parse("SELECT * FROM mystery_table")
	plan := PlanQuery(q)
	if len(plan.Sources) != 1 || plan.Sources[0].Endpoint != defaultSource.Endpoint {
		t.Fatalf("expected default source fallback, got %+v", plan.Sources)
	}
}
