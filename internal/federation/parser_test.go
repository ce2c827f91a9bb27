package federation

import "testing"

func TestParseSimpleSelect(t *testing.T) {
	q, err := Parse("SELECT * FROM sales")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.From != "sales" || q.Select != nil {
		t.Fatalf("got %+v", q)
	}
	if q.Limit != defaultLimit {
		t.Fatalf("limit = %d, want default", q.Limit)
	}
}

func TestParseProjectionStripsTablePrefix(t *testing.T) {
	q, err := Parse("SELECT sales.orderId, sales.quantity FROM sales")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(q.Select) != 2 || q.Select[0] != "orderId" || q.Select[1] != "quantity" {
		t.Fatalf("got %+v", q.Select)
	}
}

func TestParseWhereWithAndAndOperators(t *testing.T) {
	q, err := Parse("SELECT * FROM sales WHERE quantity >= 10 AND status = 'fulfilled'")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(q.Where) != 2 {
		t.Fatalf("expected 2 predicates, got %d", len(q.Where))
	}
	if q.Where[0].Field != "quantity" || q.Where[0].Op != ">=" || q.Where[0].Literal.(float64) != 10 {
		t.Fatalf("got %+v", q.Where[0])
	}
	if q.Where[1].Field != "status" || q.Where[1].Op != "=" || q.Where[1].Literal.(string) != "fulfilled" {
		t.Fatalf("got %+v", q.Where[1])
	}
}

func TestParseLikePredicate(t *testing.T) {
	q, err := Parse("SELECT * FROM sales WHERE sku LIKE 'widget-%'")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Where[0].Op != "LIKE" {
		t.Fatalf("got op %q", q.Where[0].Op)
	}
}

func TestParseOrderByDesc(t *testing.T) {
	q, err := Parse("SELECT * FROM analytics ORDER BY value DESC")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.OrderBy == nil || q.OrderBy.Field != "value" || !q.OrderBy.Descending {
		t.Fatalf("got %+v", q.OrderBy)
	}
}

func TestParseLimitIsHardCapped(t *testing.T) {
	q, err := Parse("SELECT * FROM analytics LIMIT 999999")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Limit != maxLimit {
		t.Fatalf("limit = %d, want %d", q.Limit, maxLimit)
	}
}

func TestParseJoinWidensSources(t *testing.T) {
	q, err := Parse("SELECT * FROM sales JOIN inventory")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(q.Extra) != 1 || q.Extra[0] != "inventory" {
		t.Fatalf("got extra %+v", q.Extra)
	}
}

func TestParseRejectsMalformedQuery(t *testing.T) {
	if _, err := Parse("SELECT FROM WHERE"); err == nil {
		t.Fatal("expected malformed query to fail to parse")
	}
}
