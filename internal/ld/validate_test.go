package ld

import "testing"

func TestValidateResourceMissingID(t *testing.T) {
	res := ValidateResource(map[string]any{"type": "schema:Product"})
	if res.OK() {
		t.Fatalf("expected missing id to fail validation")
	}
	if res.Errors[0].Code != "MISSING_ID" {
		t.Fatalf("got code %s, want MISSING_ID", res.Errors[0].Code)
	}
}

func TestValidateResourceMissingType(t *testing.T) {
	res := ValidateResource(map[string]any{"id": "https://example.com/a"})
	if res.OK() {
		t.Fatalf("expected missing type to fail validation")
	}
}

func TestValidateResourceMissingContextIsWarningOnly(t *testing.T) {
	res := ValidateResource(map[string]any{"id": "https://example.com/a", "type": "schema:Product"})
	if !res.OK() {
		t.Fatalf("missing @context alone should not fail validation: %+v", res.Errors)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != "MISSING_CONTEXT" {
		t.Fatalf("expected one MISSING_CONTEXT warning, got %+v", res.Warnings)
	}
}

func TestValidateInputShaclViolation(t *testing.T) {
	minLen := 1
	maxLen := 100
	minPrice := 0.0
	shapes := []PropertyShape{
		{Property: "schema:name", Required: true, Datatype: "string", MinLength: &minLen, MaxLength: &maxLen},
		{Property: "schema:price", Required: true, Datatype: "decimal", MinInclusive: &minPrice},
	}
	res := ValidateInput(map[string]any{"schema:name": "", "schema:price": -1.0}, shapes)
	if res.OK() {
		t.Fatalf("expected violations for empty name and negative price")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d: %+v", len(res.Errors), res.Errors)
	}
}

func TestValidateInputMissingOptionalShortCircuits(t *testing.T) {
	shapes := []PropertyShape{{Property: "schema:nickname", Required: false, MinLength: intPtr(3)}}
	res := ValidateInput(map[string]any{}, shapes)
	if !res.OK() {
		t.Fatalf("missing optional property should not fail: %+v", res.Errors)
	}
}

func TestTypesOfNormalizesSingleAndList(t *testing.T) {
	if got := TypesOf(map[string]any{"type": "schema:Product"}); len(got) != 1 || got[0] != "schema:Product" {
		t.Fatalf("got %v", got)
	}
	if got := TypesOf(map[string]any{"type": []any{"schema:Product", "hydra:Resource"}}); len(got) != 2 {
		t.Fatalf("got %v", got)
	}
}

func TestOperationsOfFoldsMemberOperations(t *testing.T) {
	node := map[string]any{
		"member": []any{
			map[string]any{"operation": map[string]any{"method": "POST", "title": "Buy"}},
		},
	}
	ops := OperationsOf(node)
	if len(ops) != 1 || ops[0]["method"] != "POST" {
		t.Fatalf("got %v", ops)
	}
}

func TestExpandCompactIRIRoundTrip(t *testing.T) {
	expanded := ExpandIRI("hydra:Collection")
	if expanded != "http://www.w3.org/ns/hydra/core#Collection" {
		t.Fatalf("got %s", expanded)
	}
	if compact := CompactIRI(expanded); compact != "hydra:Collection" {
		t.Fatalf("got %s", compact)
	}
}

func intPtr(v int) *int { return &v }
