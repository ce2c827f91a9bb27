package main

import "testing"

func TestResolveStrategiesKnownNames(t *testing.T) {
	strategies, err := resolveStrategies([]string{"retail", "analytics"})
	if err != nil {
		t.Fatalf("resolveStrategies: %v", err)
	}
	if len(strategies) != 2 {
		t.Fatalf("expected 2 strategies, got %d", len(strategies))
	}
}

func TestResolveStrategiesRejectsUnknownName(t *testing.T) {
	if _, err := resolveStrategies([]string{"bogus"}); err == nil {
		t.Fatal("expected an error for an unrecognized strategy name")
	}
}
