// Package ld provides the linked-data core used across HyprCAT:
// type/operation accessors over plain resource trees, SHACL-lite input
// validation, and the IRI prefix table. It performs no RDF expansion or
// reasoning — resources stay labeled JSON trees (map[string]any)
// throughout, per the protocol's design notes.
package ld

import (
	"sort"
)

// PropertyShape is a SHACL-lite constraint on a single named property.
type PropertyShape struct {
	Property     string `json:"property"`
	Required     bool   `json:"required,omitempty"`
	Datatype     string `json:"datatype,omitempty"`
	MinLength    *int   `json:"minLength,omitempty"`
	MaxLength    *int   `json:"maxLength,omitempty"`
	MinInclusive *float64 `json:"minInclusive,omitempty"`
	MaxInclusive *float64 `json:"maxInclusive,omitempty"`
	Pattern      string `json:"pattern,omitempty"`
	In           []any  `json:"in,omitempty"`
}

// CollectionView is a materialized, paginated view over member resources.
type CollectionView struct {
	Member     []any  `json:"member"`
	TotalItems int    `json:"totalItems"`
	First      string `json:"first,omitempty"`
	Previous   string `json:"previous,omitempty"`
	Next       string `json:"next,omitempty"`
	Last       string `json:"last,omitempty"`
}

// AllowedMethods is the fixed set of HTTP methods an affordance may declare.
var AllowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// TypesOf normalizes a resource's type attribute, which may be a single
// string or a list, into an ordered sequence. types[0] is the primary type.
func TypesOf(node map[string]any) []string {
	raw, ok := node["type"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// IsOfType reports whether node declares the given type anywhere in its
// type sequence.
func IsOfType(node map[string]any, typ string) bool {
	for _, t := range TypesOf(node) {
		if t == typ {
			return true
		}
	}
	return false
}

// OperationsOf collects a resource's own "operation" attribute and folds
// in any operations nested under member[*].operation, so a collection's
// affordances are discoverable through the collection itself.
func OperationsOf(node map[string]any) []map[string]any {
	var ops []map[string]any
	if raw, ok := node["operation"]; ok {
		ops = append(ops, asOperationList(raw)...)
	}
	if members, ok := node["member"].([]any); ok {
		for _, m := range members {
			member, ok := m.(map[string]any)
			if !ok {
				continue
			}
			if raw, ok := member["operation"]; ok {
				ops = append(ops, asOperationList(raw)...)
			}
		}
	}
	return ops
}

func asOperationList(raw any) []map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if op, ok := item.(map[string]any); ok {
				out = append(out, op)
			}
		}
		return out
	default:
		return nil
	}
}

// SortedIDs returns the given resources' ids in ascending order.
// Resources without a string id are skipped.
func SortedIDs(nodes []map[string]any) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if id, ok := n["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
