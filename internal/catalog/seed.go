// Package catalog seeds and serves the mesh's resource graph: a small
// deterministic set of demonstration resources, registration of new
// ones, and paginated search over the whole graph.
package catalog

import (
	"context"
	"fmt"

	"github.com/hyprcat/hyprcat/internal/ld"
	"github.com/hyprcat/hyprcat/internal/store"
)

// CanonicalOrigin is the fixed origin every seeded resource id is
// rooted under. The HTTP surface's /nodes/:type[/...] route derives a
// resource id from its path suffix by joining it to this origin, so a
// path-based fetch and a direct store lookup always agree.
const CanonicalOrigin = "https://www.hyprcat.dev"

const (
	rootID    = CanonicalOrigin + "/"
	catalogID = CanonicalOrigin + "/catalog"
)

// ResourceID joins a /nodes/:type[/...] path suffix to CanonicalOrigin.
func ResourceID(pathSuffix string) string {
	return CanonicalOrigin + "/" + pathSuffix
}

// Seed writes the fixed demonstration mesh into s if it is not already
// present, keyed by rootID so repeated calls (e.g. on every process
// start) are idempotent. The mesh mirrors a minimal but complete
// hypermedia surface: a service description, a root document, a
// catalog collection, a retail store, a data product, a learning
// record, and a prompts collection. Each of the retail store's products
// is also stored under its own id, so it can be fetched and searched
// directly.
func Seed(ctx context.Context, s store.Store) error {
	if _, err := s.Get(ctx, rootID); err == nil {
		return nil
	} else if err != store.ErrNotFound {
		return fmt.Errorf("catalog: seed: check root: %w", err)
	}

	resources := []map[string]any{
		serviceDescription(),
		rootDocument(),
		catalogCollection(),
		retailStore(),
		dataProduct(),
		learningRecord(),
		promptsCollection(),
	}
	for _, r := range resources {
		id, _ := r["id"].(string)
		if err := s.Put(ctx, id, r); err != nil {
			return fmt.Errorf("catalog: seed: put %s: %w", id, err)
		}
	}
	products, _ := retailStore()["member"].([]any)
	for _, m := range products {
		product, _ := m.(map[string]any)
		id, _ := product["id"].(string)
		if err := s.Put(ctx, id, product); err != nil {
			return fmt.Errorf("catalog: seed: put %s: %w", id, err)
		}
	}
	return nil
}

func baseContext() any {
	return ld.CanonicalContext
}

func serviceDescription() map[string]any {
	return map[string]any{
		"@context":    baseContext(),
		"id":          "https://www.hyprcat.dev/.well-known/service",
		"type":        "hydra:ApiDocumentation",
		"title":       "HyprCAT demonstration mesh",
		"description": "Hypermedia catalog and agent transaction protocol gateway.",
		"entrypoint":  rootID,
	}
}

func rootDocument() map[string]any {
	return map[string]any{
		"@context":    baseContext(),
		"id":          rootID,
		"type":        "hydra:Resource",
		"title":       "HyprCAT root",
		"description": "Entry point for the demonstration mesh.",
		"operation": []any{
			map[string]any{
				"method": "GET",
				"title":  "Browse the catalog",
				"target": catalogID,
			},
		},
		"member": []any{
			map[string]any{"id": catalogID, "type": "hydra:Collection"},
		},
	}
}

func catalogCollection() map[string]any {
	return map[string]any{
		"@context":    baseContext(),
		"id":          catalogID,
		"type":        "hydra:Collection",
		"title":       "Catalog",
		"description": "Every registered resource in the mesh.",
		"member": []any{
			map[string]any{"id": "https://www.hyprcat.dev/store/retail-001"},
			map[string]any{"id": "https://www.hyprcat.dev/data/analytics-001"},
			map[string]any{"id": "https://www.hyprcat.dev/learning/record-001"},
			map[string]any{"id": "https://www.hyprcat.dev/prompts"},
		},
		"totalItems": 4,
	}
}

func retailStore() map[string]any {
	return map[string]any{
		"@context":    baseContext(),
		"id":          "https://www.hyprcat.dev/store/retail-001",
		"type":        "schema:Store",
		"title":       "Wayfinder Outfitters",
		"description": "A demonstration retail storefront selling trail gear.",
		"domain":      "retail",
		// The store root keeps its own generic purchase affordance for
		// callers that checkout directly against the storefront, and
		// also lists its products as members, each carrying its own
		// price, stock, and buy-action affordance.
		"operation": []any{
			map[string]any{
				"method": "POST",
				"title":  "Purchase from the storefront",
				"target": "https://www.hyprcat.dev/store/retail-001/purchase",
				"expects": []any{
					map[string]any{"property": "schema:name", "required": true, "datatype": "string"},
				},
				"constraint": map[string]any{
					"type":          "x402:PaymentConstraint",
					"x402:amount":   25,
					"x402:currency": "SAT",
				},
			},
		},
		"member": []any{
			retailProduct("https://www.hyprcat.dev/store/retail-001/products/widget", "Trail widget", 25, 12),
			retailProduct("https://www.hyprcat.dev/store/retail-001/products/canteen", "Insulated canteen", 40, 6),
			retailProduct("https://www.hyprcat.dev/store/retail-001/products/tarp", "Ultralight tarp", 60, 0),
		},
	}
}

// retailProduct builds one store member carrying its own price, stock,
// and buy-action affordance with an attached payment constraint, the
// shape Retail.Evaluate walks member-by-member looking for.
func retailProduct(id, title string, priceSAT, stock int64) map[string]any {
	return map[string]any{
		"id":    id,
		"type":  "schema:Product",
		"title": title,
		"price": priceSAT,
		"stock": stock,
		"operation": []any{
			map[string]any{
				"method": "POST",
				"title":  "Purchase " + title,
				"target": id + "/purchase",
				"expects": []any{
					map[string]any{"property": "schema:name", "required": true, "datatype": "string"},
				},
				"constraint": map[string]any{
					"type":          "x402:PaymentConstraint",
					"x402:amount":   priceSAT,
					"x402:currency": "SAT",
				},
			},
		},
	}
}

func dataProduct() map[string]any {
	return map[string]any{
		"@context":    baseContext(),
		"id":          "https://www.hyprcat.dev/data/analytics-001",
		"type":        "czero:DataProduct",
		"title":       "Regional sales analytics",
		"description": "A virtual graph over the federation engine's sales and analytics sources.",
		"domain":      "analytics",
		"operation": []any{
			map[string]any{
				"method": "POST",
				"title":  "Query the virtual graph",
				"target": "https://www.hyprcat.dev/data/analytics-001/query",
				"expects": []any{
					map[string]any{"property": "czero:statement", "required": true, "datatype": "string"},
				},
			},
		},
	}
}

func learningRecord() map[string]any {
	return map[string]any{
		"@context":    baseContext(),
		"id":          "https://www.hyprcat.dev/learning/record-001",
		"type":        "hyprcat:LearningRecord",
		"title":       "Agent onboarding transcript",
		"description": "A sample learning record with an export affordance.",
		"domain":      "learning",
		"operation": []any{
			map[string]any{
				"method": "GET",
				"title":  "Export the record",
				"target": "https://www.hyprcat.dev/learning/record-001/export",
			},
		},
	}
}

func promptsCollection() map[string]any {
	return map[string]any{
		"@context":    baseContext(),
		"id":          "https://www.hyprcat.dev/prompts",
		"type":        "hydra:Collection",
		"title":       "Prompt library",
		"description": "Reusable prompts for strategy-driven agents.",
		"domain":      "prompts",
		"member": []any{
			map[string]any{"id": "https://www.hyprcat.dev/prompts/negotiate-purchase", "type": "hyprcat:Prompt"},
		},
	}
}
