package federation

// mockDatasets holds a small deterministic row set per source
// endpoint, standing in for the live backing systems a real deployment
// would dispatch to. Rows are plain field maps; the dispatcher applies
// WHERE/ORDER BY/LIMIT/projection to a copy of these before returning.
var mockDatasets = map[string][]map[string]any{
	"https://sources.internal/analytics": {
		{"user_id": "user-101", "total_spend": 1250.0, "region": "us-east", "period": "2026-Q1"},
		{"user_id": "user-102", "total_spend": 980.0, "region": "us-west", "period": "2026-Q1"},
		{"user_id": "user-103", "total_spend": 765.0, "region": "eu-central", "period": "2026-Q1"},
		{"user_id": "user-104", "total_spend": 542.0, "region": "apac", "period": "2026-Q1"},
		{"user_id": "user-105", "total_spend": 310.0, "region": "us-east", "period": "2026-Q1"},
		{"user_id": "user-106", "total_spend": 75.0, "region": "us-west", "period": "2026-Q1"},
	},
	"https://sources.internal/sales": {
		{"orderId": "ord-1001", "sku": "widget-a", "quantity": 12.0, "status": "fulfilled"},
		{"orderId": "ord-1002", "sku": "widget-b", "quantity": 4.0, "status": "pending"},
		{"orderId": "ord-1003", "sku": "widget-a", "quantity": 30.0, "status": "fulfilled"},
	},
	"https://sources.internal/inventory": {
		{"sku": "widget-a", "warehouse": "wh-1", "onHand": 420.0},
		{"sku": "widget-b", "warehouse": "wh-1", "onHand": 12.0},
		{"sku": "widget-a", "warehouse": "wh-2", "onHand": 88.0},
	},
	"https://sources.internal/telemetry": {
		{"deviceId": "dev-01", "metric": "latency_ms", "value": 42.0},
		{"deviceId": "dev-02", "metric": "latency_ms", "value": 57.0},
		{"deviceId": "dev-03", "metric": "latency_ms", "value": 19.0},
	},
	"https://sources.internal/default": {
		{"note": "no dictionary match for this source name"},
	},
}

func rowsFor(endpoint string) []map[string]any {
	rows := mockDatasets[endpoint]
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		clone := make(map[string]any, len(r))
		for k, v := range r {
			clone[k] = v
		}
		out[i] = clone
	}
	return out
}
