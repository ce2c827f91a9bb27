package provenance

import "github.com/hyprcat/hyprcat/internal/ld"

// LinkedDataBundle is the chain's export in full linked-data form: a
// members list of typed entity/activity nodes.
type LinkedDataBundle struct {
	Context   any              `json:"@context"`
	ID        string           `json:"id"`
	Agent     string           `json:"agent"`
	StartedAt string           `json:"startedAt"`
	Sealed    bool             `json:"sealed"`
	Members   []map[string]any `json:"members"`
}

// FlatSummary is the chain's export as a flat, tabular-friendly
// listing, convenient for log shipping or CSV-adjacent consumers.
type FlatSummary struct {
	ChainID   string       `json:"chainId"`
	Agent     string       `json:"agent"`
	StartedAt string       `json:"startedAt"`
	Sealed    bool         `json:"sealed"`
	Entries   []FlatEntry  `json:"entries"`
}

// FlatEntry is one row of a FlatSummary.
type FlatEntry struct {
	Kind       string `json:"kind"`
	ID         string `json:"id"`
	Label      string `json:"label"`
	Timestamp  string `json:"timestamp"`
	TargetURL  string `json:"targetUrl,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// ExportLinkedData renders the chain as a linked-data bundle whose
// members are prov:Entity and prov:Activity nodes. The bundle itself
// carries no type.
func (c *Chain) ExportLinkedData() LinkedDataBundle {
	c.mu.Lock()
	defer c.mu.Unlock()
	members := make([]map[string]any, 0, len(c.Items))
	for _, item := range c.Items {
		switch item.Kind {
		case KindEntity:
			e := item.Entity
			members = append(members, map[string]any{
				"id":        e.ID,
				"type":      "prov:Entity",
				"label":     e.Label,
				"snapshot":  e.Snapshot,
				"timestamp": e.Timestamp.Format(rfc3339),
			})
		case KindActivity:
			a := item.Activity
			members = append(members, map[string]any{
				"id":           a.ID,
				"type":         "prov:Activity",
				"label":        a.Label,
				"actionType":   a.ActionType,
				"strategy":     a.Strategy,
				"method":       a.Method,
				"targetUrl":    a.TargetURL,
				"statusCode":   a.StatusCode,
				"duration":     a.Duration.String(),
				"usedEntityId": a.UsedEntityID,
				"timestamp":    a.Timestamp.Format(rfc3339),
			})
		}
	}
	return LinkedDataBundle{
		Context:   ld.CanonicalContext,
		ID:        c.ID,
		Agent:     c.AgentDID,
		StartedAt: c.StartedAt.Format(rfc3339),
		Sealed:    c.Sealed,
		Members:   members,
	}
}

// ExportFlatSummary renders the chain as a flat, tabular listing.
func (c *Chain) ExportFlatSummary() FlatSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]FlatEntry, 0, len(c.Items))
	for _, item := range c.Items {
		switch item.Kind {
		case KindEntity:
			e := item.Entity
			entries = append(entries, FlatEntry{
				Kind:      string(KindEntity),
				ID:        e.ID,
				Label:     e.Label,
				Timestamp: e.Timestamp.Format(rfc3339),
			})
		case KindActivity:
			a := item.Activity
			entries = append(entries, FlatEntry{
				Kind:       string(KindActivity),
				ID:         a.ID,
				Label:      a.Label,
				Timestamp:  a.Timestamp.Format(rfc3339),
				TargetURL:  a.TargetURL,
				StatusCode: a.StatusCode,
			})
		}
	}
	return FlatSummary{
		ChainID:   c.ID,
		Agent:     c.AgentDID,
		StartedAt: c.StartedAt.Format(rfc3339),
		Sealed:    c.Sealed,
		Entries:   entries,
	}
}

const rfc3339 = "2006-01-02T15:04:05Z07:00"
