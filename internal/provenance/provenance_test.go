package provenance

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyprcat/hyprcat/internal/apierr"
)

func TestActivityRequiresCurrentEntity(t *testing.T) {
	svc := New()
	chain := svc.StartChain("did:key:agent-1")
	_, err := chain.RecordActivity(Activity{Label: "fetch"})
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.InvalidRequest {
		t.Fatalf("expected InvalidRequest for missing current entity, got %v", err)
	}
}

func TestRecordEntityThenActivitySetsUsedEntityID(t *testing.T) {
	svc := New()
	chain := svc.StartChain("did:key:agent-1")

	entity, err := chain.RecordEntity("observed root", map[string]any{"id": "https://example.com"})
	if err != nil {
		t.Fatalf("record entity: %v", err)
	}

	activity, err := chain.RecordActivity(Activity{Label: "negotiate", ActionType: "negotiate"})
	if err != nil {
		t.Fatalf("record activity: %v", err)
	}
	if activity.UsedEntityID != entity.ID {
		t.Fatalf("usedEntityId = %q, want %q", activity.UsedEntityID, entity.ID)
	}
	if activity.AgentDID != "did:key:agent-1" {
		t.Fatalf("agentDid = %q", activity.AgentDID)
	}
}

func TestCurrentEntityAdvancesOnNewEntity(t *testing.T) {
	svc := New()
	chain := svc.StartChain("did:key:agent-1")

	first, _ := chain.RecordEntity("first", nil)
	_, _ = chain.RecordActivity(Activity{Label: "act-1"})
	second, _ := chain.RecordEntity("second", nil)
	activity, err := chain.RecordActivity(Activity{Label: "act-2"})
	if err != nil {
		t.Fatalf("record activity: %v", err)
	}
	if activity.UsedEntityID != second.ID {
		t.Fatalf("expected activity to reference the most recent entity %q, got %q", second.ID, activity.UsedEntityID)
	}
	if activity.UsedEntityID == first.ID {
		t.Fatal("activity should not reference the stale entity")
	}
}

func TestSealedChainRejectsFurtherAppends(t *testing.T) {
	svc := New()
	chain := svc.StartChain("did:key:agent-1")
	chain.RecordEntity("baseline", nil)
	chain.Seal()

	if _, err := chain.RecordEntity("late", nil); err == nil {
		t.Fatal("expected sealed chain to reject entity append")
	}
	if _, err := chain.RecordActivity(Activity{Label: "late"}); err == nil {
		t.Fatal("expected sealed chain to reject activity append")
	}
}

func TestHistoryOfOrdersChainsByStartTime(t *testing.T) {
	svc := New()
	svc.StartChain("did:key:agent-1")
	svc.StartChain("did:key:agent-1")
	history := svc.HistoryOf("did:key:agent-1")
	if len(history) != 2 {
		t.Fatalf("expected 2 chains, got %d", len(history))
	}
	if history[0].StartedAt.After(history[1].StartedAt) {
		t.Fatal("expected chains in ascending start-time order")
	}
}

func TestConcurrentActivitiesOnOneChainDontRace(t *testing.T) {
	svc := New()
	chain := svc.StartChain("did:key:agent-1")
	_, err := chain.RecordEntity("baseline", nil)
	require.NoError(t, err)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = chain.RecordActivity(Activity{Label: "concurrent"})
		}()
	}
	wg.Wait()

	// one baseline entity plus one activity per writer, every append
	// landed and the current-entity pointer never got corrupted.
	assert.Len(t, chain.Items, writers+1)
}

func TestExportEncodings(t *testing.T) {
	svc := New()
	chain := svc.StartChain("did:key:agent-1")
	chain.RecordEntity("baseline", map[string]any{"id": "https://example.com"})
	chain.RecordActivity(Activity{Label: "fetch", TargetURL: "https://example.com", StatusCode: 200})

	bundle := chain.ExportLinkedData()
	if len(bundle.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(bundle.Members))
	}

	flat := chain.ExportFlatSummary()
	if len(flat.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(flat.Entries))
	}
	if flat.Entries[1].TargetURL != "https://example.com" {
		t.Fatalf("got %+v", flat.Entries[1])
	}
}
