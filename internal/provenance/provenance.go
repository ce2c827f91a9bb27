// Package provenance maintains an append-only, per-agent chain of
// alternating entity and activity items, exportable as linked data.
// Entity ids use the urn:uuid: scheme, matching the teacher's use of
// uuid.NewString() for correlation ids elsewhere in the stack.
package provenance

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyprcat/hyprcat/internal/apierr"
)

// ItemKind distinguishes the two item shapes a chain holds.
type ItemKind string

const (
	KindEntity   ItemKind = "entity"
	KindActivity ItemKind = "activity"
)

// Entity is a snapshot of a resource observed at a point in time.
type Entity struct {
	ID        string
	Label     string
	Snapshot  map[string]any
	Timestamp time.Time
}

// Activity is a recorded action the agent took.
type Activity struct {
	ID           string
	Label        string
	ActionType   string
	Payload      map[string]any
	Strategy     string
	Method       string
	TargetURL    string
	StatusCode   int
	Duration     time.Duration
	UsedEntityID string
	Timestamp    time.Time
	AgentDID     string
}

// Item is one position in a chain: exactly one of Entity/Activity is set.
type Item struct {
	Kind     ItemKind
	Entity   *Entity
	Activity *Activity
}

// Chain is one agent's append-only provenance sequence. Appends are
// serialized by mu so the current-entity pointer advances
// deterministically under concurrent requests from the same agent.
type Chain struct {
	ID        string
	AgentDID  string
	StartedAt time.Time
	Items     []Item
	Sealed    bool

	mu            sync.Mutex
	currentEntity string // id of the chain's current entity, "" if none
}

// Service owns every chain, keyed by agent DID. An agent may hold
// multiple chains over its lifetime (one per long-running session);
// all are retained for HistoryOf.
type Service struct {
	mu     sync.Mutex
	chains map[string][]*Chain
}

// New returns an empty provenance Service.
func New() *Service {
	return &Service{chains: make(map[string][]*Chain)}
}

// StartChain begins a new chain for agentDID and returns it. The
// caller must record a baseline entity before appending any activity.
func (s *Service) StartChain(agentDID string) *Chain {
	chain := &Chain{
		ID:        "urn:uuid:" + uuid.NewString(),
		AgentDID:  agentDID,
		StartedAt: time.Now(),
	}
	s.mu.Lock()
	s.chains[agentDID] = append(s.chains[agentDID], chain)
	s.mu.Unlock()
	return chain
}

// HistoryOf returns every chain recorded for did, ordered by start
// time ascending.
func (s *Service) HistoryOf(did string) []*Chain {
	s.mu.Lock()
	defer s.mu.Unlock()
	chains := append([]*Chain(nil), s.chains[did]...)
	return chains
}

// RecordEntity appends a new entity to the chain and advances the
// chain's current-entity pointer to it. Fails if the chain is sealed.
func (c *Chain) RecordEntity(label string, snapshot map[string]any) (*Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Sealed {
		return nil, apierr.New(apierr.InvalidRequest, "Chain sealed", "cannot append to a sealed provenance chain")
	}
	entity := &Entity{
		ID:        "urn:uuid:" + uuid.NewString(),
		Label:     label,
		Snapshot:  snapshot,
		Timestamp: time.Now(),
	}
	c.Items = append(c.Items, Item{Kind: KindEntity, Entity: entity})
	c.currentEntity = entity.ID
	return entity, nil
}

// RecordActivity appends a new activity, using the chain's current
// entity as its usedEntityId. Fails with InvalidRequest if the chain
// is sealed or has no current entity to reference.
func (c *Chain) RecordActivity(a Activity) (*Activity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Sealed {
		return nil, apierr.New(apierr.InvalidRequest, "Chain sealed", "cannot append to a sealed provenance chain")
	}
	if c.currentEntity == "" {
		return nil, apierr.New(apierr.InvalidRequest, "No current entity", "an activity cannot be appended before a baseline entity is recorded")
	}
	activity := a
	activity.ID = "urn:uuid:" + uuid.NewString()
	activity.UsedEntityID = c.currentEntity
	activity.Timestamp = time.Now()
	activity.AgentDID = c.AgentDID
	c.Items = append(c.Items, Item{Kind: KindActivity, Activity: &activity})
	return &activity, nil
}

// Seal marks the chain immutable; further RecordEntity/RecordActivity
// calls fail.
func (c *Chain) Seal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sealed = true
}

// IsSealed reports whether the chain has been sealed, synchronized
// against concurrent Seal/RecordEntity/RecordActivity calls.
func (c *Chain) IsSealed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Sealed
}
