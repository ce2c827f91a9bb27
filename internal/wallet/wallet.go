// Package wallet holds per-DID balances, token holdings, and
// subscriptions. Mutations are serialized per DID through a sharded
// lock table so unrelated DIDs never contend, while concurrent debits
// against the same DID can never race a balance negative.
package wallet

import (
	"hash/fnv"
	"sync"

	"github.com/hyprcat/hyprcat/internal/apierr"
)

// DemoCurrency and DemoBalance describe the fixed starting grant every
// DID receives on its first successful identity verification.
const (
	DemoCurrency = "SAT"
	DemoBalance  = 10000

	shardCount = 32
)

// State is the wallet record persisted per DID.
type State struct {
	DID           string
	Balances      map[string]int64
	Tokens        map[string]int64
	Subscriptions []string
}

func newState(did string) State {
	return State{
		DID:      did,
		Balances: map[string]int64{DemoCurrency: DemoBalance},
		Tokens:   map[string]int64{},
	}
}

func cloneState(s State) State {
	balances := make(map[string]int64, len(s.Balances))
	for k, v := range s.Balances {
		balances[k] = v
	}
	tokens := make(map[string]int64, len(s.Tokens))
	for k, v := range s.Tokens {
		tokens[k] = v
	}
	return State{
		DID:           s.DID,
		Balances:      balances,
		Tokens:        tokens,
		Subscriptions: append([]string(nil), s.Subscriptions...),
	}
}

type shard struct {
	mu      sync.Mutex
	wallets map[string]State
}

// Store is the sharded per-DID wallet table.
type Store struct {
	shards [shardCount]*shard
}

// New returns an empty wallet Store.
func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{wallets: make(map[string]State)}
	}
	return s
}

func (s *Store) shardFor(did string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(did))
	return s.shards[h.Sum32()%shardCount]
}

// Get returns the wallet on file for did, if any.
func (s *Store) Get(did string) (State, bool) {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	state, ok := sh.wallets[did]
	if !ok {
		return State{}, false
	}
	return cloneState(state), true
}

// Put creates or overwrites the wallet record for did.
func (s *Store) Put(did string, state State) {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.wallets[did] = cloneState(state)
}

// EnsureWallet returns the existing wallet for did, or creates one with
// the fixed demo balance and no tokens if this is the DID's first
// appearance.
func (s *Store) EnsureWallet(did string) State {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	state, ok := sh.wallets[did]
	if !ok {
		state = newState(did)
		sh.wallets[did] = state
	}
	return cloneState(state)
}

// Debit atomically subtracts amount in currency from did's balance.
// Fails with InsufficientFunds if the result would go negative; the
// balance is left untouched on failure.
func (s *Store) Debit(did, currency string, amount int64) error {
	if amount <= 0 {
		return apierr.New(apierr.InvalidRequest, "Invalid amount", "debit amount must be positive")
	}
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.wallets[did]
	if !ok {
		state = newState(did)
	}
	if state.Balances[currency] < amount {
		return apierr.New(apierr.PaymentRequired, "Insufficient funds", "wallet balance is insufficient for this debit").
			WithExtra(map[string]any{"currency": currency, "required": amount, "available": state.Balances[currency]})
	}
	state.Balances[currency] -= amount
	sh.wallets[did] = state
	return nil
}

// Credit atomically adds amount in currency to did's balance, creating
// the wallet if absent.
func (s *Store) Credit(did, currency string, amount int64) error {
	if amount <= 0 {
		return apierr.New(apierr.InvalidRequest, "Invalid amount", "credit amount must be positive")
	}
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.wallets[did]
	if !ok {
		state = newState(did)
	}
	state.Balances[currency] += amount
	sh.wallets[did] = state
	return nil
}

// GrantToken sets did's balance for a token id, creating the wallet if
// absent. The amount replaces any previous holding of that token; the
// token mint and burn handlers use it to set the new balance.
func (s *Store) GrantToken(did, tokenID string, amount int64) {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	state, ok := sh.wallets[did]
	if !ok {
		state = newState(did)
	}
	state.Tokens[tokenID] = amount
	sh.wallets[did] = state
}

// TokenBalance reports did's holding of tokenID, 0 if the wallet or
// token entry is absent.
func (s *Store) TokenBalance(did, tokenID string) int64 {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	state, ok := sh.wallets[did]
	if !ok {
		return 0
	}
	return state.Tokens[tokenID]
}
