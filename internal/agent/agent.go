// Package agent implements the Observe/Negotiate/Attest loop a
// HyprCAT agent runs against a gateway: fetch the current resource,
// let the registered strategies propose a next action, execute it
// (auto-paying when a payment constraint blocks it and the run is
// configured to), and record every step to a provenance chain.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/navigator"
	"github.com/hyprcat/hyprcat/internal/provenance"
	"github.com/hyprcat/hyprcat/internal/strategy"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

// State is one point in the run's lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// Config configures one run of the loop.
type Config struct {
	AgentDID         string
	StartURL         string
	MaxIterations    int
	IterationDelay   time.Duration
	AutoPayEnabled   bool
	AutoPayMaxAmount int64
}

// Runtime drives one agent's O.N.A. loop. It is not safe to call Run
// concurrently on the same Runtime, but Pause/Resume/Stop/State may be
// called from another goroutine while Run is in flight.
type Runtime struct {
	cfg        Config
	nav        *navigator.Client
	wallets    *wallet.Store
	provenance *provenance.Service
	strategies []strategy.Strategy
	logger     *slog.Logger

	mu         sync.Mutex
	state      State
	iteration  int
	currentURL string
	chain      *provenance.Chain

	pauseRequested bool
	stopRequested  bool
	resume         chan struct{}
}

// New returns a Runtime ready to Run.
func New(cfg Config, nav *navigator.Client, wallets *wallet.Store, prov *provenance.Service, strategies []strategy.Strategy, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IterationDelay <= 0 {
		cfg.IterationDelay = 500 * time.Millisecond
	}
	return &Runtime{
		cfg:        cfg,
		nav:        nav,
		wallets:    wallets,
		provenance: prov,
		strategies: strategies,
		logger:     logger,
		state:      StateIdle,
		resume:     make(chan struct{}),
	}
}

// State reports the run's current lifecycle state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runtime) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Pause freezes the loop at its next iteration boundary, preserving
// history and frontier.
func (r *Runtime) Pause() {
	r.mu.Lock()
	r.pauseRequested = true
	r.mu.Unlock()
}

// Resume clears any pending or active pause. Calling it before the
// loop has actually reached the pause boundary is safe: the pending
// pauseRequested flag is cleared so the loop never blocks.
func (r *Runtime) Resume() {
	r.mu.Lock()
	r.pauseRequested = false
	if r.state == StatePaused {
		close(r.resume)
		r.resume = make(chan struct{})
		r.state = StateRunning
	}
	r.mu.Unlock()
}

// Stop ends the run at its next iteration boundary and discards the
// exploration frontier; the run completes rather than erroring. A
// fetch or operation already in flight is not cancelled and runs to
// completion first.
func (r *Runtime) Stop() {
	r.mu.Lock()
	r.stopRequested = true
	r.mu.Unlock()
}

// Run drives the loop to completion: MaxIterations reached (0 means
// unbounded), an empty exploration frontier, or an explicit Stop.
func (r *Runtime) Run(ctx context.Context) error {
	r.setState(StateRunning)
	r.currentURL = r.cfg.StartURL
	r.chain = r.provenance.StartChain(r.cfg.AgentDID)

	for r.cfg.MaxIterations <= 0 || r.iteration < r.cfg.MaxIterations {
		if stop, err := r.checkControl(ctx); stop {
			if err != nil {
				r.setState(StateError)
				return err
			}
			r.setState(StateCompleted)
			return nil
		}

		resource, err := r.observe(ctx)
		if err != nil {
			r.logger.Error("observe failed", "agentDid", r.cfg.AgentDID, "url", r.currentURL, "error", err)
			r.setState(StateError)
			return err
		}

		outcome := r.negotiate(resource)
		if outcome.complete {
			r.setState(StateCompleted)
			return nil
		}
		if outcome.navigateTo != "" {
			r.currentURL = outcome.navigateTo
			r.iteration++
			continue
		}

		r.attest(ctx, outcome.decision)
		r.iteration++

		select {
		case <-time.After(r.cfg.IterationDelay):
		case <-ctx.Done():
			r.setState(StateError)
			return ctx.Err()
		}
	}

	r.setState(StateCompleted)
	return nil
}

// checkControl blocks while paused and reports whether the run should
// stop, distinguishing an explicit Stop (stop=true, err=nil) from
// context cancellation (stop=true, err set).
func (r *Runtime) checkControl(ctx context.Context) (stop bool, err error) {
	r.mu.Lock()
	if r.stopRequested {
		r.mu.Unlock()
		return true, nil
	}
	if r.pauseRequested {
		r.state = StatePaused
		resume := r.resume
		r.mu.Unlock()
		select {
		case <-resume:
		case <-ctx.Done():
			return true, ctx.Err()
		}
		return r.checkControl(ctx)
	}
	r.mu.Unlock()
	select {
	case <-ctx.Done():
		return true, ctx.Err()
	default:
		return false, nil
	}
}

// observe fetches the current URL, auto-paying and retrying once on a
// PaymentRequired response when the run is configured to, and records
// the resulting resource as the chain's current entity.
func (r *Runtime) observe(ctx context.Context) (map[string]any, error) {
	resource, err := r.nav.Fetch(ctx, r.currentURL)
	if err != nil {
		apiErr, ok := apierr.As(err)
		if !ok || apiErr.Kind != apierr.PaymentRequired {
			return nil, err
		}
		proof, retryErr := r.tryAutoPay(apiErr)
		if retryErr != nil {
			return nil, err
		}
		resource, err = r.nav.FetchWithHeaders(ctx, r.currentURL, map[string]string{"X-Payment-Proof": proof})
		if err != nil {
			return nil, err
		}
	}

	label, _ := resource["title"].(string)
	if label == "" {
		label = r.currentURL
	}
	if _, recErr := r.chain.RecordEntity(label, resource); recErr != nil {
		r.logger.Warn("record entity failed", "agentDid", r.cfg.AgentDID, "error", recErr)
	}
	return resource, nil
}

// tryAutoPay reports whether the invoice carried by apiErr is within
// the configured auto-pay budget and the agent's wallet can cover it;
// on success it debits the wallet locally and returns a signed proof.
func (r *Runtime) tryAutoPay(apiErr *apierr.Error) (string, error) {
	if !r.cfg.AutoPayEnabled {
		return "", fmt.Errorf("auto-pay disabled")
	}
	invoice, _ := apiErr.Extra["invoice"].(map[string]any)
	amount, currency, invoiceID := invoiceTerms(invoice)
	if amount <= 0 || amount > r.cfg.AutoPayMaxAmount {
		return "", fmt.Errorf("invoice amount %d exceeds auto-pay budget", amount)
	}
	if err := r.wallets.Debit(r.cfg.AgentDID, currency, amount); err != nil {
		return "", err
	}
	return signProof(r.cfg.AgentDID, invoiceID, amount), nil
}

func invoiceTerms(invoice map[string]any) (amount int64, currency, invoiceID string) {
	switch v := invoice["amount"].(type) {
	case float64:
		amount = int64(v)
	case int64:
		amount = v
	case int:
		amount = int64(v)
	}
	currency, _ = invoice["currency"].(string)
	if currency == "" {
		currency = wallet.DemoCurrency
	}
	invoiceID, _ = invoice["invoiceId"].(string)
	return amount, currency, invoiceID
}

func signProof(did, invoiceID string, amount int64) string {
	return fmt.Sprintf("sim:%s:%s:%d", did, invoiceID, amount)
}
