// Package server wires HyprCAT's HTTP surface: content negotiation,
// authentication, rate limiting, CORS, and the routes table, built on
// the identity service's http.ServeMux-plus-middleware-chain shape.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hyprcat/hyprcat/internal/catalog"
	"github.com/hyprcat/hyprcat/internal/config"
	"github.com/hyprcat/hyprcat/internal/governance"
	"github.com/hyprcat/hyprcat/internal/identity"
	"github.com/hyprcat/hyprcat/internal/provenance"
	"github.com/hyprcat/hyprcat/internal/store"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

type contextKey string

const contextKeyCorrelationID contextKey = "correlationId"

const (
	headerCorrelationID = "X-Correlation-Id"
	headerVersion        = "X-HyprCAT-Version"
	protocolVersion       = "v1"
)

// Handler wires every HTTP endpoint over the domain services.
type Handler struct {
	cfg         config.Config
	store       store.Store
	catalog     *catalog.Service
	identity    *identity.Service
	wallets     *wallet.Store
	governance  *governance.Service
	provenance  *provenance.Service
	chains      *chainRegistry
	logger      *slog.Logger
	clock       func() time.Time
	router      *http.ServeMux
	rateLimiter *rateLimiter
}

// New constructs a Handler and registers every route.
func New(cfg config.Config, resourceStore store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	wallets := wallet.New()
	provSvc := provenance.New()
	h := &Handler{
		cfg:         cfg,
		store:       resourceStore,
		catalog:     catalog.New(resourceStore),
		identity:    identity.New(cfg.JWTSecret, cfg.Env != "production"),
		wallets:     wallets,
		governance:  governance.NewService(wallets, cfg.PaymentSecret),
		provenance:  provSvc,
		chains:      newChainRegistry(provSvc),
		logger:      logger,
		clock:       time.Now,
		router:      http.NewServeMux(),
		rateLimiter: newRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
	}
	h.registerRoutes()
	return h
}

// Router returns the fully wired *http.ServeMux.
func (h *Handler) Router() *http.ServeMux { return h.router }

// Seed populates the resource store with the demonstration mesh. Safe
// to call on every startup; seeding is idempotent.
func (h *Handler) Seed(ctx context.Context) error {
	return catalog.Seed(ctx, h.store)
}

func (h *Handler) registerRoutes() {
	h.handle("/health", false, h.handleHealth)
	h.handle("/ready", false, h.handleReady)
	h.handle("/stats", false, h.handleStats)
	h.handle("/metrics", false, metricsHandler())

	h.handle("/.well-known/", false, h.handleWellKnown)
	h.handle("/", false, h.handleRoot)
	h.handle("/catalog", false, h.handleCatalogSearch)
	h.handle("/prompts", false, h.handlePrompts)
	h.handle("/nodes", false, h.handleNodesRegister)
	h.handle("/nodes/", false, h.handleNodeFetch)

	h.handle("/operations/checkout", false, h.handleCheckout)
	h.handle("/operations/query", false, h.handleFederatedQuery)
	h.handle("/operations/lrs/export", false, h.handleLearningRecordExport)
	h.handle("/operations/token/mint", false, h.handleTokenMint)
	h.handle("/operations/token/burn", false, h.handleTokenBurn)

	h.handle("/auth/challenge", false, h.handleAuthChallenge)
	h.handle("/auth/verify", false, h.handleAuthVerify)
	h.handle("/auth/profile", true, h.handleAuthProfile)

	h.handle("/wallet", true, h.handleWalletSnapshot)
}

// handle wraps fn in the full middleware chain. requireAuth marks
// routes that must resolve an identity before the handler runs; routes
// that merely attribute optimistically (via X-Agent-DID) pass false
// and resolve identity themselves when present.
func (h *Handler) handle(pattern string, requireAuth bool, fn http.HandlerFunc) {
	chain := h.withRecover(fn)
	chain = h.withRateLimit(chain)
	chain = h.withAuth(requireAuth, chain)
	chain = h.withNegotiation(chain)
	chain = h.withCORS(chain)
	chain = h.withCorrelationID(chain)
	chain = h.withTimeout(chain)
	chain = h.withLogging(chain)
	h.router.Handle(pattern, chain)
}
