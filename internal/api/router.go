package api

import (
	"time"

	"ice-ref/internal/rink"
	"ice-ref/internal/rules"
	"ice-ref/internal/sim"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RulesInterface defines the rule-engine methods used by the API.
// This interface enables mocking for tests without spinning up the full
// tick loop. Keep this minimal - only include methods the API layer
// actually calls.
type RulesInterface interface {
	// StartMonitoring arms rule detection
	StartMonitoring()
	// StopMonitoring idles rule detection and clears transient state
	StopMonitoring()
	// ResetAfterFaceoff restarts detection after a stoppage
	ResetAfterFaceoff(pos *rink.Position)
	// DebugInfo returns the engine's introspection snapshot
	DebugInfo() rules.DebugInfo
	// ZoneFromPosition classifies a position for tooling
	ZoneFromPosition(pos rink.Position) rink.Zone
	// AllFaceoffPositions returns every faceoff spot on the rink
	AllFaceoffPositions() []rink.Position
	// EventStats returns rule-event log counters
	EventStats() map[string]interface{}
}

// WorldInterface defines the world-state methods used by the API.
// Implemented by sim.Rink; mockable for handler tests.
type WorldInterface interface {
	// Snapshot returns an immutable copy of the world
	Snapshot() sim.Snapshot
	// AddPlayer puts a player on the roster
	AddPlayer(id string, team rink.Team, pos rink.Position) (*sim.Player, error)
	// RemovePlayer drops a player from the roster
	RemovePlayer(id string)
	// MovePlayer repositions a player
	MovePlayer(id string, pos rink.Position)
	// SetPlayerVelocity sets a player's skating velocity
	SetPlayerVelocity(id string, vel rink.Position)
	// SpawnPuck places the puck on the ice
	SpawnPuck(pos rink.Position)
	// MovePuck repositions the puck
	MovePuck(pos rink.Position)
	// SetPuckVelocity sets the puck's velocity
	SetPuckVelocity(vel rink.Position)
	// GiveControl hands puck possession to a player
	GiveControl(playerID string, now time.Time)
	// ReleaseControl marks the puck loose
	ReleaseControl()
	// SetPhase transitions the game phase
	SetPhase(phase rules.GamePhase)
}

// RendererInterface draws world snapshots for the debug view
type RendererInterface interface {
	RenderPNG(snap sim.Snapshot) ([]byte, error)
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    World:  mockWorld,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the rule engine (required)
	Engine RulesInterface

	// World is the mutable rink state (required)
	World WorldInterface

	// Renderer draws the rink PNG; if nil the endpoint returns 404
	Renderer RendererInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default local origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
// This is used internally to pass handlers to route setup.
type routerHandlers struct {
	engine   RulesInterface
	world    WorldInterface
	renderer RendererInterface
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects:
//   - No goroutines are started
//   - No network listeners are opened
//   - No background workers are launched
//
// This makes it safe to use in tests with httptest.NewServer.
//
// Example:
//
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/state")
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Create handlers struct
	h := &routerHandlers{
		engine:   cfg.Engine,
		world:    cfg.World,
		renderer: cfg.Renderer,
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// World state and introspection
		r.Get("/state", h.handleGetState)
		r.Get("/debug", h.handleGetDebug)
		r.Get("/zone", h.handleGetZone)
		r.Get("/faceoffs", h.handleGetFaceoffs)
		r.Get("/events/stats", h.handleGetEventStats)

		// Monitoring control
		r.Post("/monitor/start", h.handleMonitorStart)
		r.Post("/monitor/stop", h.handleMonitorStop)
		r.Post("/faceoff/reset", h.handleFaceoffReset)
		r.Post("/phase", h.handleSetPhase)

		// Roster management
		r.Post("/player/join", h.handlePlayerJoin)
		r.Post("/player/leave", h.handlePlayerLeave)
		r.Post("/player/move", h.handlePlayerMove)

		// Puck control (drills and manual testing)
		r.Post("/puck/spawn", h.handlePuckSpawn)
		r.Post("/puck/move", h.handlePuckMove)
		r.Post("/puck/shoot", h.handlePuckShoot)
		r.Post("/puck/control", h.handlePuckControl)
		r.Post("/puck/release", h.handlePuckRelease)
	})

	// Overhead rink view for debugging
	r.Get("/rink.png", h.handleRinkPNG)

	return r
}
