package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/maproute/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	reqTimeout := deps.RequestTimeout
	if reqTimeout <= 0 {
		reqTimeout = 15 * time.Second
	}
	rateLimit := deps.RateLimit
	if rateLimit <= 0 {
		rateLimit = 120
	}
	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, reqTimeout)
	}

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting per IP
	app.Use(limiter.New(limiter.Config{
		Max:        rateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, 429, "rate_limited", "too many requests, please try again later")
		},
		Next: func(c *fiber.Ctx) bool {
			// long-lived connections and probes are not counted
			p := c.Path()
			return p == "/ws" || p == "/metrics" || p == "/v1/health" || p == "/v1/ready"
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/map/style", MapStyleHandler(deps))

	v1.Post("/sessions", withTimeout(CreateSessionHandler(deps)))
	v1.Get("/sessions/:id", withTimeout(GetSessionHandler(deps)))
	v1.Delete("/sessions/:id", withTimeout(DeleteSessionHandler(deps)))
	v1.Post("/sessions/:id/clicks", withTimeout(ClickHandler(deps)))
	v1.Post("/sessions/:id/swap", withTimeout(SwapHandler(deps)))
	v1.Post("/sessions/:id/reset", withTimeout(ResetHandler(deps)))
	v1.Post("/sessions/:id/fit", withTimeout(FitHandler(deps)))
	v1.Post("/sessions/:id/locate", withTimeout(LocateHandler(deps)))
	v1.Get("/sessions/:id/scene", withTimeout(SceneHandler(deps)))
	v1.Get("/sessions/:id/route", withTimeout(RouteHandler(deps)))
	v1.Get("/sessions/:id/route/points", withTimeout(RoutePointsHandler(deps)))
	v1.Get("/sessions/:id/route/window", withTimeout(RouteWindowHandler(deps)))
	v1.Put("/sessions/:id/route/rows/:index", withTimeout(MeasureRowHandler(deps)))
	v1.Get("/sessions/:id/toasts", withTimeout(ToastsHandler(deps)))
	v1.Delete("/sessions/:id/toasts", withTimeout(DismissToastsHandler(deps)))
	v1.Delete("/sessions/:id/toasts/:toastId", withTimeout(DismissToastsHandler(deps)))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.OpenAPIPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		id := c.Query("session")
		if id == "" {
			return errBadRequest(c, "session query parameter is required")
		}
		if _, err := deps.Sessions.Get(c.UserContext(), id); err != nil {
			return sessionError(c, err)
		}
		c.Locals("session", id)
		return c.Next()
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
