package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
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

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
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

	// REST API v1 with a 15s per-request timeout
	v1 := app.Group("/v1")

	// Discovery and map queries: anonymous allowed, auth widens visibility
	read := OptionalAuth(deps)
	v1.Get("/memories/nearby", read, timeout.NewWithContext(NearbyMemoriesHandler(deps), 15*time.Second))
	v1.Get("/memories/discover", read, timeout.NewWithContext(DiscoverMemoriesHandler(deps), 15*time.Second))
	v1.Get("/memories/:id", read, timeout.NewWithContext(GetMemoryHandler(deps), 15*time.Second))
	v1.Get("/map/heatmap", timeout.NewWithContext(HeatmapHandler(deps), 15*time.Second))
	v1.Get("/map/popular-areas", timeout.NewWithContext(PopularAreasHandler(deps), 15*time.Second))
	v1.Get("/map/distance", timeout.NewWithContext(DistanceHandler(deps), 15*time.Second))
	v1.Get("/map/location-stats", timeout.NewWithContext(LocationStatsHandler(deps), 15*time.Second))
	v1.Get("/realtime/stats", RealtimeStatsHandler(deps))

	// Writes require an authenticated active account
	write := RequireAuth(deps)
	v1.Post("/memories", write, timeout.NewWithContext(CreateMemoryHandler(deps), 15*time.Second))
	v1.Post("/memories/:id/like", write, timeout.NewWithContext(LikeMemoryHandler(deps), 15*time.Second))
	v1.Post("/memories/:id/comment", write, timeout.NewWithContext(CommentMemoryHandler(deps), 15*time.Second))
	v1.Post("/memories/:id/report", write, timeout.NewWithContext(ReportMemoryHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", OptionalAuth(deps), GraphQLHandler(deps))

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
