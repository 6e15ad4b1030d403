package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nobody-social/nobody-api/internal/config"
	"github.com/nobody-social/nobody-api/internal/handler"
	"github.com/nobody-social/nobody-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler   *handler.AuthHandler
	FeedHandler   *handler.FeedHandler
	ChatHandler   *handler.ChatHandler
	AIHandler     *handler.AIHandler
	JWTMiddleware fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), jwtMiddleware)
	}

	if deps.FeedHandler != nil {
		deps.FeedHandler.Register(api.Group("/feed"), api.Group("/posts"), jwtMiddleware)
	}

	if deps.ChatHandler != nil {
		deps.ChatHandler.Register(api.Group("/chat", jwtMiddleware))
	}

	if deps.AIHandler != nil {
		deps.AIHandler.Register(app.Group("/api/ai", jwtMiddleware))
	}

	app.Get("/metrics", observability.MetricsHandler())
}
