package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	limiterpkg "github.com/ulule/limiter/v3"

	"cazlyncNotifier/internal/auth"
	"cazlyncNotifier/internal/handlers"
)

type Deps struct {
	Events    *handlers.EventHandler
	JWTSecret string
	Limiter   *limiterpkg.Limiter
}

func SetupRoutes(e *echo.Echo, deps Deps) {
	// Public routes
	e.GET("/health", handlers.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Producer routes
	api := e.Group("/api/v1")
	api.Use(auth.RateLimitMiddleware(deps.Limiter))
	api.Use(auth.JWTMiddleware(deps.JWTSecret))

	events := api.Group("/events")
	events.POST("", deps.Events.Receive)
	events.GET("/:id", deps.Events.Status)
}
