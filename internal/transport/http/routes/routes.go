package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/port"
	"github.com/arklim/weather-platform-realtime/internal/guard"
	"github.com/arklim/weather-platform-realtime/internal/infra/config"
	"github.com/arklim/weather-platform-realtime/internal/infra/security"
	"github.com/arklim/weather-platform-realtime/internal/push"
	"github.com/arklim/weather-platform-realtime/internal/transport/http/handlers"
	"github.com/arklim/weather-platform-realtime/internal/transport/http/middleware"
	"github.com/arklim/weather-platform-realtime/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth      *usecase.AuthService
	Forecasts *usecase.ForecastService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Tokens      *security.TokenService
	BruteForce  *guard.BruteForce
	Registry    port.ConnectionRegistry
	Hub         *push.Hub
	Metrics     *middleware.HTTPMetrics
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.BlockGuard())
	}

	authMiddleware := middleware.RequireAuth(deps.Tokens)

	checks := make(map[string]handlers.HealthChecker, 2)
	if deps.Database != nil {
		checks["database"] = deps.Database.Ping
	}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache.HealthCheck
	}

	healthHandler := handlers.NewHealthHandler(checks)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Logger)
		authHandler.RegisterRoutes(api, authMiddleware, buildRateLimit(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts)...)

		forecastHandler := handlers.NewForecastHandler(deps.Services.Forecasts, deps.Logger)
		forecastHandler.RegisterRoutes(api, authMiddleware, buildRateLimit(deps, "forecast_write_ip", deps.Config.RateLimit.WriteMaxAttempts)...)

		if deps.BruteForce != nil && deps.Registry != nil {
			adminHandler := handlers.NewAdminHandler(deps.BruteForce, deps.Registry, deps.Logger)
			adminHandler.RegisterRoutes(api, authMiddleware)
		}

		if deps.Hub != nil {
			wsMiddlewares := append([]gin.HandlerFunc{authMiddleware},
				buildRateLimit(deps, "websocket_connect_ip", deps.Config.RateLimit.WebsocketMaxAttempts)...)
			wsHandler := handlers.NewWSHandler(deps.Hub, deps.Config.App.InstanceID, deps.Config.CORS.AllowedOrigins, deps.Logger)
			wsHandler.RegisterRoutes(api, wsMiddlewares...)
		}
	}

	return r
}

func buildRateLimit(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Rule: guard.Rule{
			Name:   name,
			Limit:  limit,
			Window: window,
		},
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
