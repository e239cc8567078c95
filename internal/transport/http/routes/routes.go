package routes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/config"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/handlers"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/middleware"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Auth        *usecase.AuthService
	KeySet      handlers.KeySet
	HTTPMetrics *middleware.HTTPMetrics
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	Database DatabaseChecker
	Cache    CacheChecker
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
func Register(deps Dependencies) (*gin.Engine, error) {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Forwarding headers are only honoured from configured proxies, so a
	// client cannot pick its own rate-limit and lockout key.
	if err := r.SetTrustedProxies(deps.Config.App.TrustedProxies); err != nil {
		return nil, fmt.Errorf("configure trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(deps.Config.App.CORSAllowedOrigins))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.HTTPMetrics.Handler())
	r.Use(middleware.BodyLimit(deps.Config.App.MaxBodyBytes))

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(metricsHandler(deps.Gatherer)))
	r.GET("/.well-known/jwks.json", handlers.NewJWKSHandler(deps.KeySet).Keys)

	if deps.Auth == nil {
		return r, nil
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(deps.Auth.RateLimiter(), domain.RateLimitTierGeneral))
	{
		authGroup := api.Group("/auth")
		handlers.NewAuthHandler(deps.Auth).RegisterRoutes(authGroup)
		handlers.NewSessionHandler(deps.Auth).RegisterRoutes(authGroup)

		adminGroup := api.Group("/admin")
		adminGroup.Use(middleware.Authenticate(deps.Auth))
		handlers.NewAdminHandler(deps.Auth, deps.Config.Security.AdminManageLevel).RegisterRoutes(adminGroup)
	}

	return r, nil
}

func metricsHandler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
