package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/civicfix/municipal-reports/internal/api/handler"
	"github.com/civicfix/municipal-reports/internal/api/middleware"
	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
	"github.com/civicfix/municipal-reports/internal/core/service"
	mongodb "github.com/civicfix/municipal-reports/internal/infrastructure/db/mongo"
	"github.com/civicfix/municipal-reports/internal/infrastructure/http/handlers"
	"github.com/civicfix/municipal-reports/internal/pkg/config"
)

// directoryCacheBytes bounds the display-name cache; entries are tiny so this
// fits hundreds of thousands of names.
const directoryCacheBytes = 1 << 24

// NewRouter builds the Echo instance with all routes registered. The
// notification dispatcher is constructed by the caller because its worker
// lifecycle outlives individual requests.
func NewRouter(db *mongo.Database, rdb *redis.Client, notifier ports.Notifier, cfg *config.Config, log zerolog.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	// --- Repositories ---
	reportRepo := mongodb.NewReportRepository(db)
	analyticsRepo := mongodb.NewAnalyticsRepository(db)
	userRepo := mongodb.NewUserRepository(db)
	tenantRepo := mongodb.NewTenantRepository(db)

	// --- Services ---
	directory, err := service.NewDirectory(userRepo, directoryCacheBytes, cfg.Analytics.DirectoryCacheTTL)
	if err != nil {
		return nil, err
	}
	resolver := service.NewRecipientResolver(userRepo)
	reportService := service.NewReportService(reportRepo, userRepo, resolver, notifier, log)
	analyticsService := service.NewAnalyticsService(analyticsRepo, directory, cfg.Analytics.Budget, log)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.Auth.TokenTTL)
	tenantService := service.NewTenantService(tenantRepo, log)

	// --- Handlers ---
	reportHandler := handler.NewReportHandler(reportService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	authHandler := handler.NewAuthHandler(authService, reportService)
	tenantHandler := handler.NewTenantHandler(tenantService)
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(db, rdb)

	auth := middleware.Auth(cfg.JWTSecret)

	// --- Auth routes ---
	e.POST("/v1/auth/register", authHandler.Register)
	e.POST("/v1/auth/login", authHandler.Login)
	e.DELETE("/v1/auth/me", authHandler.DeleteAccount, auth)

	// --- Report routes ---
	reports := e.Group("/v1/reports", auth)
	reports.POST("", reportHandler.Create)
	reports.GET("", reportHandler.List)
	reports.GET("/:id", reportHandler.Get)
	reports.PATCH("/:id", reportHandler.Patch, middleware.MinRole(domain.RoleEmployee))
	reports.DELETE("/:id", reportHandler.Delete, middleware.MinRole(domain.RoleEmployee))
	reports.POST("/:id/feedback", reportHandler.Feedback)

	// --- Analytics routes ---
	analytics := e.Group("/v1/analytics", auth)
	analytics.GET("/overview", analyticsHandler.Overview)
	analytics.GET("/trends", analyticsHandler.Trends)
	analytics.GET("/heatmap", analyticsHandler.Heatmap)
	analytics.GET("/performance", analyticsHandler.Performance, middleware.MinRole(domain.RoleEmployee))
	analytics.GET("/comparative", analyticsHandler.Comparative, middleware.MinRole(domain.RoleSupervisor))

	// --- Tenant administration ---
	tenants := e.Group("/v1/tenants", auth, middleware.MinRole(domain.RoleSuperSuperAdmin))
	tenants.POST("", tenantHandler.Create)
	tenants.GET("", tenantHandler.List)
	tenants.DELETE("/:id", tenantHandler.Deactivate)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Prometheus metrics ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e, nil
}
