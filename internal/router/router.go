package router

import (
	"time"

	"github.com/coursetalk/coursetalk-backend/internal/config"
	"github.com/coursetalk/coursetalk-backend/internal/handler"
	"github.com/coursetalk/coursetalk-backend/internal/middleware"
	"github.com/coursetalk/coursetalk-backend/internal/response"
	"github.com/coursetalk/coursetalk-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Course *handler.CourseHandler
	Alias  *handler.AliasHandler
	System *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	verifier *service.TokenVerifier,
	handlers *Handlers,
	searchLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Location", "X-RateLimit-Remaining"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", handlers.System.Health)

	// ─── 1. Course Group (Public) ──────────────────────────────────────
	courses := router.Group("/api/v1/courses")
	{
		search := courses.Group("")
		if searchLimiter != nil {
			search.Use(searchLimiter.Middleware())
		}
		search.GET("/search", handlers.Course.Search)

		page := courses.Group("")
		page.Use(middleware.NoStore())
		page.GET("/:id", handlers.Course.GetCourse)
		page.GET("/:id/reviews", handlers.Course.GetReviews)
	}

	// ─── 2. Department Group (Public, Cacheable) ──────────────────────
	departments := router.Group("/api/v1/departments")
	departments.Use(middleware.CacheControl(3600))
	{
		departments.GET("/expand", handlers.Course.ExpandDepartment)
	}

	// ─── 3. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(verifier), middleware.NoStore())
	{
		catalogWrite := middleware.RequirePermission(service.PermissionCatalogWrite)

		adminAPI.GET("/aliases/:code", handlers.Alias.GetAlias)
		adminAPI.GET("/courses/:id/aliases", handlers.Alias.ListCourseAliases)
		adminAPI.PUT("/aliases", catalogWrite, handlers.Alias.UpsertAlias)
		adminAPI.POST("/aliases/batch", catalogWrite, handlers.Alias.EnqueueBatch)
		adminAPI.POST("/aliases/backfill", catalogWrite, handlers.Alias.BackfillSelfAliases)
		adminAPI.PUT("/cross-list-groups/:group_id", catalogWrite, handlers.Alias.SyncCrossListGroup)

		// System Monitoring
		adminAPI.GET("/system/catalog", handlers.System.CatalogStatus)
	}

	return router
}
