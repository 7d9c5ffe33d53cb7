package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GhostFramer/GhostFrame/internal/handlers"
	"github.com/GhostFramer/GhostFrame/internal/middleware"
	"github.com/GhostFramer/GhostFrame/internal/services"
)

// New builds the control API router. Everything under /api except the
// version probe requires the daemon token; the host guard applies to every
// route because DNS rebinding does not care which one it hits.
func New(token string, registry *services.RegistryService, events *services.EventsService, audit *services.AuditService) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.HostGuard())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.DefaultBodyLimit())

	limiter := middleware.NewRateLimiter(300, time.Minute)

	appHandler := handlers.NewAppHandler(registry)
	auditHandler := handlers.NewAuditHandler(audit)
	backupHandler := handlers.NewBackupHandler(registry)
	eventHandler := handlers.NewEventHandler(events)
	systemHandler := handlers.NewSystemHandler(registry)
	versionHandler := handlers.NewVersionHandler()

	api := r.Group("/api")
	api.Use(limiter.Middleware())
	{
		// Public version probe so clients can detect the daemon before
		// they have a token.
		api.GET("/version", versionHandler.Get)

		protected := api.Group("")
		protected.Use(middleware.TokenAuth(token))
		{
			protected.GET("/apps", appHandler.List)
			protected.POST("/apps", appHandler.Create)
			protected.GET("/apps/discover", appHandler.Discover)
			protected.GET("/apps/:id", appHandler.Get)
			protected.DELETE("/apps/:id", appHandler.Delete)
			protected.PUT("/apps/:id/protection", appHandler.SetProtection)
			protected.PUT("/apps/:id/features/:feature", appHandler.SetFeature)
			protected.POST("/apps/:id/repair", appHandler.Repair)
			protected.POST("/apps/:id/restart", appHandler.Restart)
			protected.GET("/apps/:id/state", appHandler.RunningState)

			protected.GET("/events", eventHandler.Stream)
			protected.GET("/audit", auditHandler.List)

			protected.GET("/backup/export", backupHandler.Export)
			protected.POST("/backup/import", middleware.ImportBodyLimit(), backupHandler.Import)

			protected.GET("/system/status", systemHandler.Status)
		}
	}

	return r
}
