package router

import (
	"net/http"
	"slices"
	"time"

	"avatarbot/backend/pkg/config"
	"avatarbot/backend/pkg/di"
	"avatarbot/backend/pkg/errors"
	"avatarbot/backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := container.Config
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware(r.Config.Server.AllowedOrigins))

	r.Engine.GET("/", rootHandler)
	r.Engine.GET("/health", gin.WrapF(r.Container.Health.HTTPHandler()))

	if metrics := r.Container.Observability.Handler(); metrics != nil {
		r.Engine.GET("/metrics", gin.WrapH(metrics))
	}

	// Synthesized audio, read-only and without directory listings
	r.Engine.Static(r.Config.Output.URLPrefix, r.Config.Output.Dir)

	r.Engine.GET("/ws", r.Container.WSHandler.ServeWs)
}

func rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "avatarbot running"})
}

// corsMiddleware allows browser clients from the configured origins,
// including the headers a websocket upgrade needs
func corsMiddleware(allowed []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Accept", "Upgrade", "Connection", "Cache-Control", "X-Request-ID")
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 24 * time.Hour

	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowed
	}
	return cors.New(corsConfig)
}
