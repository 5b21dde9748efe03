package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grantflow-backend/internal/shared/config"
	"grantflow-backend/internal/shared/metrics"
	"grantflow-backend/internal/shared/server/middleware"
)

// RouteRegistrar attaches a handler's routes to the API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries everything NewRouter needs to assemble the HTTP surface.
type RouterDeps struct {
	Config   config.Config
	Handlers []RouteRegistrar
}

// NewRouter builds the gin engine with the standard middleware chain and
// mounts all registered handlers under /api/v1.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(deps.Config.CORSAllowOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	for _, h := range deps.Handlers {
		h.RegisterRoutes(api)
	}
	return r
}

// Addr formats a port into a listen address.
func Addr(port string) string {
	if port == "" {
		port = "8080"
	}
	return ":" + port
}
