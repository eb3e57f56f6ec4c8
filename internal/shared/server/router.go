package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"patent-backend/internal/shared/config"
	"patent-backend/internal/shared/metrics"
	"patent-backend/internal/shared/server/middleware"
	"patent-backend/internal/shared/server/respond"
)

// RouteRegistrar is implemented by feature handlers.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps carries the handlers mounted under /api/v1.
type RouterDeps struct {
	Config   config.Config
	Handlers []RouteRegistrar
	DB       HealthChecker
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler(deps.DB))
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}
	return r
}

func healthHandler(database HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"database":  "memory",
		}
		if database != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := database.PingContext(ctx); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "unhealthy", "database unreachable", nil)
				return
			}
			payload["database"] = "ok"
		}
		respond.OK(c, payload)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
