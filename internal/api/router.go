package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	sentrygin "github.com/getsentry/sentry-go/gin"

	"github.com/d60-Lab/profile-service/config"
	"github.com/d60-Lab/profile-service/internal/api/handler"
	"github.com/d60-Lab/profile-service/internal/api/middleware"
)

// NewRouter wires middleware and routes. Follow/unfollow take the follower
// identity from the auth middleware; the :id path param is the target.
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if cfg.Trace.Enabled {
		r.Use(otelgin.Middleware("profile-service"))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	r.GET("/healthz", h.Healthz)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	users := r.Group("/users")
	users.Use(middleware.Auth(cfg.Auth.JWTSecret))
	{
		users.POST("", h.CreateUser)
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)

		users.POST("/:id/follow", h.Follow)
		users.POST("/:id/unfollow", h.Unfollow)
		users.GET("/:id/followers", h.ListFollowers)
		users.GET("/:id/following", h.ListFollowing)
	}
	return r
}
