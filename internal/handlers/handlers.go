package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"moonlit/gallery/internal/config"
	"moonlit/gallery/internal/middleware"
	"moonlit/gallery/internal/models"
	"moonlit/gallery/internal/service"
)

// Services are the use cases the HTTP layer drives.
type Services struct {
	Gate    *service.RoleGate
	Auth    *service.AuthService
	Albums  *service.AlbumService
	Uploads *service.UploadService
}

// HealthCheck pings one backing dependency.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	gate    *service.RoleGate
	auth    *service.AuthService
	albums  *service.AlbumService
	uploads *service.UploadService
	checks  []HealthCheck
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, svc Services, checks ...HealthCheck) HandlerSet {
	return HandlerSet{
		log:     log,
		cfg:     cfg,
		gate:    svc.Gate,
		auth:    svc.Auth,
		albums:  svc.Albums,
		uploads: svc.Uploads,
		checks:  checks,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	authenticated := middleware.Auth(h.gate, h.cfg.Security.CookieName)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/signup", h.Signup)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)

		protected := v1.Group("/auth")
		protected.Use(authenticated)
		protected.POST("/logout", h.Logout)
		protected.GET("/me", h.Me)
		protected.GET("/sessions", h.ListSessions)
		protected.DELETE("/sessions/:deviceId", h.RevokeSession)
	}

	albums := v1.Group("/albums")
	albums.Use(authenticated, middleware.RequireRoles(models.UserRolePhotographer))
	albums.POST("", h.CreateAlbum)
	albums.GET("", h.ListAlbums)
	albums.GET("/:id/photos", h.ListPhotos)

	// the pipeline repeats the gate check with the raw token
	upload := v1.Group("/upload")
	upload.Use(authenticated, middleware.RequireRoles(models.UserRolePhotographer))
	upload.POST("", h.UploadPhoto)
}

func (h HandlerSet) principal(c *gin.Context) (models.Principal, bool) {
	principal, ok := middleware.Principal(c)
	if !ok {
		respondError(c, h.log, service.ErrUnauthorized)
	}
	return principal, ok
}
