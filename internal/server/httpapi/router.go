package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/godex/internal/logging"
)

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	return cors.New(cfg)
}

func NewRouter(cfg RouterConfig, logger logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(logger))
	r.Use(corsMiddleware(cfg.CORSOrigins))

	// System endpoints (no auth)
	systemH := NewSystemHandler(cfg.ReadyChecks, cfg.Export, logger)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(TimeoutMiddleware(cfg.RequestTimeout))

	userH := NewUserHandler(cfg.Users, cfg.Home, logger)
	api.POST("/register", userH.Register)
	api.POST("/login", userH.Login)
	api.POST("/refresh", userH.Refresh)

	authed := api.Group("")
	authed.Use(AuthRequired(cfg.JWTSecret))

	authed.GET("/protected", userH.Profile)
	authed.POST("/update-home", userH.UpdateHome)
	authed.POST("/export", systemH.Export)

	accountH := NewAccountHandler(cfg.Accounts, logger)
	authed.GET("/accounts", accountH.List)
	authed.POST("/accounts", accountH.Create)
	authed.DELETE("/accounts", accountH.DeleteAll)
	authed.GET("/accounts/:id", accountH.Get)
	authed.PUT("/accounts/:id", accountH.Update)
	authed.DELETE("/accounts/:id", accountH.Delete)
	authed.POST("/accounts/:id/primary", accountH.SetPrimary)
	authed.GET("/accounts/:id/stats", accountH.Stats)

	captureH := NewCaptureHandler(cfg.Captures, logger)
	authed.GET("/pokemon", captureH.List)
	authed.POST("/pokemon", captureH.Create)
	authed.DELETE("/pokemon", captureH.DeleteAll)
	authed.GET("/pokemon/:id", captureH.Get)
	authed.PUT("/pokemon/:id", captureH.Update)
	authed.DELETE("/pokemon/:id", captureH.Delete)
	authed.GET("/pokemon/account/:accountId", captureH.ListByAccount)

	return r
}
