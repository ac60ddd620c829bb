package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/attendance/internal/analytics"
	"github.com/your-org/attendance/internal/api/handlers"
	"github.com/your-org/attendance/internal/api/ws"
	"github.com/your-org/attendance/internal/auth"
	"github.com/your-org/attendance/internal/storage"
	"github.com/your-org/attendance/internal/vision"
)

type RouterConfig struct {
	APIKey string
	Store  storage.Store
	// Photos and Extractor are nil when object storage or the vision
	// runtime is unavailable.
	Photos    storage.PhotoStore
	Extractor vision.Extractor
	CheckIns  handlers.CheckInService
	Enroller  handlers.Enroller
	Hub       *ws.Hub
	// Dashboard carries location, on-time window and latest-log limit.
	Dashboard analytics.Params
	Checks    []handlers.Check
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.New(corsConfig()))

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Checks...)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	v1.GET("/ws", cfg.Hub.HandleWS)

	scanH := handlers.NewScanHandler(cfg.Extractor, cfg.CheckIns)
	v1.POST("/facescanner", scanH.Scan)

	userH := handlers.NewUserHandler(cfg.Store, cfg.Photos, cfg.Enroller, cfg.Extractor)
	v1.POST("/register", userH.Register)
	v1.GET("/users", userH.List)
	v1.GET("/users/:id", userH.Get)
	v1.PUT("/users/:id", userH.Update)
	v1.DELETE("/users/:id", userH.Delete)
	v1.GET("/users/:id/photo", userH.Photo)

	logH := handlers.NewLogHandler(cfg.Store, cfg.Dashboard.Location)
	v1.GET("/logs", logH.List)
	v1.GET("/logs/:id", logH.Get)
	v1.PUT("/logs/:id", logH.Update)
	v1.DELETE("/logs/:id", logH.Delete)

	dashH := handlers.NewDashboardHandler(cfg.Store, cfg.Dashboard)
	v1.GET("/dashboard", dashH.Get)

	return r
}

func corsConfig() cors.Config {
	c := cors.DefaultConfig()
	c.AllowAllOrigins = true
	c.AddAllowHeaders(auth.HeaderName)
	return c
}
