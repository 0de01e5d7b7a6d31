package handlers

import (
	"net/http"
	"time"

	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const defaultStreamInterval = 5 * time.Second

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services       *service.Service
	metrics        http.Handler
	jwtSecret      []byte
	streamInterval time.Duration
	log            *logger.Logger
}

// Option customises a Handler.
type Option func(*Handler)

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(hd *Handler) { hd.metrics = h }
}

// WithJWTSecret enables bearer-token checks on /api/v1. An empty secret
// leaves the group open.
func WithJWTSecret(secret string) Option {
	return func(hd *Handler) { hd.jwtSecret = []byte(secret) }
}

// WithStreamInterval sets the default push interval of /ws.
func WithStreamInterval(d time.Duration) Option {
	return func(hd *Handler) {
		if d > 0 {
			hd.streamInterval = d
		}
	}
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{
		services:       services,
		streamInterval: defaultStreamInterval,
		log:            logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	// ClientIP must come from the socket so /internal cannot be reached
	// through a forged X-Forwarded-For.
	_ = router.SetTrustedProxies(nil)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}
	router.GET("/ws", h.wsConnect)

	api := router.Group("/api/v1", h.authMiddleware)
	{
		watering := api.Group("/watering")
		{
			watering.POST("", h.triggerWatering)
			watering.GET("", h.listWatering)
			watering.GET("/:id", h.getWatering)
		}
		api.GET("/telemetry", h.getTelemetry)
		api.GET("/logs", h.getLogs)
	}

	internal := router.Group("/internal", h.loopbackOnly)
	{
		internal.POST("/watering/status", h.reportStatus)
	}

	return router
}
