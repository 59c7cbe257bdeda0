// Package httpapi serves the wildfire REST API plus health, readiness, and
// metrics endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emberline/wildfire-map-service/internal/cluster"
	"github.com/emberline/wildfire-map-service/internal/observability"
	"github.com/emberline/wildfire-map-service/internal/store"
)

// ClusterIndex answers viewport cluster queries.
type ClusterIndex interface {
	Query(b cluster.Bounds, zoom float64) []cluster.Node
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the wildfire API over HTTP.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	store      store.Store
	index      ClusterIndex
	ready      ReadinessChecker
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer builds the router and wires all routes.
func NewServer(addr string, st store.Store, index ClusterIndex, ready ReadinessChecker, logger *slog.Logger, metrics *observability.Metrics) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:  router,
		store:   st,
		index:   index,
		ready:   ready,
		logger:  logger,
		metrics: metrics,
	}

	router.Use(gin.Recovery(), s.corsMiddleware(), s.metricsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/wildfires", s.handleListFires)
		api.GET("/wildfires/nearby", s.handleNearbyFires)
		api.GET("/wildfires/stats", s.handleStats)
		api.GET("/wildfires/:id", s.handleGetFire)

		api.GET("/alerts/active", s.handleActiveAlerts)
		api.GET("/alerts/wildfire/:id", s.handleAlertsByFire)
		api.POST("/alerts/subscribe", s.handleSubscribe)

		api.GET("/updates/wildfire/:id", s.handleUpdatesByFire)

		api.GET("/clusters", s.handleClusters)
	}

	router.GET("/healthz", s.handleHealth)
	router.GET("/readyz", s.handleReady)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RequestDuration.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.ready.CheckReadiness(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
