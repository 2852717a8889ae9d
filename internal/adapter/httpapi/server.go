// Package httpapi exposes the fetch/render/assess pipeline over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
	"github.com/couchcryptid/wildfire-intel-service/internal/pipeline"
	"github.com/couchcryptid/wildfire-intel-service/internal/session"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Assessor requests a risk assessment for one detection.
type Assessor interface {
	Enabled() bool
	Assess(ctx context.Context, d domain.Detection, mode domain.ResponseMode) (domain.Assessment, error)
}

// Server wires the gin router over the pipeline, session, and assessor.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	pipeline   *pipeline.Service
	store      *session.Store
	assessor   Assessor
	ready      ReadinessChecker
	markerCap  int
	mode       domain.ResponseMode
	logger     *slog.Logger
}

// Options configures a Server.
type Options struct {
	Addr      string
	Pipeline  *pipeline.Service
	Store     *session.Store
	Assessor  Assessor
	MarkerCap int
	Mode      domain.ResponseMode
	Logger    *slog.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:    engine,
		pipeline:  opts.Pipeline,
		store:     opts.Store,
		assessor:  opts.Assessor,
		ready:     opts.Pipeline,
		markerCap: opts.MarkerCap,
		mode:      opts.Mode,
		logger:    opts.Logger,
	}
	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // inference calls run inside the handler
		IdleTimeout:  60 * time.Second,
	}

	engine.Use(s.requestLogger())

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/readyz", s.handleReady)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	{
		api.POST("/detections/fetch", s.handleFetch)
		api.GET("/detections", s.handleDetections)
		api.GET("/detections/stats", s.handleStats)
		api.GET("/map", s.handleMap)
		api.POST("/detections/:id/assess", s.handleAssess)
		api.GET("/export.csv", s.handleExport)
	}

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

// ServeHTTP delegates to the gin engine, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
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
