// Package server exposes a TagStore over HTTP.
//
//	POST /v1/find          {"tags": [{"name": "color", "value": "red"}]}
//	POST /v1/find/batch    {"queries": [[...], [...]]}
//	POST /v1/vertices      {"id": "a", "tags": [...]}
//	GET  /v1/vertices/:id
//	GET  /healthz
//	GET  /metrics
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/config"
	tagprom "github.com/hupe1980/tagfind/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures a Server.
type Options struct {
	// Logger receives request logs. Nil disables logging.
	Logger *tagfind.Logger

	// Metrics records per-route request metrics. Nil disables them.
	Metrics *tagprom.Collector

	// Gatherer is served on MetricsPath. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// MetricsPath defaults to "/metrics".
	MetricsPath string

	// Timeout bounds every backend call made for a request. 0 disables it.
	Timeout time.Duration
}

// Server represents the HTTP server.
type Server struct {
	config config.ServerConfig
	opts   Options
	store  *tagfind.TagStore
	router *gin.Engine
	server *http.Server
}

// New creates a server for store and sets up its routes.
func New(cfg config.ServerConfig, store *tagfind.TagStore, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = tagfind.NoopLogger()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	s := &Server{
		config: cfg,
		opts:   opts,
		store:  store,
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	if s.config.Mode != "" {
		gin.SetMode(s.config.Mode)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.observe())

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) setupRoutes() {
	h := &handler{store: s.store, timeout: s.opts.Timeout, logger: s.opts.Logger}

	s.router.GET("/healthz", h.health)

	v1 := s.router.Group("/v1")
	{
		v1.POST("/find", h.find)
		v1.POST("/find/batch", h.findBatch)
		v1.POST("/vertices", h.tag)
		v1.GET("/vertices/:id", h.vertex)
	}

	if s.opts.Gatherer != nil {
		s.router.GET(s.opts.MetricsPath, gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address. It returns nil after Stop.
func (s *Server) Start() error {
	s.opts.Logger.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.opts.Logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

// observe logs and measures every request under its route template.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)

		if s.opts.Metrics != nil {
			s.opts.Metrics.RecordHTTP(c.Request.Method, route, status, duration)
		}
		s.opts.Logger.Debug("request served",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", duration,
		)
	}
}
