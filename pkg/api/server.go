// Package api serves the discovery read path over HTTP for the web front end.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/civicchain/petition-discovery/pkg/discovery"
	"github.com/civicchain/petition-discovery/pkg/metrics"
	"github.com/civicchain/petition-discovery/pkg/petition"
	"github.com/civicchain/petition-discovery/pkg/signers"
)

// Discovery is the read path exposed by the API. discovery.Service implements it.
type Discovery interface {
	List(ctx context.Context, q discovery.Query) ([]petition.Record, error)
	Get(ctx context.Context, id uint64) (petition.Record, error)
	Signers(ctx context.Context, id uint64) signers.Result
	HasSigned(ctx context.Context, id uint64, address string) (bool, error)
	Stats(ctx context.Context) (discovery.Stats, error)
}

// Config configures the HTTP API.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
}

// NewServer builds the router and wraps it in an http.Server. m may be nil.
func NewServer(cfg Config, svc Discovery, log *zap.SugaredLogger, m *metrics.Metrics) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           newRouter(cfg, svc, log, m),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving. This is non-blocking.
// Returns a channel that receives an error if the server fails.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func newRouter(cfg Config, svc Discovery, log *zap.SugaredLogger, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log, m))

	corsCfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	h := handlers{svc: svc}
	r.GET("/petitions", h.List)
	r.GET("/petitions/:id", h.Get)
	r.GET("/petitions/:id/signers", h.Signers)
	r.GET("/petitions/:id/signed/:address", h.HasSigned)
	r.GET("/stats", h.Stats)

	return r
}

// requestLogger logs each request and records its latency by route pattern.
func requestLogger(log *zap.SugaredLogger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()
		m.RecordAPIRequest(route, status, elapsed.Seconds())

		fields := []any{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", elapsed,
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}
		if status >= http.StatusInternalServerError {
			log.Warnw("request failed", fields...)
			return
		}
		log.Debugw("request served", fields...)
	}
}
