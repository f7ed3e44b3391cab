// Package api exposes the reconciliation service over HTTP. The surface is
// deliberately thin: one operation to trigger a run plus the read-only
// reporting queries. Authentication, file upload, and mock-data generation
// are not part of this service.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"payment-reconciliation-service/internal/reconciler"
	"payment-reconciliation-service/internal/reporter"
	"payment-reconciliation-service/internal/store"
	"payment-reconciliation-service/pkg/logger"
)

// Config holds HTTP server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config   Config
	engine   *gin.Engine
	store    store.Store
	service  *reconciler.Service
	reporter *reporter.Reporter
	log      logger.Logger
}

// NewServer wires the handlers onto a gin engine.
func NewServer(cfg Config, st store.Store, svc *reconciler.Service, rep *reporter.Reporter) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config:   cfg,
		engine:   engine,
		store:    st,
		service:  svc,
		reporter: rep,
		log:      logger.WithComponent("api"),
	}

	engine.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Content-Type", "X-Actor"},
		MaxAge:       12 * time.Hour,
	}))
	engine.Use(s.requestLogger())

	s.setupRoutes()
	return s
}

// Handler returns the underlying http.Handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP server and blocks until it exits.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.log.WithField("addr", addr).Info("Starting API server")
	return s.engine.Run(addr)
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api")
	{
		api.POST("/reconcile", s.handleRunReconciliation)
		api.GET("/reconcile/summary", s.handleSummary)
		api.GET("/reconcile/mismatches", s.handleMismatches)
		api.GET("/reconcile/history", s.handleHistory)
		api.GET("/reconcile/download", s.handleDownload)
		api.DELETE("/reconcile/all", s.handleDeleteAllRuns)
		api.DELETE("/reconcile/:id", s.handleDeleteRun)

		api.GET("/transactions", s.handleListTransactions)
		api.GET("/statements", s.handleListStatements)
	}
}

// requestLogger logs one line per request with method, path, status and
// latency.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logger.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("Request handled")
	}
}
