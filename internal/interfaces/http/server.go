// Package http is the HTTP adapter: it translates requests into service
// calls and service results into JSON responses. No business rules live
// here.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tomhaynes/invoice-intake/internal/export"
	"github.com/tomhaynes/invoice-intake/internal/extraction"
	"github.com/tomhaynes/invoice-intake/internal/service"
	"github.com/tomhaynes/invoice-intake/internal/storage"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	logger     *zap.Logger
}

// NewServer creates a new HTTP server wired to the given services
func NewServer(
	config ServerConfig,
	invoices *service.InvoiceService,
	intake *storage.Intake,
	extractor *extraction.Service,
	exporter *export.Service,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config: config,
		router: router,
		logger: logger,
	}

	router.Use(gin.Recovery())
	router.Use(server.loggingMiddleware())

	handlers := NewHandlers(invoices, intake, extractor, exporter, logger)
	server.setupRoutes(handlers)

	return server
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) setupRoutes(handlers *Handlers) {
	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api")
	{
		api.POST("/invoices/upload", handlers.UploadInvoice)
		api.POST("/invoices/extract", handlers.ExtractInvoice)
		api.POST("/invoices", handlers.CreateInvoice)
		api.GET("/invoices", handlers.ListInvoices)
		api.GET("/invoices/export", handlers.ExportInvoices)
		api.GET("/invoices/:id", handlers.GetInvoice)
		api.PATCH("/invoices/:id", handlers.UpdateInvoice)
		api.DELETE("/invoices/:id", handlers.DeleteInvoice)
		api.GET("/vendors", handlers.ListVendors)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// server fails
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
