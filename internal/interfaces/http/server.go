// Package http exposes review sessions over a JSON API. Each request maps
// to one session call and answers with the session view.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/pm-status-review/internal/application/port"
	"github.com/garyjia/pm-status-review/internal/application/review"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HealthFunc reports component health for GET /health
type HealthFunc func() (healthy bool, details interface{})

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RequestTimeout bounds the backend calls of one request
	RequestTimeout time.Duration
	// ShutdownTimeout bounds the drain of in-flight requests on Stop
	ShutdownTimeout time.Duration
	// Mode is the gin mode; empty means release
	Mode string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Mode:            gin.ReleaseMode,
	}
}

// Server serves the review session API
type Server struct {
	config     ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	logger     Logger
}

// NewServer creates a new HTTP server over the session registry. backend
// answers the read-only lookups that need no session; health may be nil.
func NewServer(
	config ServerConfig,
	registry *review.Registry,
	backend port.TaskBackend,
	health HealthFunc,
	logger Logger,
) *Server {
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	gin.SetMode(config.Mode)

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(logger), cors())
	routes(router, NewHandlers(registry, backend, health, config.RequestTimeout, logger), registry)

	return &Server{
		config: config,
		router: router,
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		},
		logger: logger,
	}
}

func routes(router *gin.Engine, h *Handlers, registry *review.Registry) {
	router.GET("/health", h.HealthCheck)

	api := router.Group("/api")
	api.GET("/managers", h.ListManagers)
	api.GET("/status-options", h.ListStatusOptions)
	api.POST("/sessions", h.CreateSession)
	api.DELETE("/sessions/:id", h.DeleteSession)

	s := api.Group("/sessions/:id", withSession(registry))
	s.GET("", h.GetSession)

	// phase and queue
	s.POST("/retry", h.Retry)
	s.POST("/manager", h.SelectManager)
	s.POST("/mode", h.ChooseMode)
	s.POST("/filter", h.ChangeFilter)
	s.POST("/change-manager", h.ChangeManager)
	s.POST("/dismiss-error", h.DismissError)
	s.POST("/tasks/:taskId", h.LoadTask)
	s.POST("/next", h.GoNext)
	s.POST("/previous", h.GoPrevious)
	s.POST("/advance", h.Advance)

	// editing
	s.POST("/status", h.ChangeStatus)
	s.POST("/draft", h.UpdateDraft)
	s.POST("/confirm-downgrade", h.ConfirmDowngrade)
	s.POST("/decline-downgrade", h.DeclineDowngrade)
	s.POST("/save", h.Save)
	s.PATCH("/field", h.UpdateField)
}

// Start serves until ctx is cancelled, then shuts down gracefully. It
// returns early if the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", "address", s.Address())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop drains in-flight requests for up to ShutdownTimeout
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the gin engine, for tests that serve requests directly
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the listen address
func (s *Server) Address() string {
	return s.httpServer.Addr
}
