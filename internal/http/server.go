// Package http provides the HTTP and WebSocket API for copilotd.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/copilotd/internal/copilot"
)

// Workflow dispatches one copilot turn.
type Workflow interface {
	Run(ctx context.Context, state *copilot.TurnState) error
}

// Server provides the copilot chat and sync endpoints.
type Server struct {
	echo     *echo.Echo
	workflow Workflow
	logger   *zap.Logger
	config   *Config
	metrics  *HTTPMetrics

	mu      sync.RWMutex
	sockets map[string]*websocket.Conn
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(workflow Workflow, logger *zap.Logger, cfg *Config) (*Server, error) {
	if workflow == nil {
		return nil, fmt.Errorf("workflow cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "0.0.0.0",
			Port: 8081,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := NewHTTPMetrics(logger)

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})
	e.Use(metrics.MetricsMiddleware())

	s := &Server{
		echo:     e,
		workflow: workflow,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		sockets:  make(map[string]*websocket.Conn),
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check
	s.echo.GET("/health", s.handleHealth)

	// Copilot API
	api := s.echo.Group("/api/copilot")
	api.POST("/chat", s.handleChat)

	// Calculator state sync
	s.echo.GET("/ws/copilot/sync", s.handleSync)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// handleChat runs one copilot turn for the posted message and state.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid chat request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	state := copilot.NewTurnState(req.SessionID, req.UserID, req.History, req.Message, req.CalculatorState)

	if err := s.workflow.Run(c.Request().Context(), state); err != nil {
		s.logger.Error("chat turn failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	s.metrics.recordTurn(c.Request().Context(), state.Intent)

	// Updates and artifacts render as arrays even when empty
	updates := state.PendingActions
	if updates == nil {
		updates = []copilot.Patch{}
	}

	return c.JSON(http.StatusOK, ChatResponse{
		Message:           state.Reply(),
		CalculatorUpdates: updates,
		Artifacts:         []Artifact{},
	})
}

// Echo returns the underlying Echo instance for route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
