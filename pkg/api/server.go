// Package api exposes the HTTP boundary of the simulator: the agent-facing
// context and action endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/monument-sim/monument/pkg/services"
)

// Server hosts the agent-facing HTTP API.
type Server struct {
	contextService   *services.ContextService
	admissionService *services.AdmissionService

	echo       *echo.Echo
	httpServer *http.Server
}

// NewServer creates a new API server with all routes registered.
func NewServer(contextService *services.ContextService, admissionService *services.AdmissionService) *Server {
	s := &Server{
		contextService:   contextService,
		admissionService: admissionService,
		echo:             echo.New(),
	}

	s.echo.Use(requestLogger())
	s.echo.Use(securityHeaders())

	s.echo.GET("/", s.healthHandler)
	s.echo.GET("/sim/:namespace/agent/:agent_id/context", s.getContextHandler)
	s.echo.POST("/sim/:namespace/agent/:agent_id/action", s.submitActionHandler)

	return s
}

// Handler returns the full handler chain, for tests.
func (s *Server) Handler() http.Handler { return withTracing(s.echo) }

// Start begins serving on addr. Blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           withTracing(s.echo),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
