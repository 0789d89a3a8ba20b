// Package httpserver exposes the reimbursement service over HTTP. It is a
// thin collaborator: parsing, auth guarding and status-code mapping happen
// here; every decision about the lifecycle happens in the service layer.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server wires the handlers, the auth guard and the echo engine.
type Server struct {
	echo *echo.Echo
	addr string
}

// New builds the HTTP server with all routes registered.
func New(addr string, reimb ReimbursementAPI, users UserAPI, auth Authenticator) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rh := NewReimbursementHandler(reimb)
	uh := NewUserHandler(users)

	api := e.Group("", basicAuth(auth))

	api.GET("/reimbursements", rh.list, requireResolver)
	api.POST("/reimbursements", rh.submit)
	api.GET("/reimbursements/:id", rh.get)
	api.PUT("/reimbursements/:id", rh.update)
	api.DELETE("/reimbursements/:id", rh.delete, requireResolver)
	api.PUT("/reimbursements/:id/status", rh.resolve, requireResolver)
	api.GET("/reimbursements/author/:username", rh.listForAuthor)
	api.GET("/reimbursements/type/:name", rh.filterByType, requireResolver)
	api.GET("/reimbursements/status/:name", rh.filterByStatus, requireResolver)

	api.GET("/users", uh.list, requireAdmin)
	api.GET("/users/:id", uh.get, requireAdmin)
	api.POST("/users", uh.register, requireAdmin)
	api.PUT("/users/:id", uh.update, requireAdmin)
	api.DELETE("/users/:id", uh.delete, requireAdmin)

	return &Server{echo: e, addr: addr}
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	err := s.echo.Start(s.addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Engine exposes the underlying echo instance for tests.
func (s *Server) Engine() *echo.Echo {
	return s.echo
}
