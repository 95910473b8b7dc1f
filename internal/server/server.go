// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/info"
	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/pipeline"
	"github.com/mia-platform/unisync/internal/store"
	"github.com/mia-platform/unisync/internal/version"
	"github.com/mia-platform/unisync/internal/vertical"
)

const (
	loggerName = "unisync:server"
)

var (
	ErrServerListen        = errors.New("server listen error")
	ErrServerShutdown      = errors.New("server shutdown error")
	ErrInvalidDependencies = errors.New("invalid server dependencies")
)

// Syncer runs a pipeline sync on request.
type Syncer interface {
	Sync(ctx context.Context, pipelineID string, opts pipeline.Options) (store.Run, error)
}

// Dependencies are the collaborators the routes are served with.
type Dependencies struct {
	Store      store.Store
	Connectors *connector.Registry
	Router     *vertical.Router
	Syncer     Syncer
}

type Server struct {
	config Config
	deps   Dependencies

	app *fiber.App
}

func NewServer(ctx context.Context, cfg *Config, deps Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: missing configuration", ErrInvalidDependencies)
	}
	if deps.Store == nil || deps.Connectors == nil || deps.Router == nil || deps.Syncer == nil {
		return nil, fmt.Errorf("%w: store, connectors, router and syncer are required", ErrInvalidDependencies)
	}

	log := logger.FromContext(ctx)
	app := fiber.New(fiber.Config{
		DisableStartupMessage: cfg.DisableStartupMessage,
		Immutable:             true, // request values are read after the handler returns by the logging middleware
		ErrorHandler:          errorHandler,
	})
	app.Use(logger.RequestMiddlewareLogger(log, []string{"/-/"}))

	srv := &Server{
		config: *cfg,
		deps:   deps,
		app:    app,
	}

	statusRoutes(app, info.AppName, version.Version)
	srv.unifiedRoutes(app.Group("/unified"))
	srv.pipelineRoutes(app)

	return srv, nil
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address and blocks until the server is stopped.
func (s *Server) Start() error {
	if err := s.app.Listen(s.config.address()); err != nil {
		return fmt.Errorf("%w: %w", ErrServerListen, err)
	}
	return nil
}

// Stop gracefully shuts down the server waiting for in flight requests.
func (s *Server) Stop() error {
	if err := s.app.Shutdown(); err != nil {
		return fmt.Errorf("%w: %w", ErrServerShutdown, err)
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	log := logger.Named(ctx, loggerName)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Start()
	}()
	log.Info("server started", "address", s.config.address())

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := s.Stop(); err != nil {
		return err
	}
	return <-errChan
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// errorHandler writes the errors returned by the handlers. Internal errors are logged
// and their detail is not returned to the caller.
func errorHandler(c *fiber.Ctx, err error) error {
	code := statusCodeFor(err)
	message := err.Error()
	if code >= http.StatusInternalServerError {
		logger.Named(c.UserContext(), loggerName).Error("request failed", "status", code, "error", message)
	}
	if code == http.StatusInternalServerError {
		message = "internal error processing the request"
	}

	return c.Status(code).JSON(errorResponse{
		StatusCode: code,
		Error:      http.StatusText(code),
		Message:    message,
	})
}
