// Package httpapi serves the dashboard API: a thin JSON layer over the
// orchestrator facade.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/grove/internal/gitrepo"
	"github.com/fyrsmithlabs/grove/internal/orchestrator"
	"github.com/fyrsmithlabs/grove/internal/state"
	"github.com/fyrsmithlabs/grove/internal/tmux"
)

// Server exposes the orchestrator over HTTP.
type Server struct {
	echo   *echo.Echo
	orch   *orchestrator.Orchestrator
	logger *zap.Logger
	host   string
	port   int
}

// NewServer creates the dashboard server.
func NewServer(orch *orchestrator.Orchestrator, logger *zap.Logger, host string, port int) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{echo: e, orch: orch, logger: logger, host: host, port: port}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")
	api.GET("/agents", s.handleListAgents)
	api.GET("/agents/:id", s.handleGetAgent)
	api.GET("/agents/:id/diff", s.handleDiff)
	api.GET("/agents/:id/output", s.handleOutput)
	api.POST("/agents/:id/merge", s.handleMerge)
	api.POST("/agents/:id/pr", s.handleCreatePR)
	api.DELETE("/agents/:id", s.handleRemove)
}

// errorResponse is the envelope every failure uses.
type errorResponse struct {
	Error string `json:"error"`
}

// httpError maps engine errors to status codes: client-correctable
// conditions get 4xx, everything else 500.
func httpError(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, state.ErrAgentNotFound):
		code = http.StatusNotFound
	case errors.Is(err, orchestrator.ErrPreconditionNotMet):
		code = http.StatusPreconditionFailed
	case errors.Is(err, gitrepo.ErrMergeConflict),
		errors.Is(err, gitrepo.ErrDirtyCheckout),
		errors.Is(err, gitrepo.ErrBranchExists),
		errors.Is(err, gitrepo.ErrPathExists),
		errors.Is(err, state.ErrDuplicateBranch),
		errors.Is(err, state.ErrDuplicatePath):
		code = http.StatusConflict
	case errors.Is(err, tmux.ErrSessionNotFound):
		code = http.StatusNotFound
	}
	return c.JSON(code, errorResponse{Error: err.Error()})
}

func agentID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, fmt.Errorf("invalid agent id %q", c.Param("id"))
	}
	return id, nil
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleListAgents(c echo.Context) error {
	infos, err := s.orch.List()
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, infos)
}

func (s *Server) handleGetAgent(c echo.Context) error {
	id, err := agentID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	info, err := s.orch.Status(id)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleDiff(c echo.Context) error {
	id, err := agentID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	summary, err := s.orch.Diff(id)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

type outputResponse struct {
	Output string `json:"output"`
}

func (s *Server) handleOutput(c echo.Context) error {
	id, err := agentID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	lines := 0
	if raw := c.QueryParam("lines"); raw != "" {
		lines, err = strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid lines parameter"})
		}
	}
	out, err := s.orch.Output(id, lines)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, outputResponse{Output: out})
}

type mergeRequest struct {
	Strategy string `json:"strategy"`
	Target   string `json:"target"`
	Force    bool   `json:"force"`
}

type mergeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleMerge(c echo.Context) error {
	id, err := agentID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	var req mergeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	strategy, err := gitrepo.ParseStrategy(req.Strategy)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	outcome, err := s.orch.Merge(id, orchestrator.MergeOptions{
		Strategy: strategy,
		Target:   req.Target,
		Force:    req.Force,
	})
	if err != nil {
		if errors.Is(err, gitrepo.ErrMergeConflict) && outcome != nil {
			return c.JSON(http.StatusConflict, mergeResponse{Success: false, Message: outcome.Message})
		}
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, mergeResponse{Success: true, Message: outcome.Message})
}

type prRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Force bool   `json:"force"`
}

type prResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleCreatePR(c echo.Context) error {
	id, err := agentID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	var req prRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	url, err := s.orch.CreatePR(c.Request().Context(), id, orchestrator.PROptions{
		Title: req.Title,
		Body:  req.Body,
		Force: req.Force,
	})
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, prResponse{URL: url})
}

func (s *Server) handleRemove(c echo.Context) error {
	id, err := agentID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	force := c.QueryParam("force") == "true"
	if err := s.orch.Remove(id, force); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.logger.Info("starting dashboard server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down dashboard server")
	return s.echo.Shutdown(ctx)
}
