package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"threatwire/internal/domain"
	"threatwire/internal/usecase"
)

// Runner triggers one ingestion run; satisfied by usecase.Pipeline.
type Runner interface {
	Run(ctx context.Context) (*domain.RunResult, error)
}

// Server exposes the authenticated ingestion trigger, a liveness check,
// and the metrics endpoint.
type Server struct {
	echo   *echo.Echo
	runner Runner
	secret string
	logger *slog.Logger
}

// NewServer wires routes onto a fresh echo instance.
func NewServer(runner Runner, secret string, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, runner: runner, secret: secret, logger: logger}

	e.POST("/api/ingest", s.handleIngest)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

type ingestResponse struct {
	RunID             string   `json:"runId"`
	ArticlesProcessed int      `json:"articlesProcessed"`
	ArticlesAdded     int      `json:"articlesAdded"`
	ArticlesSkipped   int      `json:"articlesSkipped"`
	Errors            []string `json:"errors"`
}

// handleIngest rejects unauthorized calls before any work begins, then
// executes one pipeline run and reports its counters. Partial failures
// still answer 200; only a fully failed run answers 500.
func (s *Server) handleIngest(c echo.Context) error {
	if !s.authorized(c.Request().Header.Get(echo.HeaderAuthorization)) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	result, err := s.runner.Run(c.Request().Context())
	if err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		s.logger.Error("ingestion run failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}

	return c.JSON(http.StatusOK, ingestResponse{
		RunID:             result.RunID,
		ArticlesProcessed: result.Processed,
		ArticlesAdded:     result.Added,
		ArticlesSkipped:   result.Skipped,
		Errors:            errs,
	})
}

// handleHealth is an idempotent liveness check; it performs no work.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) authorized(header string) bool {
	if s.secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) == 1
}
