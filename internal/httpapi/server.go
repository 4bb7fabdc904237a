// Package httpapi serves the read API over canonical jobs plus the
// ingest and pipeline trigger endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"talentgrid.fit/jobpipe/internal/db"
	"talentgrid.fit/jobpipe/internal/globaltime"
	"talentgrid.fit/jobpipe/internal/ingest"
	"talentgrid.fit/jobpipe/internal/pipeline"
)

const (
	defaultPageSize   = 25
	maxPageSize       = 200
	maxIngestBodySize = 1 << 20
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	pool     *db.Pool
	ingester *ingest.Service
	runner   *pipeline.Service
	logger   zerolog.Logger
	opts     Options
}

func NewServer(pool *db.Pool, ingester *ingest.Service, runner *pipeline.Service, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8091
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		pool:     pool,
		ingester: ingester,
		runner:   runner,
		logger:   logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/sources", s.handleSources)
	api.GET("/jobs", s.handleJobs)
	api.GET("/jobs/:job_uuid", s.handleJobDetail)
	api.POST("/postings", s.handleIngestPosting)
	api.POST("/pipeline/run", s.handlePipelineRun)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("jobpipe api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("jobpipe api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "jobpipe",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	now := globaltime.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	stats, err := s.pool.QueryPipelineStats(c.Request().Context(), dayStart, dayEnd)
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleSources(c echo.Context) error {
	sources, err := s.pool.ListSources(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query sources failed")
		return internalError(c, "Failed to load sources")
	}
	return success(c, map[string]any{
		"items": sources,
	})
}

func (s *Server) handleJobs(c echo.Context) error {
	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}
	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"page_size": err.Error()})
	}

	if query := strings.TrimSpace(c.QueryParam("q")); query != "" {
		jobs, err := s.pool.SearchJobsByTitle(c.Request().Context(), query, pageSize)
		if err != nil {
			s.logger.Error().Err(err).Str("q", query).Msg("search jobs failed")
			return internalError(c, "Failed to search jobs")
		}
		return success(c, map[string]any{
			"items": jobs,
			"q":     query,
		})
	}

	opts := db.JobListOptions{
		TitleFamily: c.QueryParam("family"),
		Company:     c.QueryParam("company"),
		Location:    c.QueryParam("location"),
		Source:      c.QueryParam("source"),
		Limit:       pageSize,
		Offset:      (page - 1) * pageSize,
	}
	jobs, err := s.pool.ListJobs(c.Request().Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("query jobs failed")
		return internalError(c, "Failed to load jobs")
	}

	return success(c, map[string]any{
		"items": jobs,
		"pagination": map[string]any{
			"page":      page,
			"page_size": pageSize,
		},
		"filters": map[string]any{
			"family":   opts.TitleFamily,
			"company":  opts.Company,
			"location": opts.Location,
			"source":   opts.Source,
		},
	})
}

func (s *Server) handleJobDetail(c echo.Context) error {
	jobUUID := strings.TrimSpace(c.Param("job_uuid"))
	if jobUUID == "" {
		return failValidation(c, map[string]string{"job_uuid": "is required"})
	}

	detail, err := s.pool.GetJobDetail(c.Request().Context(), jobUUID)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Job not found")
		}
		s.logger.Error().Err(err).Str("job_uuid", jobUUID).Msg("query job detail failed")
		return internalError(c, "Failed to load job")
	}
	return success(c, detail)
}

func (s *Server) handleIngestPosting(c echo.Context) error {
	if s.ingester == nil {
		return internalError(c, "Ingest is not available")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxIngestBodySize+1))
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not read request body"})
	}
	if len(body) > maxIngestBodySize {
		return fail(c, http.StatusRequestEntityTooLarge, "Payload too large", nil)
	}

	result, err := s.ingester.IngestOne(c.Request().Context(), ingest.Request{
		RawPayload: json.RawMessage(body),
	})
	if err != nil {
		if strings.Contains(err.Error(), "validate payload") {
			return failValidation(c, map[string]string{"payload": err.Error()})
		}
		s.logger.Error().Err(err).Msg("ingest posting failed")
		return internalError(c, "Failed to ingest posting")
	}

	status := http.StatusCreated
	if !result.Inserted {
		status = http.StatusOK
	}
	return successWithStatus(c, status, result)
}

func (s *Server) handlePipelineRun(c echo.Context) error {
	if s.runner == nil {
		return internalError(c, "Pipeline is not available")
	}

	result, err := s.runner.ProcessBatch(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("pipeline batch failed")
		return internalError(c, "Failed to run pipeline batch")
	}
	return success(c, result)
}

func parsePositiveInt(raw string, fallback, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
