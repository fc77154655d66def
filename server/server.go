// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poiesic/docent"
	"github.com/poiesic/docent/metrics"
)

// DefaultMaxUpload bounds uploaded documents.
const DefaultMaxUpload = 50 << 20

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 10 * time.Second

// ErrDocentRequired is returned when New is called without a Docent.
var ErrDocentRequired = errors.New("docent required")

// Server serves a Docent over HTTP.
type Server struct {
	docent    *docent.Docent
	engine    *gin.Engine
	activity  *ActivityLog
	limiter   *sessionLimiter
	maxUpload int64
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithRateLimit limits chat requests per session to rps with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) error {
		if rps <= 0 {
			s.limiter = nil
			return nil
		}
		s.limiter = newSessionLimiter(rps, burst)
		return nil
	}
}

// WithMaxUpload bounds uploaded document size in bytes.
func WithMaxUpload(size int64) Option {
	return func(s *Server) error {
		if size <= 0 {
			return errors.New("max upload must be positive")
		}
		s.maxUpload = size
		return nil
	}
}

// WithActivity sets the activity log served by /logs.
func WithActivity(activity *ActivityLog) Option {
	return func(s *Server) error {
		if activity != nil {
			s.activity = activity
		}
		return nil
	}
}

// WithMetrics records request metrics and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) error {
		s.metrics = m
		s.gatherer = gatherer
		return nil
	}
}

// WithLogger sets a custom logger for the server.
// If not provided, slog.Default() will be used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "server")
		return nil
	}
}

// New creates a Server for d.
func New(d *docent.Docent, opts ...Option) (*Server, error) {
	if d == nil {
		return nil, ErrDocentRequired
	}
	s := &Server{
		docent:    d,
		activity:  NewActivityLog(DefaultActivitySize),
		maxUpload: DefaultMaxUpload,
		logger:    slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = s.maxUpload
	router.Use(gin.Recovery(), s.requestID(), s.accessLog())

	router.POST("/chat", s.chat)
	router.POST("/chat_stream", s.chatStream)
	router.POST("/query", s.query)
	router.POST("/voice_chat", s.voiceChat)

	router.POST("/upload_pdf", s.upload)
	router.POST("/upload_pdf_async", s.uploadAsync)
	router.GET("/upload_status/:id", s.uploadStatus)
	router.GET("/documents", s.documents)
	router.POST("/approve_doc/:name", s.approve)
	router.DELETE("/delete_doc/:name", s.delete)
	router.GET("/logs", s.logs)

	router.GET("/health", s.health)
	if s.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	return router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Activity returns the activity log.
func (s *Server) Activity() *ActivityLog {
	return s.activity
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
