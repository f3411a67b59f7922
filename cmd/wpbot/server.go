package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/joaquindlz/wp-bot/internal/constants"
	"github.com/joaquindlz/wp-bot/internal/metrics"
	"github.com/joaquindlz/wp-bot/internal/middleware"
	"github.com/joaquindlz/wp-bot/internal/service"
)

// StatusSource provides the session snapshot served on /health
type StatusSource interface {
	Status() service.Status
}

type Server struct {
	router *mux.Router
	logger *logrus.Logger
	source StatusSource
	addr   string
	server *http.Server
}

func NewServer(addr string, source StatusSource, logger *logrus.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
		source: source,
		addr:   addr,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.ObservabilityMiddleware(s.logger))
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	s.logger.WithField("addr", s.addr).Info("Starting status server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleHealth reports 200 only while the session can receive messages
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := s.source.Status()

		code := http.StatusServiceUnavailable
		if status.State.IsLive() {
			code = http.StatusOK
		}
		s.writeJSON(w, code, status)
	}
}

func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		s.writeJSON(w, http.StatusOK, metrics.GetRegistry().Snapshot())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode status response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	w.WriteHeader(code)
	_, _ = w.Write(data)
}
