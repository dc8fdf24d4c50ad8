package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pulsewatch/pulsewatch/internal/config"
	"github.com/pulsewatch/pulsewatch/internal/dispatcher"
	"github.com/pulsewatch/pulsewatch/internal/history"
	"github.com/pulsewatch/pulsewatch/internal/metrics"
	"github.com/pulsewatch/pulsewatch/internal/scheduler"
	"github.com/pulsewatch/pulsewatch/internal/store"
	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// HTTPServer exposes the operator surface: health, stats, metrics and CRUD
// for users, actions and notifications.
type HTTPServer struct {
	config     *config.ServerConfig
	server     *http.Server
	router     *mux.Router
	store      *store.Store
	scheduler  *scheduler.Scheduler
	dispatcher *dispatcher.Dispatcher
	history    history.Store // optional

	metricsManager *metrics.Manager
	logger         *logrus.Logger
	stopChan       chan struct{}
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(
	cfg *config.ServerConfig,
	st *store.Store,
	sched *scheduler.Scheduler,
	disp *dispatcher.Dispatcher,
	hist history.Store,
	metricsManager *metrics.Manager,
) *HTTPServer {

	s := &HTTPServer{
		config:         cfg,
		store:          st,
		scheduler:      sched,
		dispatcher:     disp,
		history:        hist,
		metricsManager: metricsManager,
		logger:         utils.GetLogger(),
		stopChan:       make(chan struct{}),
	}

	s.setupRouter()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	s.router.Use(s.loggingMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()

	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
		api.HandleFunc("/health/detailed", s.detailedHealthHandler).Methods("GET")
	}

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler())
		api.HandleFunc("/stats", s.statsHandler).Methods("GET")
	}

	// User endpoints
	api.HandleFunc("/users", s.createUserHandler).Methods("POST")

	// Action endpoints
	api.HandleFunc("/users/{userId}/actions", s.listActionsHandler).Methods("GET")
	api.HandleFunc("/users/{userId}/actions", s.addActionHandler).Methods("POST")
	api.HandleFunc("/users/{userId}/actions/{actionId}", s.removeActionHandler).Methods("DELETE")

	// Notification endpoints
	api.HandleFunc("/users/{userId}/notifications", s.listNotificationsHandler).Methods("GET")
	api.HandleFunc("/users/{userId}/notifications", s.addNotificationHandler).Methods("POST")
	api.HandleFunc("/users/{userId}/notifications/{notificationId}", s.removeNotificationHandler).Methods("DELETE")

	// Fired-alert history
	api.HandleFunc("/alerts/history", s.alertHistoryHandler).Methods("GET")
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	if s.metricsManager != nil {
		s.metricsManager.UpdateSystemMetrics()
		go s.systemMetricsUpdater()
	}

	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithField("error", err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Surface immediate binding errors to the caller
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// systemMetricsUpdater refreshes process and component gauges until Stop.
func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.metricsManager.UpdateSystemMetrics()
			s.metricsManager.Prometheus().UpdateComponentHealth("store", s.store.Healthy())
			s.metricsManager.Prometheus().UpdateActiveTimers(s.scheduler.ActiveCount())
			if s.history != nil {
				s.metricsManager.Prometheus().UpdateComponentHealth("history", s.history.Ping() == nil)
			}
		}
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	close(s.stopChan)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithField("error", err).Error("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := map[string]interface{}{
		"error":   message,
		"status":  status,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"details": "",
	}
	if err != nil {
		resp["details"] = err.Error()
	}
	s.writeJSON(w, status, resp)
}

// errorStatus maps application error codes to HTTP status codes
func errorStatus(err error) int {
	switch {
	case utils.IsValidation(err):
		return http.StatusBadRequest
	case utils.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
