package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/pulsewatch/pulsewatch/internal/models"
)

// Health handlers

// healthHandler returns basic health status
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// detailedHealthHandler returns per-component health status
func (s *HTTPServer) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	components := map[string]interface{}{
		"store":     s.store.Healthy(),
		"scheduler": true,
	}
	if s.history != nil {
		components["history"] = s.history.Ping() == nil
	}

	status := "healthy"
	for _, healthy := range components {
		if h, ok := healthy.(bool); ok && !h {
			status = "unhealthy"
			break
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"components": components,
	})
}

// statsHandler returns application statistics
func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"store":      s.store.Stats(),
		"dispatcher": s.dispatcher.Stats(),
		"scheduler": map[string]interface{}{
			"active_timers": s.scheduler.ActiveCount(),
		},
	}

	if s.history != nil {
		if count, err := s.history.CountFired(r.Context()); err == nil {
			stats["history"] = map[string]interface{}{"fired_alerts": count}
		}
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// User handlers

type createUserRequest struct {
	ID          string `json:"id"`
	ChatAddress string `json:"chatAddress"`
}

// createUserHandler inserts a user if none exists for the id. Idempotent.
func (s *HTTPServer) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := s.store.CreateUserIfNotExists(req.ID, req.ChatAddress)
	if err != nil {
		s.writeError(w, errorStatus(err), "Failed to create user", err)
		return
	}

	s.writeJSON(w, http.StatusOK, user)
}

// Action handlers

func (s *HTTPServer) listActionsHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	actions, err := s.store.ListActions(userID)
	if err != nil {
		s.writeError(w, errorStatus(err), "Failed to list actions", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"actions": actions,
		"count":   len(actions),
	})
}

func (s *HTTPServer) addActionHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var in models.ActionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	action, err := s.store.AddAction(userID, in)
	if err != nil {
		s.writeError(w, errorStatus(err), "Failed to add action", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, action)
}

func (s *HTTPServer) removeActionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	removed, err := s.store.RemoveAction(vars["userId"], vars["actionId"])
	if err != nil {
		s.writeError(w, errorStatus(err), "Failed to remove action", err)
		return
	}
	if removed == nil {
		s.writeError(w, http.StatusNotFound, "Action not found", nil)
		return
	}

	s.writeJSON(w, http.StatusOK, removed)
}

// Notification handlers

func (s *HTTPServer) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	notifications, err := s.store.ListNotifications(userID)
	if err != nil {
		s.writeError(w, errorStatus(err), "Failed to list notifications", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// addNotificationHandler persists the notification and registers its timer.
func (s *HTTPServer) addNotificationHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var in models.NotificationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	notification, err := s.store.AddNotification(userID, in)
	if err != nil {
		s.writeError(w, errorStatus(err), "Failed to add notification", err)
		return
	}

	s.scheduler.Create(*notification)

	s.writeJSON(w, http.StatusCreated, notification)
}

// removeNotificationHandler cancels the timer and deletes the record.
func (s *HTTPServer) removeNotificationHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	removed, err := s.store.RemoveNotification(vars["userId"], vars["notificationId"])
	if err != nil {
		s.writeError(w, errorStatus(err), "Failed to remove notification", err)
		return
	}
	if removed == nil {
		s.writeError(w, http.StatusNotFound, "Notification not found", nil)
		return
	}

	s.scheduler.Remove(removed.ID)

	s.writeJSON(w, http.StatusOK, removed)
}

// History handlers

func (s *HTTPServer) alertHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, "History storage is disabled", nil)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	alerts, err := s.history.ListFired(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to list fired alerts", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
