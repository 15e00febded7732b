package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ukydev/fleet-operations/internal/fleet"
	"github.com/ukydev/fleet-operations/internal/models"
)

// MaintenanceHandler exposes the maintenance scheduler over HTTP.
type MaintenanceHandler struct {
	engine *fleet.Service
}

// NewMaintenanceHandler creates a new maintenance handler.
func NewMaintenanceHandler(engine *fleet.Service) *MaintenanceHandler {
	return &MaintenanceHandler{engine: engine}
}

// AutoSchedule handles POST /api/maintenance/auto-schedule.
func (h *MaintenanceHandler) AutoSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		VehicleID string                 `json:"vehicle_id"`
		Type      models.MaintenanceType `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.VehicleID == "" || body.Type == "" {
		writeError(w, http.StatusBadRequest, "vehicle_id and type are required")
		return
	}

	outcome, err := h.engine.AutoScheduleMaintenance(r.Context(), body.VehicleID, body.Type)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	status := http.StatusCreated
	if outcome.Skipped {
		status = http.StatusOK
	}
	writeJSON(w, status, outcome)
}

// Due handles GET /api/maintenance/due.
func (h *MaintenanceHandler) Due(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	daysAhead := 7
	if v := r.URL.Query().Get("days_ahead"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			daysAhead = n
		}
	}

	due, err := h.engine.DueForMaintenance(r.Context(), daysAhead)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, due)
}

// AnalyticsHandler exposes the read-only deployment analytics.
type AnalyticsHandler struct {
	engine *fleet.Service
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(engine *fleet.Service) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine}
}

// Deployments handles GET /api/analytics/deployments.
func (h *AnalyticsHandler) Deployments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	window := models.AnalyticsWindow{
		From: time.Now().Add(-30 * 24 * time.Hour),
		To:   time.Now(),
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		window.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		window.To = t
	}
	filters := models.AnalyticsFilters{
		VehicleID:  r.URL.Query().Get("vehicle_id"),
		OperatorID: r.URL.Query().Get("operator_id"),
	}

	report, err := h.engine.GetDeploymentAnalytics(r.Context(), window, filters)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// NotificationHandler exposes the composite notification feed.
type NotificationHandler struct {
	engine *fleet.Service
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(engine *fleet.Service) *NotificationHandler {
	return &NotificationHandler{engine: engine}
}

// Feed handles GET /api/notifications.
func (h *NotificationHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	feed, err := h.engine.GetNotifications(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}
