package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ukydev/fleet-operations/internal/auth"
	"github.com/ukydev/fleet-operations/internal/fleet"
	"github.com/ukydev/fleet-operations/internal/middleware"
	"github.com/ukydev/fleet-operations/internal/models"
)

// DeploymentHandler exposes the deployment lifecycle over HTTP.
type DeploymentHandler struct {
	engine *fleet.Service
}

// NewDeploymentHandler creates a new deployment handler.
func NewDeploymentHandler(engine *fleet.Service) *DeploymentHandler {
	return &DeploymentHandler{engine: engine}
}

// DeploymentAccess picks the matrix gate for a request under the deployments
// tree. Tracking ingest is gated by the tracking module so operators can
// submit samples for their own runs, and cancellation needs only read access
// because the engine decides who may cancel which deployment.
func DeploymentAccess(r *http.Request) middleware.RouteAccess {
	parts := deploymentRoute(r)
	if len(parts) == 2 && r.Method == http.MethodPost {
		switch parts[1] {
		case "tracking":
			return middleware.RouteAccess{Module: auth.ModuleTracking}
		case "cancel":
			return middleware.RouteAccess{Module: auth.ModuleDeployments, Permission: models.PermissionRead}
		}
	}
	return middleware.RouteAccess{Module: auth.ModuleDeployments}
}

func deploymentRoute(r *http.Request) []string {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/deployments"), "/")
	return strings.Split(rest, "/")
}

// Handle routes /api/deployments and its subresources.
func (h *DeploymentHandler) Handle(w http.ResponseWriter, r *http.Request) {
	parts := deploymentRoute(r)

	switch {
	case parts[0] == "" && r.Method == http.MethodPost:
		h.create(w, r)
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.get(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "history" && r.Method == http.MethodGet:
		h.getHistory(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "status" && (r.Method == http.MethodPatch || r.Method == http.MethodPut):
		h.updateStatus(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPost:
		h.cancel(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "tracking" && r.Method == http.MethodPost:
		h.ingestTracking(w, r, parts[0])
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (h *DeploymentHandler) create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var req models.DeploymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.CreatedBy = claims.UserID
	if req.OperatorID == "" {
		req.OperatorID = claims.UserID
	}

	deployment, err := h.engine.CreateDeployment(r.Context(), req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, deployment)
}

func (h *DeploymentHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	deployment, err := h.engine.GetDeployment(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deployment)
}

func (h *DeploymentHandler) getHistory(w http.ResponseWriter, r *http.Request, id string) {
	history, err := h.engine.GetDeploymentHistory(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *DeploymentHandler) updateStatus(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var body struct {
		Status models.DeploymentStatus `json:"status"`
		Reason string                  `json:"reason,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	deployment, err := h.engine.UpdateDeploymentStatus(r.Context(), id, body.Status, claims.UserID, body.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deployment)
}

func (h *DeploymentHandler) cancel(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	deployment, err := h.engine.CancelDeployment(r.Context(), id, claims.UserID, claims.Role, body.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deployment)
}

func (h *DeploymentHandler) ingestTracking(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var sample fleet.TrackingSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := h.engine.IngestTracking(r.Context(), id, sample, claims.UserID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	// Partial success: samples can commit while an embedded transition is
	// rejected. Both outcomes go back to the caller.
	resp := map[string]interface{}{
		"location_recorded":  result.LocationRecorded,
		"telemetry_recorded": result.TelemetryRecorded,
		"status_changed":     result.StatusChanged,
		"status":             result.Status,
	}
	status := http.StatusOK
	if result.TransitionError != nil {
		resp["transition_error"] = result.TransitionError.Error()
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp)
}

// VehicleHandler exposes vehicle queries, in particular the optimal-vehicle
// ranking consumed ahead of booking.
type VehicleHandler struct {
	engine *fleet.Service
}

// NewVehicleHandler creates a new vehicle handler.
func NewVehicleHandler(engine *fleet.Service) *VehicleHandler {
	return &VehicleHandler{engine: engine}
}

// Optimal handles GET /api/vehicles/optimal.
func (h *VehicleHandler) Optimal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	criteria := fleet.OptimalCriteria{
		PreferredMake:     r.URL.Query().Get("make"),
		RequiredEquipment: r.URL.Query().Get("equipment"),
	}
	criteria.MinBatteryLevel = queryFloat(r, "min_battery")
	criteria.MaxDistanceKm = queryFloat(r, "max_distance_km")
	if latStr, lonStr := r.URL.Query().Get("lat"), r.URL.Query().Get("lon"); latStr != "" && lonStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			writeError(w, http.StatusBadRequest, "invalid lat/lon")
			return
		}
		criteria.Location = &models.Location{Lat: lat, Lon: lon}
	}

	vehicles, err := h.engine.FindOptimalVehicles(r.Context(), criteria)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func queryFloat(r *http.Request, name string) float64 {
	if v := r.URL.Query().Get(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}
