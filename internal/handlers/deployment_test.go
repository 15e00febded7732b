package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-operations/internal/auth"
	"github.com/ukydev/fleet-operations/internal/db"
	"github.com/ukydev/fleet-operations/internal/fleet"
	"github.com/ukydev/fleet-operations/internal/middleware"
	"github.com/ukydev/fleet-operations/internal/models"
)

func newDeploymentTestHandler(t *testing.T) (*DeploymentHandler, *fleet.Service, *db.MemoryStore) {
	t.Helper()
	store := db.NewMemoryStore()
	engine := fleet.NewService(fleet.DefaultConfig(), store, store, store, store, nil)
	return NewDeploymentHandler(engine), engine, store
}

func seedAvailableVehicle(t *testing.T, store *db.MemoryStore, id string, battery float64) {
	t.Helper()
	require.NoError(t, store.InsertVehicle(context.Background(), models.Vehicle{
		ID:       id,
		Status:   models.VehicleStatusAvailable,
		Battery:  models.BatteryStatus{Level: battery, Health: 95},
		IsActive: true,
	}))
}

func authedRequest(method, path string, body interface{}, claims *models.Claims) *http.Request {
	var req *http.Request
	if body != nil {
		data, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	return req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, claims))
}

func employeeClaims(userID string) *models.Claims {
	return &models.Claims{UserID: userID, Username: userID, Role: models.RoleEmployee}
}

func bookingBody(vehicleID, operatorID string) map[string]interface{} {
	start := time.Now().Add(time.Hour)
	return map[string]interface{}{
		"vehicle_id":         vehicleID,
		"operator_id":        operatorID,
		"start_time":         start.Format(time.RFC3339),
		"estimated_end_time": start.Add(3 * time.Hour).Format(time.RFC3339),
		"purpose":            "delivery",
	}
}

func TestCreateDeploymentEndpoint(t *testing.T) {
	handler, _, store := newDeploymentTestHandler(t)
	seedAvailableVehicle(t, store, "VEH_1", 80)

	rec := httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodPost, "/api/deployments", bookingBody("VEH_1", "OPR_1"), employeeClaims("OPR_1")))

	require.Equal(t, http.StatusCreated, rec.Code)
	var dep models.Deployment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dep))
	assert.Equal(t, "VEH_1", dep.VehicleID)
	assert.Equal(t, models.DeploymentStatusScheduled, dep.Status)
	assert.Equal(t, "OPR_1", dep.CreatedBy)
}

func TestCreateDeploymentEndpointDefaultsOperatorFromClaims(t *testing.T) {
	handler, _, store := newDeploymentTestHandler(t)
	seedAvailableVehicle(t, store, "VEH_1", 80)

	body := bookingBody("VEH_1", "")
	delete(body, "operator_id")
	rec := httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodPost, "/api/deployments", body, employeeClaims("OPR_self")))

	require.Equal(t, http.StatusCreated, rec.Code)
	var dep models.Deployment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dep))
	assert.Equal(t, "OPR_self", dep.OperatorID)
}

func TestCreateDeploymentEndpointConflict(t *testing.T) {
	handler, _, store := newDeploymentTestHandler(t)
	seedAvailableVehicle(t, store, "VEH_low", 10)

	rec := httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodPost, "/api/deployments", bookingBody("VEH_low", "OPR_1"), employeeClaims("OPR_1")))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateDeploymentEndpointValidationError(t *testing.T) {
	handler, _, _ := newDeploymentTestHandler(t)

	body := bookingBody("VEH_1", "OPR_1")
	body["start_time"] = time.Now().Add(-2 * time.Hour).Format(time.RFC3339)
	rec := httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodPost, "/api/deployments", body, employeeClaims("OPR_1")))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "start_time")
}

func TestGetDeploymentEndpoint(t *testing.T) {
	handler, engine, store := newDeploymentTestHandler(t)
	seedAvailableVehicle(t, store, "VEH_1", 80)
	dep := createDeployment(t, engine, "VEH_1", "OPR_1")

	rec := httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodGet, "/api/deployments/"+dep.ID, nil, employeeClaims("OPR_1")))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodGet, "/api/deployments/DEP_missing", nil, employeeClaims("OPR_1")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func createDeployment(t *testing.T, engine *fleet.Service, vehicleID, operatorID string) *models.Deployment {
	t.Helper()
	start := time.Now().Add(time.Hour)
	dep, err := engine.CreateDeployment(context.Background(), models.DeploymentRequest{
		VehicleID:        vehicleID,
		OperatorID:       operatorID,
		StartTime:        start,
		EstimatedEndTime: start.Add(3 * time.Hour),
		Purpose:          "delivery",
		CreatedBy:        operatorID,
	})
	require.NoError(t, err)
	return dep
}

func TestUpdateStatusEndpoint(t *testing.T) {
	handler, engine, store := newDeploymentTestHandler(t)
	seedAvailableVehicle(t, store, "VEH_1", 80)
	dep := createDeployment(t, engine, "VEH_1", "OPR_1")

	rec := httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodPatch, "/api/deployments/"+dep.ID+"/status",
		map[string]string{"status": "in_progress"}, employeeClaims("OPR_1")))
	require.Equal(t, http.StatusOK, rec.Code)

	// Illegal transition maps to conflict.
	rec = httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodPatch, "/api/deployments/"+dep.ID+"/status",
		map[string]string{"status": "scheduled"}, employeeClaims("OPR_1")))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelEndpoint(t *testing.T) {
	handler, engine, store := newDeploymentTestHandler(t)
	seedAvailableVehicle(t, store, "VEH_1", 80)
	dep := createDeployment(t, engine, "VEH_1", "OPR_owner")

	// A pilot who does not own the deployment is refused.
	rec := httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodPost, "/api/deployments/"+dep.ID+"/cancel",
		map[string]string{"reason": "not mine"},
		&models.Claims{UserID: "OPR_other", Role: models.RolePilot}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodPost, "/api/deployments/"+dep.ID+"/cancel",
		map[string]string{"reason": "vehicle recalled"}, employeeClaims("OPR_dispatch")))
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled models.Deployment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, models.DeploymentStatusCancelled, cancelled.Status)
}

func TestTrackingEndpoint(t *testing.T) {
	handler, engine, store := newDeploymentTestHandler(t)
	seedAvailableVehicle(t, store, "VEH_1", 80)
	dep := createDeployment(t, engine, "VEH_1", "OPR_1")

	rec := httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodPost, "/api/deployments/"+dep.ID+"/tracking",
		map[string]interface{}{
			"location":      map[string]float64{"lat": 1, "lon": 2},
			"battery_level": 72.5,
			"timestamp":     time.Now().Format(time.RFC3339),
		}, employeeClaims("OPR_1")))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["location_recorded"])
	assert.Equal(t, true, resp["telemetry_recorded"])
	assert.Equal(t, "in_progress", resp["status"])
}

func TestTrackingEndpointPartialSuccess(t *testing.T) {
	handler, engine, store := newDeploymentTestHandler(t)
	seedAvailableVehicle(t, store, "VEH_1", 80)
	dep := createDeployment(t, engine, "VEH_1", "OPR_1")

	// Move into in_progress, then submit a sample with an illegal embedded
	// transition back to scheduled.
	_, err := engine.UpdateDeploymentStatus(context.Background(), dep.ID, models.DeploymentStatusInProgress, "OPR_1", "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodPost, "/api/deployments/"+dep.ID+"/tracking",
		map[string]interface{}{
			"location":  map[string]float64{"lat": 1, "lon": 2},
			"status":    "scheduled",
			"timestamp": time.Now().Format(time.RFC3339),
		}, employeeClaims("OPR_1")))

	require.Equal(t, http.StatusMultiStatus, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["location_recorded"])
	assert.Equal(t, false, resp["status_changed"])
	assert.NotEmpty(t, resp["transition_error"])
}

func TestDeploymentAccessRouting(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   middleware.RouteAccess
	}{
		{"create", http.MethodPost, "/api/deployments", middleware.RouteAccess{Module: auth.ModuleDeployments}},
		{"get", http.MethodGet, "/api/deployments/DEP_1", middleware.RouteAccess{Module: auth.ModuleDeployments}},
		{"status", http.MethodPatch, "/api/deployments/DEP_1/status", middleware.RouteAccess{Module: auth.ModuleDeployments}},
		{"tracking", http.MethodPost, "/api/deployments/DEP_1/tracking", middleware.RouteAccess{Module: auth.ModuleTracking}},
		{"cancel", http.MethodPost, "/api/deployments/DEP_1/cancel",
			middleware.RouteAccess{Module: auth.ModuleDeployments, Permission: models.PermissionRead}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeploymentAccess(httptest.NewRequest(tt.method, tt.path, nil)))
		})
	}
}

func TestPilotRoutesPassModuleGate(t *testing.T) {
	handler, engine, store := newDeploymentTestHandler(t)
	seedAvailableVehicle(t, store, "VEH_1", 80)
	dep := createDeployment(t, engine, "VEH_1", "OPR_pilot")

	gate := middleware.NewAuthMiddleware(nil, auth.NewAuthorizer(nil))
	routes := gate.RequireAccess(DeploymentAccess)(http.HandlerFunc(handler.Handle))
	pilot := &models.Claims{UserID: "OPR_pilot", Username: "OPR_pilot", Role: models.RolePilot}

	// Own-operator cancellation reaches the engine, which allows it.
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/deployments/"+dep.ID+"/cancel",
		map[string]string{"reason": "shift ended early"}, pilot))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Pilots submit tracking for their own runs even though they cannot
	// write deployments.
	next := createDeployment(t, engine, "VEH_1", "OPR_pilot")
	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/deployments/"+next.ID+"/tracking",
		map[string]interface{}{
			"location":      map[string]float64{"lat": 1, "lon": 2},
			"battery_level": 70.0,
			"timestamp":     time.Now().Format(time.RFC3339),
		}, pilot))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Booking stays an employee-and-above operation.
	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/deployments", bookingBody("VEH_1", "OPR_pilot"), pilot))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeploymentRoutingNotFound(t *testing.T) {
	handler, _, _ := newDeploymentTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodDelete, "/api/deployments/DEP_1", nil, employeeClaims("OPR_1")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.Handle(rec, authedRequest(http.MethodGet, "/api/deployments/DEP_1/unknown", nil, employeeClaims("OPR_1")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOptimalVehiclesEndpoint(t *testing.T) {
	store := db.NewMemoryStore()
	engine := fleet.NewService(fleet.DefaultConfig(), store, store, store, store, nil)
	handler := NewVehicleHandler(engine)

	for i, battery := range []float64{45, 90, 65} {
		seedAvailableVehicle(t, store, fmt.Sprintf("VEH_%d", i), battery)
	}

	rec := httptest.NewRecorder()
	handler.Optimal(rec, authedRequest(http.MethodGet, "/api/vehicles/optimal?min_battery=50", nil, employeeClaims("OPR_1")))

	require.Equal(t, http.StatusOK, rec.Code)
	var vehicles []models.Vehicle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vehicles))
	require.Len(t, vehicles, 2)
	assert.Equal(t, "VEH_1", vehicles[0].ID)
	assert.Equal(t, "VEH_2", vehicles[1].ID)
}

func TestOptimalVehiclesEndpointBadCoords(t *testing.T) {
	store := db.NewMemoryStore()
	engine := fleet.NewService(fleet.DefaultConfig(), store, store, store, store, nil)
	handler := NewVehicleHandler(engine)

	rec := httptest.NewRecorder()
	handler.Optimal(rec, authedRequest(http.MethodGet, "/api/vehicles/optimal?lat=abc&lon=1", nil, employeeClaims("OPR_1")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
