package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-operations/internal/db"
	"github.com/ukydev/fleet-operations/internal/fleet"
	"github.com/ukydev/fleet-operations/internal/models"
)

func newEngineWithStore(t *testing.T) (*fleet.Service, *db.MemoryStore) {
	t.Helper()
	store := db.NewMemoryStore()
	return fleet.NewService(fleet.DefaultConfig(), store, store, store, store, nil), store
}

func TestAutoScheduleEndpoint(t *testing.T) {
	engine, store := newEngineWithStore(t)
	handler := NewMaintenanceHandler(engine)
	seedAvailableVehicle(t, store, "VEH_1", 60)

	body := map[string]string{"vehicle_id": "VEH_1", "type": "inspection"}

	rec := httptest.NewRecorder()
	handler.AutoSchedule(rec, authedRequest(http.MethodPost, "/api/maintenance/auto-schedule", body, employeeClaims("OPR_1")))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Second request for the same type is a skip, not a duplicate.
	rec = httptest.NewRecorder()
	handler.AutoSchedule(rec, authedRequest(http.MethodPost, "/api/maintenance/auto-schedule", body, employeeClaims("OPR_1")))
	require.Equal(t, http.StatusOK, rec.Code)
	var outcome fleet.ScheduleOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.True(t, outcome.Skipped)
	assert.Equal(t, "already scheduled", outcome.Reason)
}

func TestAutoScheduleEndpointValidation(t *testing.T) {
	engine, _ := newEngineWithStore(t)
	handler := NewMaintenanceHandler(engine)

	rec := httptest.NewRecorder()
	handler.AutoSchedule(rec, authedRequest(http.MethodPost, "/api/maintenance/auto-schedule",
		map[string]string{"vehicle_id": "VEH_1"}, employeeClaims("OPR_1")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.AutoSchedule(rec, authedRequest(http.MethodPost, "/api/maintenance/auto-schedule",
		map[string]string{"vehicle_id": "VEH_missing", "type": "inspection"}, employeeClaims("OPR_1")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMaintenanceDueEndpoint(t *testing.T) {
	engine, store := newEngineWithStore(t)
	handler := NewMaintenanceHandler(engine)

	require.NoError(t, store.InsertMaintenance(context.Background(), models.MaintenanceLog{
		ID: "MNT_due", VehicleID: "VEH_1", Type: models.MaintenanceInspection,
		ScheduledDate: time.Now().Add(2 * 24 * time.Hour), Status: models.MaintenanceStatusScheduled,
	}))

	rec := httptest.NewRecorder()
	handler.Due(rec, authedRequest(http.MethodGet, "/api/maintenance/due?days_ahead=7", nil, employeeClaims("OPR_1")))
	require.Equal(t, http.StatusOK, rec.Code)

	var due fleet.DueMaintenance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &due))
	require.Len(t, due.Scheduled, 1)
	assert.Equal(t, "MNT_due", due.Scheduled[0].ID)
}

func TestAnalyticsEndpoint(t *testing.T) {
	engine, store := newEngineWithStore(t)
	handler := NewAnalyticsHandler(engine)

	end := time.Now().Add(-time.Hour)
	require.NoError(t, store.InsertDeployment(context.Background(), models.Deployment{
		ID: "DEP_1", VehicleID: "VEH_1", OperatorID: "OPR_1",
		StartTime: time.Now().Add(-5 * time.Hour), ActualEndTime: &end,
		Status: models.DeploymentStatusCompleted,
	}))

	rec := httptest.NewRecorder()
	handler.Deployments(rec, authedRequest(http.MethodGet, "/api/analytics/deployments", nil, employeeClaims("OPR_1")))
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.DeploymentReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.TotalDeployments)
	assert.Equal(t, 1.0, report.CompletionRate)
}

func TestAnalyticsEndpointBadWindow(t *testing.T) {
	engine, _ := newEngineWithStore(t)
	handler := NewAnalyticsHandler(engine)

	rec := httptest.NewRecorder()
	handler.Deployments(rec, authedRequest(http.MethodGet, "/api/analytics/deployments?from=yesterday", nil, employeeClaims("OPR_1")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationsEndpoint(t *testing.T) {
	engine, store := newEngineWithStore(t)
	handler := NewNotificationHandler(engine)

	require.NoError(t, store.InsertVehicle(context.Background(), models.Vehicle{
		ID: "VEH_low", Status: models.VehicleStatusAvailable, IsActive: true,
		Battery: models.BatteryStatus{Level: 10, Health: 95},
	}))

	rec := httptest.NewRecorder()
	handler.Feed(rec, authedRequest(http.MethodGet, "/api/notifications", nil, employeeClaims("OPR_1")))
	require.Equal(t, http.StatusOK, rec.Code)

	var feed models.NotificationFeed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed.LowBattery, 1)
	assert.Equal(t, "VEH_low", feed.LowBattery[0].ID)
}
