package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/fleet-operations/internal/models"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) error
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	FindAvailableVehicles(ctx context.Context) ([]models.Vehicle, error)
	FindActiveVehicles(ctx context.Context) ([]models.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, vehicle models.Vehicle) error
	UpdateVehicleStatus(ctx context.Context, id string, status models.VehicleStatus, operatorID string) error
	// UpdateVehicleTelemetry refreshes the vehicle's cached location, battery
	// and odometer, but only when sampledAt is not older than the cached
	// location timestamp (last-writer-wins by sample time).
	UpdateVehicleTelemetry(ctx context.Context, id string, location *models.Location, battery, odometer *float64, sampledAt time.Time) error
}

// DeploymentCollection defines the interface for deployment data operations.
type DeploymentCollection interface {
	InsertDeployment(ctx context.Context, deployment models.Deployment) error
	FindDeploymentByID(ctx context.Context, id string) (*models.Deployment, error)
	UpdateDeployment(ctx context.Context, id string, deployment models.Deployment) error
	// FindActiveDeploymentByVehicle returns the scheduled or in_progress
	// deployment holding the vehicle, or ErrNotFound.
	FindActiveDeploymentByVehicle(ctx context.Context, vehicleID string) (*models.Deployment, error)
	FindActiveDeploymentByOperator(ctx context.Context, operatorID string) (*models.Deployment, error)
	FindDeploymentsByStatus(ctx context.Context, status models.DeploymentStatus) ([]models.Deployment, error)
	// FindDeploymentsInWindow returns deployments whose start time falls in
	// [from, to), optionally narrowed to one vehicle and/or operator.
	FindDeploymentsInWindow(ctx context.Context, from, to time.Time, filters models.AnalyticsFilters) ([]models.Deployment, error)
}

// HistoryCollection defines the interface for deployment history operations.
// All sequences are append-only; nothing here overwrites prior samples.
type HistoryCollection interface {
	InsertHistory(ctx context.Context, history models.DeploymentHistory) error
	FindHistoryByDeployment(ctx context.Context, deploymentID string) (*models.DeploymentHistory, error)
	AppendStatusChange(ctx context.Context, deploymentID string, change models.StatusChange) error
	// AppendLocationSample and AppendTelemetrySample report false when a
	// sample with the same timestamp already exists (idempotent resubmission).
	AppendLocationSample(ctx context.Context, deploymentID string, sample models.TrackedLocation) (bool, error)
	AppendTelemetrySample(ctx context.Context, deploymentID string, sample models.TelemetrySample) (bool, error)
	SetMetrics(ctx context.Context, deploymentID string, metrics models.PerformanceMetrics) error
}

// MaintenanceCollection defines the interface for maintenance log operations.
type MaintenanceCollection interface {
	InsertMaintenance(ctx context.Context, log models.MaintenanceLog) error
	FindMaintenanceByID(ctx context.Context, id string) (*models.MaintenanceLog, error)
	// FindActiveMaintenance returns the scheduled or in_progress record of
	// the given type for the vehicle, or ErrNotFound.
	FindActiveMaintenance(ctx context.Context, vehicleID string, mtype models.MaintenanceType) (*models.MaintenanceLog, error)
	FindScheduledMaintenanceDueBefore(ctx context.Context, cutoff time.Time) ([]models.MaintenanceLog, error)
	UpdateMaintenance(ctx context.Context, id string, log models.MaintenanceLog) error
}

// RolePermissionCollection defines the interface for the role/module matrix.
// Read-only to the core.
type RolePermissionCollection interface {
	FindRolePermissions(ctx context.Context) ([]models.RolePermission, error)
}

// UserCollection defines the interface for user database operations.
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, user models.User) error
	UpdateLastLogin(ctx context.Context, id string) error
}
