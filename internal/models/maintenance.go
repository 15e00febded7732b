package models

import "time"

// MaintenanceType classifies a maintenance record.
type MaintenanceType string

const (
	MaintenanceBatteryService MaintenanceType = "battery_service"
	MaintenanceTireRotation   MaintenanceType = "tire_rotation"
	MaintenanceBrakeService   MaintenanceType = "brake_service"
	MaintenanceInspection     MaintenanceType = "inspection"
	MaintenanceSoftwareUpdate MaintenanceType = "software_update"
)

// MaintenanceStatus represents the state of a maintenance record.
type MaintenanceStatus string

const (
	MaintenanceStatusScheduled  MaintenanceStatus = "scheduled"
	MaintenanceStatusInProgress MaintenanceStatus = "in_progress"
	MaintenanceStatusCompleted  MaintenanceStatus = "completed"
	MaintenanceStatusCancelled  MaintenanceStatus = "cancelled"
)

// IsActive reports whether the record blocks scheduling another of the same type.
func (s MaintenanceStatus) IsActive() bool {
	return s == MaintenanceStatusScheduled || s == MaintenanceStatusInProgress
}

// MaintenanceLog represents a vehicle maintenance record.
type MaintenanceLog struct {
	ID              string            `bson:"_id" json:"id"`
	VehicleID       string            `bson:"vehicle_id" json:"vehicle_id"`
	Type            MaintenanceType   `bson:"type" json:"type"`
	Description     string            `bson:"description" json:"description"`
	ScheduledDate   time.Time         `bson:"scheduled_date" json:"scheduled_date"`
	CompletedDate   *time.Time        `bson:"completed_date,omitempty" json:"completed_date,omitempty"`
	Status          MaintenanceStatus `bson:"status" json:"status"`
	ServiceProvider string            `bson:"service_provider" json:"service_provider"`
	Cost            float64           `bson:"cost" json:"cost"` // in USD
	PartsUsed       []string          `bson:"parts_used,omitempty" json:"parts_used,omitempty"`
	CreatedAt       time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `bson:"updated_at" json:"updated_at"`
}
