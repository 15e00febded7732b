package models

import "time"

// VehicleStatus represents the operational state of a fleet vehicle.
type VehicleStatus string

const (
	VehicleStatusAvailable    VehicleStatus = "available"
	VehicleStatusDeployed     VehicleStatus = "deployed"
	VehicleStatusMaintenance  VehicleStatus = "maintenance"
	VehicleStatusCharging     VehicleStatus = "charging"
	VehicleStatusOutOfService VehicleStatus = "out_of_service"
)

// BatteryStatus holds the charge level and long-term health of a vehicle battery.
type BatteryStatus struct {
	Level  float64 `bson:"level" json:"level"`   // percent, 0-100
	Health float64 `bson:"health" json:"health"` // percent, 0-100
}

// Mileage tracks distance accumulated by a vehicle.
type Mileage struct {
	Total        float64 `bson:"total" json:"total"` // in kilometers
	SinceService float64 `bson:"since_service" json:"since_service"`
}

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID                 string           `bson:"_id" json:"id"`
	Registration       string           `bson:"registration" json:"registration"`
	Make               string           `bson:"make" json:"make"`
	Model              string           `bson:"model" json:"model"`
	Year               int              `bson:"year" json:"year"`
	Status             VehicleStatus    `bson:"status" json:"status"`
	Battery            BatteryStatus    `bson:"battery" json:"battery"`
	Mileage            Mileage          `bson:"mileage" json:"mileage"`
	CurrentLocation    *TrackedLocation `bson:"current_location,omitempty" json:"current_location,omitempty"`
	LastTelemetryAt    time.Time        `bson:"last_telemetry_at,omitempty" json:"last_telemetry_at,omitempty"`
	SpecialEquipment   []string         `bson:"special_equipment,omitempty" json:"special_equipment,omitempty"`
	AssignedOperatorID string           `bson:"assigned_operator_id,omitempty" json:"assigned_operator_id,omitempty"`
	IsActive           bool             `bson:"is_active" json:"is_active"`
	CreatedAt          time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `bson:"updated_at" json:"updated_at"`
}
