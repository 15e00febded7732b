package models

import "time"

// DeploymentStatus represents the lifecycle state of a deployment.
type DeploymentStatus string

const (
	DeploymentStatusScheduled     DeploymentStatus = "scheduled"
	DeploymentStatusInProgress    DeploymentStatus = "in_progress"
	DeploymentStatusCompleted     DeploymentStatus = "completed"
	DeploymentStatusCancelled     DeploymentStatus = "cancelled"
	DeploymentStatusEmergencyStop DeploymentStatus = "emergency_stop"
)

// IsActive reports whether the status still holds the vehicle and operator.
func (s DeploymentStatus) IsActive() bool {
	return s == DeploymentStatusScheduled || s == DeploymentStatusInProgress
}

// IsTerminal reports whether no further transitions are allowed.
func (s DeploymentStatus) IsTerminal() bool {
	return s == DeploymentStatusCompleted || s == DeploymentStatusCancelled
}

// Deployment is one assignment of a vehicle to an operator for a bounded time window.
type Deployment struct {
	ID               string           `bson:"_id" json:"id"`
	VehicleID        string           `bson:"vehicle_id" json:"vehicle_id"`
	OperatorID       string           `bson:"operator_id" json:"operator_id"`
	StartTime        time.Time        `bson:"start_time" json:"start_time"`
	EstimatedEndTime time.Time        `bson:"estimated_end_time" json:"estimated_end_time"`
	ActualEndTime    *time.Time       `bson:"actual_end_time,omitempty" json:"actual_end_time,omitempty"`
	StartLocation    *Location        `bson:"start_location,omitempty" json:"start_location,omitempty"`
	CurrentLocation  *Location        `bson:"current_location,omitempty" json:"current_location,omitempty"`
	EndLocation      *Location        `bson:"end_location,omitempty" json:"end_location,omitempty"`
	Status           DeploymentStatus `bson:"status" json:"status"`
	Purpose          string           `bson:"purpose" json:"purpose"` // "delivery", "patrol", "transport"
	DistanceKm       float64          `bson:"distance_km" json:"distance_km"`
	Revenue          float64          `bson:"revenue" json:"revenue"`                   // in USD
	OperationalCost  float64          `bson:"operational_cost" json:"operational_cost"` // in USD
	CreatedBy        string           `bson:"created_by" json:"created_by"`
	ApprovedBy       string           `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	CreatedAt        time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `bson:"updated_at" json:"updated_at"`
}

// DeploymentRequest is a booking request for a new deployment. An empty
// VehicleID asks the engine to pick the optimal vehicle.
type DeploymentRequest struct {
	VehicleID        string    `json:"vehicle_id,omitempty"`
	OperatorID       string    `json:"operator_id"`
	StartTime        time.Time `json:"start_time"`
	EstimatedEndTime time.Time `json:"estimated_end_time"`
	StartLocation    *Location `json:"start_location,omitempty"`
	Purpose          string    `json:"purpose"`
	CreatedBy        string    `json:"created_by"`
}
