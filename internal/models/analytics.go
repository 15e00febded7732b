package models

import "time"

// AnalyticsWindow bounds an analytics query in time.
type AnalyticsWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// AnalyticsFilters narrows an analytics query to one vehicle and/or operator.
type AnalyticsFilters struct {
	VehicleID  string `json:"vehicle_id,omitempty"`
	OperatorID string `json:"operator_id,omitempty"`
}

// OperatorStats summarizes one operator's deployments within a window.
type OperatorStats struct {
	OperatorID     string  `json:"operator_id"`
	Deployments    int     `json:"deployments"`
	Completed      int     `json:"completed"`
	CompletionRate float64 `json:"completion_rate"`
}

// VehicleUtilization summarizes one vehicle's use within a window.
type VehicleUtilization struct {
	VehicleID        string  `json:"vehicle_id"`
	DeploymentHours  float64 `json:"deployment_hours"`
	UtilizationRatio float64 `json:"utilization_ratio"` // hours / window length
}

// DeploymentReport is the aggregate view over deployments in a window.
type DeploymentReport struct {
	Window               AnalyticsWindow      `json:"window"`
	TotalDeployments     int                  `json:"total_deployments"`
	CompletedDeployments int                  `json:"completed_deployments"`
	CancelledDeployments int                  `json:"cancelled_deployments"`
	CompletionRate       float64              `json:"completion_rate"`
	AverageDurationHours float64              `json:"average_duration_hours"`
	TotalDistanceKm      float64              `json:"total_distance_km"`
	TotalRevenue         float64              `json:"total_revenue"`
	TotalCost            float64              `json:"total_cost"`
	TopOperators         []OperatorStats      `json:"top_operators"`
	TopVehicles          []VehicleUtilization `json:"top_vehicles"`
}
