package models

import "time"

// StatusChange is one entry in a deployment's status-change log.
type StatusChange struct {
	From      DeploymentStatus `bson:"from" json:"from"`
	To        DeploymentStatus `bson:"to" json:"to"`
	Actor     string           `bson:"actor" json:"actor"`
	Reason    string           `bson:"reason,omitempty" json:"reason,omitempty"`
	Timestamp time.Time        `bson:"timestamp" json:"timestamp"`
}

// TelemetrySample is a timestamped battery/speed/odometer reading ingested
// during an active deployment.
type TelemetrySample struct {
	BatteryLevel *float64  `bson:"battery_level,omitempty" json:"battery_level,omitempty"`
	SpeedKmh     *float64  `bson:"speed_kmh,omitempty" json:"speed_kmh,omitempty"`
	OdometerKm   *float64  `bson:"odometer_km,omitempty" json:"odometer_km,omitempty"`
	Timestamp    time.Time `bson:"timestamp" json:"timestamp"`
}

// PerformanceMetrics are derived from a deployment's history on completion.
type PerformanceMetrics struct {
	TotalDistanceKm float64 `bson:"total_distance_km" json:"total_distance_km"`
	AvgSpeedKmh     float64 `bson:"avg_speed_kmh" json:"avg_speed_kmh"`
	MaxSpeedKmh     float64 `bson:"max_speed_kmh" json:"max_speed_kmh"`
	EnergyUsedPct   float64 `bson:"energy_used_pct" json:"energy_used_pct"`
}

// DeploymentHistory owns the append-only record of a single deployment:
// status changes, location samples and telemetry samples.
type DeploymentHistory struct {
	DeploymentID  string              `bson:"_id" json:"deployment_id"`
	StatusChanges []StatusChange      `bson:"status_changes" json:"status_changes"`
	Locations     []TrackedLocation   `bson:"locations" json:"locations"`
	Telemetry     []TelemetrySample   `bson:"telemetry" json:"telemetry"`
	Metrics       *PerformanceMetrics `bson:"metrics,omitempty" json:"metrics,omitempty"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updated_at"`
}
