package fleet

import (
	"os"
	"strconv"
	"time"
)

// Config holds the engine's operational thresholds. Every value here is a
// tunable, not a hard-coded truth; the defaults mirror the fleet's business
// rules.
type Config struct {
	// Booking validation.
	MinBatteryLevel       float64       // percent required to accept a deployment
	MaxPickupDistanceKm   float64       // radius between vehicle and requested start
	MaxDeploymentDuration time.Duration // upper bound on estimated duration
	MinAdvanceNotice      time.Duration // how far ahead a booking must be placed
	StartGraceWindow      time.Duration // tolerated clock skew for past start times

	// Optimal vehicle selection.
	SelectorMinBattery    float64
	SelectorMaxDistanceKm float64
	ScoreBatteryWeight    float64
	ScoreDistanceWeight   float64
	ScoreEquipmentWeight  float64

	// Notifications.
	LowBatteryThreshold     float64
	UpcomingWindow          time.Duration
	UrgentMaintenanceWindow time.Duration

	// Per-request bound; an operation past this deadline aborts without
	// partial mutation.
	OperationTimeout time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MinBatteryLevel:         20,
		MaxPickupDistanceKm:     5,
		MaxDeploymentDuration:   12 * time.Hour,
		MinAdvanceNotice:        30 * time.Minute,
		StartGraceWindow:        5 * time.Minute,
		SelectorMinBattery:      30,
		SelectorMaxDistanceKm:   50,
		ScoreBatteryWeight:      0.4,
		ScoreDistanceWeight:     0.3,
		ScoreEquipmentWeight:    0.3,
		LowBatteryThreshold:     20,
		UpcomingWindow:          2 * time.Hour,
		UrgentMaintenanceWindow: 48 * time.Hour,
		OperationTimeout:        5 * time.Second,
	}
}

// ConfigFromEnv returns the defaults overridden by environment variables.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	envFloat("FLEET_MIN_BATTERY", &cfg.MinBatteryLevel)
	envFloat("FLEET_MAX_PICKUP_KM", &cfg.MaxPickupDistanceKm)
	envDuration("FLEET_MAX_DEPLOYMENT_DURATION", &cfg.MaxDeploymentDuration)
	envDuration("FLEET_MIN_ADVANCE_NOTICE", &cfg.MinAdvanceNotice)
	envDuration("FLEET_START_GRACE_WINDOW", &cfg.StartGraceWindow)
	envFloat("FLEET_SELECTOR_MIN_BATTERY", &cfg.SelectorMinBattery)
	envFloat("FLEET_SELECTOR_MAX_DISTANCE_KM", &cfg.SelectorMaxDistanceKm)
	envFloat("FLEET_SCORE_BATTERY_WEIGHT", &cfg.ScoreBatteryWeight)
	envFloat("FLEET_SCORE_DISTANCE_WEIGHT", &cfg.ScoreDistanceWeight)
	envFloat("FLEET_SCORE_EQUIPMENT_WEIGHT", &cfg.ScoreEquipmentWeight)
	envFloat("FLEET_LOW_BATTERY_THRESHOLD", &cfg.LowBatteryThreshold)
	envDuration("FLEET_UPCOMING_WINDOW", &cfg.UpcomingWindow)
	envDuration("FLEET_URGENT_MAINTENANCE_WINDOW", &cfg.UrgentMaintenanceWindow)
	envDuration("FLEET_OPERATION_TIMEOUT", &cfg.OperationTimeout)
	return cfg
}

func envFloat(name string, dst *float64) {
	if v := os.Getenv(name); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}
