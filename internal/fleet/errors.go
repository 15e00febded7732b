package fleet

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ukydev/fleet-operations/internal/models"
)

var (
	ErrVehicleNotFound     = errors.New("vehicle not found")
	ErrDeploymentNotFound  = errors.New("deployment not found")
	ErrDeploymentNotActive = errors.New("deployment is not active")
	ErrMaintenanceRequired = errors.New("vehicle requires maintenance")
)

// VehicleUnavailableError reports why a requested vehicle cannot be deployed.
type VehicleUnavailableError struct {
	VehicleID string
	Reason    string
}

func (e *VehicleUnavailableError) Error() string {
	return fmt.Sprintf("vehicle %s unavailable: %s", e.VehicleID, e.Reason)
}

// PilotUnavailableError reports why an operator cannot take a deployment.
type PilotUnavailableError struct {
	OperatorID string
	Reason     string
}

func (e *PilotUnavailableError) Error() string {
	return fmt.Sprintf("pilot %s unavailable: %s", e.OperatorID, e.Reason)
}

// InsufficientBatteryError carries the current and required charge levels.
type InsufficientBatteryError struct {
	Current  float64
	Required float64
}

func (e *InsufficientBatteryError) Error() string {
	return fmt.Sprintf("insufficient battery: %.0f%% current, %.0f%% required", e.Current, e.Required)
}

// DistanceTooFarError carries the computed pickup distance and the limit.
type DistanceTooFarError struct {
	DistanceKm float64
	MaxKm      float64
}

func (e *DistanceTooFarError) Error() string {
	return fmt.Sprintf("vehicle is %.1f km away, maximum pickup distance is %.1f km", e.DistanceKm, e.MaxKm)
}

// InvalidTransitionError reports a status change the lifecycle table forbids.
type InvalidTransitionError struct {
	From models.DeploymentStatus
	To   models.DeploymentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// ValidationError reports per-field validation failures.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// DuplicateKeyError reports a uniqueness violation.
type DuplicateKeyError struct {
	Field string
	Value string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate %s: %s", e.Field, e.Value)
}
