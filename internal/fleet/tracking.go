package fleet

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-operations/internal/models"
)

// TrackingSample is one telemetry submission for an in-progress deployment.
// All payload fields are optional; Timestamp defaults to receipt time.
// Callers are expected to submit at most once per 30 seconds per deployment;
// throttling is enforced by the boundary rate limiter, not here.
type TrackingSample struct {
	Location     *models.Location        `json:"location,omitempty"`
	BatteryLevel *float64                `json:"battery_level,omitempty"`
	SpeedKmh     *float64                `json:"speed_kmh,omitempty"`
	OdometerKm   *float64                `json:"odometer_km,omitempty"`
	Status       models.DeploymentStatus `json:"status,omitempty"`
	Timestamp    time.Time               `json:"timestamp"`
}

func (t TrackingSample) hasTelemetry() bool {
	return t.BatteryLevel != nil || t.SpeedKmh != nil || t.OdometerKm != nil
}

// IngestResult reports the per-part outcome of one tracking submission.
// Telemetry can commit while an embedded status change is rejected; callers
// must not assume all-or-nothing.
type IngestResult struct {
	LocationRecorded  bool                    `json:"location_recorded"`
	TelemetryRecorded bool                    `json:"telemetry_recorded"`
	StatusChanged     bool                    `json:"status_changed"`
	Status            models.DeploymentStatus `json:"status"`
	TransitionError   error                   `json:"-"`
}

// IngestTracking merges one tracking sample into a deployment's append-only
// history and refreshes the vehicle's cached state. Re-ingesting a sample
// with the same timestamp is a no-op for the history sequences.
func (s *Service) IngestTracking(ctx context.Context, deploymentID string, sample TrackingSample, actor string) (*IngestResult, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if sample.Timestamp.IsZero() {
		sample.Timestamp = s.now()
	}

	dep, err := s.GetDeployment(ctx, deploymentID)
	if err != nil {
		return nil, err
	}
	releaseVehicle, err := s.locks.acquire(ctx, dep.VehicleID)
	if err != nil {
		return nil, err
	}
	defer releaseVehicle()
	releaseDep, err := s.locks.acquire(ctx, dep.ID)
	if err != nil {
		return nil, err
	}
	defer releaseDep()

	dep, err = s.GetDeployment(ctx, deploymentID)
	if err != nil {
		return nil, err
	}

	// First ingest against a scheduled deployment marks it in progress;
	// anything else outside in_progress is rejected.
	if dep.Status == models.DeploymentStatusScheduled {
		dep, err = s.applyTransitionLocked(ctx, dep, models.DeploymentStatusInProgress, actor, "")
		if err != nil {
			return nil, err
		}
	} else if dep.Status != models.DeploymentStatusInProgress {
		return nil, ErrDeploymentNotActive
	}

	result := &IngestResult{Status: dep.Status}

	if sample.Location != nil {
		appended, err := s.history.AppendLocationSample(ctx, dep.ID, models.TrackedLocation{
			Location:  *sample.Location,
			Timestamp: sample.Timestamp,
		})
		if err != nil {
			return nil, internalErr("append location sample", err)
		}
		result.LocationRecorded = appended
	}
	if sample.hasTelemetry() {
		appended, err := s.history.AppendTelemetrySample(ctx, dep.ID, models.TelemetrySample{
			BatteryLevel: sample.BatteryLevel,
			SpeedKmh:     sample.SpeedKmh,
			OdometerKm:   sample.OdometerKm,
			Timestamp:    sample.Timestamp,
		})
		if err != nil {
			return nil, internalErr("append telemetry sample", err)
		}
		result.TelemetryRecorded = appended
	}

	if sample.Location != nil {
		dep.CurrentLocation = sample.Location
		if err := s.deployments.UpdateDeployment(ctx, dep.ID, *dep); err != nil {
			return nil, internalErr("update deployment location", err)
		}
	}

	// Cached vehicle state is last-writer-wins keyed on the sample
	// timestamp; a stale sample updates the history but not the cache.
	if sample.Location != nil || sample.hasTelemetry() {
		err := s.vehicles.UpdateVehicleTelemetry(ctx, dep.VehicleID, sample.Location,
			sample.BatteryLevel, sample.OdometerKm, sample.Timestamp)
		if err != nil {
			return nil, internalErr("update vehicle telemetry", err)
		}
	}

	// An embedded status change rides along with the telemetry. If the
	// transition is illegal the recorded samples stand; the caller learns
	// about both outcomes.
	if sample.Status != "" && sample.Status != dep.Status {
		dep, err = s.applyTransitionLocked(ctx, dep, sample.Status, actor, "")
		if err != nil {
			result.TransitionError = err
		} else {
			result.StatusChanged = true
			result.Status = dep.Status
		}
	}

	log.WithFields(log.Fields{
		"deployment_id": deploymentID,
		"location":      result.LocationRecorded,
		"telemetry":     result.TelemetryRecorded,
		"status":        result.Status,
	}).Debug("tracking sample ingested")
	return result, nil
}
