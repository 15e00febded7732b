package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-operations/internal/db"
	"github.com/ukydev/fleet-operations/internal/models"
)

// defaultServiceProvider is the placeholder assigned to auto-scheduled
// records until a collaborator books a real provider.
const defaultServiceProvider = "fleet service partner"

// Usage thresholds driving the due-date offsets and the early-warning list.
const (
	mileageUrgentKm      = 15000
	mileageElevatedKm    = 10000
	batteryHealthMinimum = 85
)

// ScheduleOutcome is the result of an auto-schedule request: either a new
// record or a skip with its reason.
type ScheduleOutcome struct {
	Log     *models.MaintenanceLog `json:"log,omitempty"`
	Skipped bool                   `json:"skipped"`
	Reason  string                 `json:"reason,omitempty"`
}

// AutoScheduleMaintenance creates a maintenance record for the vehicle with
// a due date computed from usage. A vehicle never carries two active records
// of the same type; a second request is skipped, not duplicated.
func (s *Service) AutoScheduleMaintenance(ctx context.Context, vehicleID string, mtype models.MaintenanceType) (*ScheduleOutcome, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	vehicle, err := s.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, internalErr("find vehicle", err)
	}

	if _, err := s.maintenance.FindActiveMaintenance(ctx, vehicleID, mtype); err == nil {
		return &ScheduleOutcome{Skipped: true, Reason: "already scheduled"}, nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, internalErr("find active maintenance", err)
	}

	dueDate := s.now().Add(dueOffset(vehicle))
	record := models.MaintenanceLog{
		ID:              models.NewID(models.PrefixMaintenance),
		VehicleID:       vehicleID,
		Type:            mtype,
		Description:     fmt.Sprintf("auto-scheduled %s at %.0f km", mtype, vehicle.Mileage.Total),
		ScheduledDate:   dueDate,
		Status:          models.MaintenanceStatusScheduled,
		ServiceProvider: defaultServiceProvider,
	}
	if err := s.maintenance.InsertMaintenance(ctx, record); err != nil {
		return nil, internalErr("insert maintenance", err)
	}

	log.WithFields(log.Fields{
		"vehicle_id":     vehicleID,
		"type":           mtype,
		"scheduled_date": dueDate,
	}).Info("maintenance auto-scheduled")
	return &ScheduleOutcome{Log: &record}, nil
}

// dueOffset maps vehicle usage to how soon maintenance is due.
func dueOffset(v *models.Vehicle) time.Duration {
	switch {
	case v.Mileage.Total > mileageUrgentKm:
		return 7 * 24 * time.Hour
	case v.Mileage.Total > mileageElevatedKm || v.Battery.Health < batteryHealthMinimum:
		return 14 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// DueMaintenance is the scheduler's read view: records already due within
// the window plus vehicles crossing usage thresholds with nothing scheduled
// yet (early warning).
type DueMaintenance struct {
	Scheduled    []models.MaintenanceLog `json:"scheduled"`
	EarlyWarning []models.Vehicle        `json:"early_warning"`
}

// DueForMaintenance returns everything due within the next daysAhead days.
func (s *Service) DueForMaintenance(ctx context.Context, daysAhead int) (*DueMaintenance, error) {
	if daysAhead <= 0 {
		daysAhead = 7
	}
	cutoff := s.now().Add(time.Duration(daysAhead) * 24 * time.Hour)

	scheduled, err := s.maintenance.FindScheduledMaintenanceDueBefore(ctx, cutoff)
	if err != nil {
		return nil, internalErr("find scheduled maintenance", err)
	}
	withRecord := make(map[string]bool, len(scheduled))
	for _, m := range scheduled {
		withRecord[m.VehicleID] = true
	}

	vehicles, err := s.vehicles.FindActiveVehicles(ctx)
	if err != nil {
		return nil, internalErr("find active vehicles", err)
	}
	var warnings []models.Vehicle
	for _, v := range vehicles {
		if withRecord[v.ID] {
			continue
		}
		if v.Mileage.Total > mileageElevatedKm || v.Battery.Health < batteryHealthMinimum {
			warnings = append(warnings, v)
		}
	}

	return &DueMaintenance{Scheduled: scheduled, EarlyWarning: warnings}, nil
}
