package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-operations/internal/auth"
	"github.com/ukydev/fleet-operations/internal/db"
	"github.com/ukydev/fleet-operations/internal/models"
)

// Service is the deployment lifecycle and fleet-optimization engine. All
// collaborators are injected at construction; the service holds no global
// state beyond its per-entity locks.
type Service struct {
	cfg         Config
	vehicles    db.VehicleCollection
	deployments db.DeploymentCollection
	history     db.HistoryCollection
	maintenance db.MaintenanceCollection
	authz       *auth.Authorizer
	locks       *entityLocks
	now         func() time.Time
}

// NewService creates the engine. A nil authorizer falls back to the default
// permission matrix.
func NewService(cfg Config, vehicles db.VehicleCollection, deployments db.DeploymentCollection,
	history db.HistoryCollection, maintenance db.MaintenanceCollection, authz *auth.Authorizer) *Service {
	if authz == nil {
		authz = auth.NewAuthorizer(nil)
	}
	return &Service{
		cfg:         cfg,
		vehicles:    vehicles,
		deployments: deployments,
		history:     history,
		maintenance: maintenance,
		authz:       authz,
		locks:       newEntityLocks(),
		now:         time.Now,
	}
}

// opCtx bounds an operation by the configured timeout.
func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.OperationTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.OperationTimeout)
}

// internalErr logs a persistence failure with context and returns a generic
// error that does not leak internals.
func internalErr(op string, err error) error {
	log.WithError(err).WithField("op", op).Error("persistence failure")
	return fmt.Errorf("internal error in %s", op)
}

// CreateDeployment validates a booking request, reserves a vehicle and
// creates the deployment in scheduled state. The reservation and the status
// write happen inside the vehicle's critical section, so two concurrent
// requests for the same vehicle cannot both observe it available.
func (s *Service) CreateDeployment(ctx context.Context, req models.DeploymentRequest) (*models.Deployment, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.validateRequestTimes(req); err != nil {
		return nil, err
	}

	if req.VehicleID != "" {
		return s.reserveAndCreate(ctx, req.VehicleID, req)
	}

	// No specific vehicle requested: rank candidates, then try to reserve
	// them in order. Ranking is stateless; only the reservation commits.
	criteria := OptimalCriteria{
		Location:        req.StartLocation,
		MinBatteryLevel: s.cfg.MinBatteryLevel,
	}
	candidates, err := s.FindOptimalVehicles(ctx, criteria)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		dep, err := s.reserveAndCreate(ctx, candidate.ID, req)
		if err == nil {
			return dep, nil
		}
		var unavailable *VehicleUnavailableError
		if errors.As(err, &unavailable) {
			continue // lost the race for this one, try the next
		}
		return nil, err
	}
	return nil, &VehicleUnavailableError{Reason: "no suitable vehicle available"}
}

func (s *Service) validateRequestTimes(req models.DeploymentRequest) error {
	fields := make(map[string]string)
	if req.OperatorID == "" {
		fields["operator_id"] = "required"
	}
	if req.StartTime.IsZero() {
		fields["start_time"] = "required"
	}
	if req.EstimatedEndTime.IsZero() {
		fields["estimated_end_time"] = "required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	now := s.now()
	if !req.EstimatedEndTime.After(req.StartTime) {
		return &ValidationError{Fields: map[string]string{"estimated_end_time": "must be after start_time"}}
	}
	if req.StartTime.Before(now.Add(-s.cfg.StartGraceWindow)) {
		return &ValidationError{Fields: map[string]string{"start_time": "is in the past"}}
	}
	if req.EstimatedEndTime.Sub(req.StartTime) > s.cfg.MaxDeploymentDuration {
		return &ValidationError{Fields: map[string]string{"estimated_end_time": fmt.Sprintf("duration exceeds %s", s.cfg.MaxDeploymentDuration)}}
	}
	if notice := req.StartTime.Sub(now); notice < s.cfg.MinAdvanceNotice {
		return &ValidationError{Fields: map[string]string{"start_time": fmt.Sprintf("requires %s advance notice", s.cfg.MinAdvanceNotice)}}
	}
	return nil
}

// reserveAndCreate runs the availability rules and, on success, writes the
// vehicle reservation and the deployment atomically with respect to other
// requests for the same vehicle or operator.
func (s *Service) reserveAndCreate(ctx context.Context, vehicleID string, req models.DeploymentRequest) (*models.Deployment, error) {
	releaseVehicle, err := s.locks.acquire(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	defer releaseVehicle()
	releaseOperator, err := s.locks.acquire(ctx, req.OperatorID)
	if err != nil {
		return nil, err
	}
	defer releaseOperator()

	// Operator must not already hold an active deployment.
	if _, err := s.deployments.FindActiveDeploymentByOperator(ctx, req.OperatorID); err == nil {
		return nil, &PilotUnavailableError{OperatorID: req.OperatorID, Reason: "operator already has an active deployment"}
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, internalErr("find active deployment by operator", err)
	}

	vehicle, err := s.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, internalErr("find vehicle", err)
	}
	if !vehicle.IsActive {
		return nil, &VehicleUnavailableError{VehicleID: vehicleID, Reason: "vehicle is deactivated"}
	}
	if vehicle.Status != models.VehicleStatusAvailable {
		return nil, &VehicleUnavailableError{VehicleID: vehicleID, Reason: "vehicle status is " + string(vehicle.Status)}
	}
	if _, err := s.deployments.FindActiveDeploymentByVehicle(ctx, vehicleID); err == nil {
		return nil, &VehicleUnavailableError{VehicleID: vehicleID, Reason: "vehicle already has an active deployment"}
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, internalErr("find active deployment by vehicle", err)
	}

	if vehicle.Battery.Level < s.cfg.MinBatteryLevel {
		return nil, &InsufficientBatteryError{Current: vehicle.Battery.Level, Required: s.cfg.MinBatteryLevel}
	}
	if req.StartLocation != nil && vehicle.CurrentLocation != nil {
		dist := HaversineKm(*req.StartLocation, vehicle.CurrentLocation.Location)
		if dist > s.cfg.MaxPickupDistanceKm {
			return nil, &DistanceTooFarError{DistanceKm: dist, MaxKm: s.cfg.MaxPickupDistanceKm}
		}
	}

	now := s.now()
	deployment := models.Deployment{
		ID:               models.NewID(models.PrefixDeployment),
		VehicleID:        vehicleID,
		OperatorID:       req.OperatorID,
		StartTime:        req.StartTime,
		EstimatedEndTime: req.EstimatedEndTime,
		StartLocation:    req.StartLocation,
		CurrentLocation:  req.StartLocation,
		Status:           models.DeploymentStatusScheduled,
		Purpose:          req.Purpose,
		CreatedBy:        req.CreatedBy,
	}
	if err := s.deployments.InsertDeployment(ctx, deployment); err != nil {
		return nil, internalErr("insert deployment", err)
	}
	history := models.DeploymentHistory{
		DeploymentID: deployment.ID,
		StatusChanges: []models.StatusChange{{
			To:        models.DeploymentStatusScheduled,
			Actor:     req.CreatedBy,
			Timestamp: now,
		}},
	}
	if err := s.history.InsertHistory(ctx, history); err != nil {
		return nil, internalErr("insert history", err)
	}
	if err := s.vehicles.UpdateVehicleStatus(ctx, vehicleID, models.VehicleStatusDeployed, req.OperatorID); err != nil {
		return nil, internalErr("reserve vehicle", err)
	}

	log.WithFields(log.Fields{
		"deployment_id": deployment.ID,
		"vehicle_id":    vehicleID,
		"operator_id":   req.OperatorID,
		"start_time":    req.StartTime,
	}).Info("deployment created")
	return &deployment, nil
}

// GetDeployment returns a deployment by id.
func (s *Service) GetDeployment(ctx context.Context, id string) (*models.Deployment, error) {
	dep, err := s.deployments.FindDeploymentByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrDeploymentNotFound
		}
		return nil, internalErr("find deployment", err)
	}
	return dep, nil
}

// GetDeploymentHistory returns the append-only history for a deployment.
func (s *Service) GetDeploymentHistory(ctx context.Context, id string) (*models.DeploymentHistory, error) {
	h, err := s.history.FindHistoryByDeployment(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrDeploymentNotFound
		}
		return nil, internalErr("find history", err)
	}
	return h, nil
}

// UpdateDeploymentStatus applies one lifecycle transition. Illegal
// transitions are rejected and the prior state preserved.
func (s *Service) UpdateDeploymentStatus(ctx context.Context, id string, to models.DeploymentStatus, actor, reason string) (*models.Deployment, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	dep, err := s.GetDeployment(ctx, id)
	if err != nil {
		return nil, err
	}
	// Vehicle lock first, then deployment: fixed global order.
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

	dep, err = s.GetDeployment(ctx, id) // re-read inside the critical section
	if err != nil {
		return nil, err
	}
	return s.applyTransitionLocked(ctx, dep, to, actor, reason)
}

// CancelDeployment cancels a scheduled deployment. The assigned operator may
// cancel their own; anyone else needs employee level or above.
func (s *Service) CancelDeployment(ctx context.Context, id, actorID string, role models.Role, reason string) (*models.Deployment, error) {
	if reason == "" {
		return nil, &ValidationError{Fields: map[string]string{"reason": "required for cancellation"}}
	}
	dep, err := s.GetDeployment(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID != dep.OperatorID {
		if err := s.authz.RequireRoleLevel(role, models.RoleEmployee, models.RoleAdmin, models.RoleSuperAdmin); err != nil {
			return nil, err
		}
	}
	return s.UpdateDeploymentStatus(ctx, id, models.DeploymentStatusCancelled, actorID, reason)
}

// applyTransitionLocked performs a validated transition. Callers must hold
// the vehicle and deployment locks.
func (s *Service) applyTransitionLocked(ctx context.Context, dep *models.Deployment, to models.DeploymentStatus, actor, reason string) (*models.Deployment, error) {
	if err := ValidateTransition(dep.Status, to, reason); err != nil {
		return nil, err
	}
	from := dep.Status
	now := s.now()
	dep.Status = to

	switch to {
	case models.DeploymentStatusCompleted:
		dep.ActualEndTime = &now
		s.finalizeMetrics(ctx, dep)
		if err := s.releaseVehicleLocked(ctx, dep.VehicleID); err != nil {
			return nil, err
		}
	case models.DeploymentStatusCancelled:
		if err := s.releaseVehicleLocked(ctx, dep.VehicleID); err != nil {
			return nil, err
		}
	}

	if err := s.deployments.UpdateDeployment(ctx, dep.ID, *dep); err != nil {
		return nil, internalErr("update deployment", err)
	}
	change := models.StatusChange{From: from, To: to, Actor: actor, Reason: reason, Timestamp: now}
	if err := s.history.AppendStatusChange(ctx, dep.ID, change); err != nil {
		return nil, internalErr("append status change", err)
	}

	log.WithFields(log.Fields{
		"deployment_id": dep.ID,
		"from":          from,
		"to":            to,
		"actor":         actor,
	}).Info("deployment status changed")
	return dep, nil
}

// finalizeMetrics derives performance metrics from the deployment's history
// and stores them. Metric failures are logged, not fatal: the transition has
// already been decided.
func (s *Service) finalizeMetrics(ctx context.Context, dep *models.Deployment) {
	h, err := s.history.FindHistoryByDeployment(ctx, dep.ID)
	if err != nil {
		log.WithError(err).WithField("deployment_id", dep.ID).Warn("history unavailable for metrics")
		return
	}
	metrics := computeMetrics(h)
	if metrics.TotalDistanceKm > 0 {
		dep.DistanceKm = metrics.TotalDistanceKm
	}
	if n := len(h.Locations); n > 0 {
		last := h.Locations[n-1].Location
		dep.EndLocation = &last
	}
	if err := s.history.SetMetrics(ctx, dep.ID, metrics); err != nil {
		log.WithError(err).WithField("deployment_id", dep.ID).Warn("failed to store metrics")
	}
}

func computeMetrics(h *models.DeploymentHistory) models.PerformanceMetrics {
	var m models.PerformanceMetrics
	for i := 1; i < len(h.Locations); i++ {
		m.TotalDistanceKm += HaversineKm(h.Locations[i-1].Location, h.Locations[i].Location)
	}
	var speedSum float64
	var speedCount int
	var firstBattery, lastBattery *float64
	for _, sample := range h.Telemetry {
		if sample.SpeedKmh != nil {
			speedSum += *sample.SpeedKmh
			speedCount++
			if *sample.SpeedKmh > m.MaxSpeedKmh {
				m.MaxSpeedKmh = *sample.SpeedKmh
			}
		}
		if sample.BatteryLevel != nil {
			if firstBattery == nil {
				firstBattery = sample.BatteryLevel
			}
			lastBattery = sample.BatteryLevel
		}
	}
	if speedCount > 0 {
		m.AvgSpeedKmh = speedSum / float64(speedCount)
	}
	if firstBattery != nil && lastBattery != nil && *firstBattery > *lastBattery {
		m.EnergyUsedPct = *firstBattery - *lastBattery
	}
	return m
}

// releaseVehicleLocked returns the vehicle to the pool when its deployment
// ends; if maintenance is flagged the vehicle goes there instead. The caller
// holds the vehicle lock.
func (s *Service) releaseVehicleLocked(ctx context.Context, vehicleID string) error {
	status := models.VehicleStatusAvailable
	if s.hasActiveMaintenance(ctx, vehicleID) {
		status = models.VehicleStatusMaintenance
	}
	if err := s.vehicles.UpdateVehicleStatus(ctx, vehicleID, status, ""); err != nil {
		return internalErr("release vehicle", err)
	}
	return nil
}

var allMaintenanceTypes = []models.MaintenanceType{
	models.MaintenanceBatteryService,
	models.MaintenanceTireRotation,
	models.MaintenanceBrakeService,
	models.MaintenanceInspection,
	models.MaintenanceSoftwareUpdate,
}

func (s *Service) hasActiveMaintenance(ctx context.Context, vehicleID string) bool {
	for _, mtype := range allMaintenanceTypes {
		if _, err := s.maintenance.FindActiveMaintenance(ctx, vehicleID, mtype); err == nil {
			return true
		}
	}
	return false
}
