package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ukydev/fleet-operations/internal/models"
)

// MemoryStore is an in-memory implementation of every collection interface.
// It exists so the engine can be exercised without a live MongoDB; the
// handlers and engine only ever see the interfaces.
type MemoryStore struct {
	mu          sync.RWMutex
	vehicles    map[string]models.Vehicle
	deployments map[string]models.Deployment
	histories   map[string]models.DeploymentHistory
	maintenance map[string]models.MaintenanceLog
	permissions map[models.Role]models.RolePermission
	users       map[string]models.User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vehicles:    make(map[string]models.Vehicle),
		deployments: make(map[string]models.Deployment),
		histories:   make(map[string]models.DeploymentHistory),
		maintenance: make(map[string]models.MaintenanceLog),
		permissions: make(map[models.Role]models.RolePermission),
		users:       make(map[string]models.User),
	}
}

// --- VehicleCollection ---

func (s *MemoryStore) InsertVehicle(ctx context.Context, vehicle models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = time.Now()
	s.vehicles[vehicle.ID] = vehicle
	return nil
}

func (s *MemoryStore) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *MemoryStore) FindAvailableVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return s.filterVehicles(func(v models.Vehicle) bool {
		return v.Status == models.VehicleStatusAvailable && v.IsActive
	})
}

func (s *MemoryStore) FindActiveVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return s.filterVehicles(func(v models.Vehicle) bool { return v.IsActive })
}

func (s *MemoryStore) filterVehicles(keep func(models.Vehicle) bool) ([]models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Vehicle
	for _, v := range s.vehicles {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateVehicle(ctx context.Context, id string, vehicle models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[id]; !ok {
		return ErrNotFound
	}
	vehicle.ID = id
	vehicle.UpdatedAt = time.Now()
	s.vehicles[id] = vehicle
	return nil
}

func (s *MemoryStore) UpdateVehicleStatus(ctx context.Context, id string, status models.VehicleStatus, operatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return ErrNotFound
	}
	v.Status = status
	v.AssignedOperatorID = operatorID
	v.UpdatedAt = time.Now()
	s.vehicles[id] = v
	return nil
}

func (s *MemoryStore) UpdateVehicleTelemetry(ctx context.Context, id string, location *models.Location, battery, odometer *float64, sampledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return ErrNotFound
	}
	if v.LastTelemetryAt.After(sampledAt) {
		return nil // stale sample, keep the newer cache
	}
	if location != nil {
		v.CurrentLocation = &models.TrackedLocation{Location: *location, Timestamp: sampledAt}
	}
	if battery != nil {
		v.Battery.Level = *battery
	}
	if odometer != nil {
		v.Mileage.Total = *odometer
	}
	v.LastTelemetryAt = sampledAt
	v.UpdatedAt = time.Now()
	s.vehicles[id] = v
	return nil
}

// --- DeploymentCollection ---

func (s *MemoryStore) InsertDeployment(ctx context.Context, deployment models.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deployment.CreatedAt = time.Now()
	deployment.UpdatedAt = time.Now()
	s.deployments[deployment.ID] = deployment
	return nil
}

func (s *MemoryStore) FindDeploymentByID(ctx context.Context, id string) (*models.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deployments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *MemoryStore) UpdateDeployment(ctx context.Context, id string, deployment models.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deployments[id]; !ok {
		return ErrNotFound
	}
	deployment.ID = id
	deployment.UpdatedAt = time.Now()
	s.deployments[id] = deployment
	return nil
}

func (s *MemoryStore) FindActiveDeploymentByVehicle(ctx context.Context, vehicleID string) (*models.Deployment, error) {
	return s.findOneDeployment(func(d models.Deployment) bool {
		return d.VehicleID == vehicleID && d.Status.IsActive()
	})
}

func (s *MemoryStore) FindActiveDeploymentByOperator(ctx context.Context, operatorID string) (*models.Deployment, error) {
	return s.findOneDeployment(func(d models.Deployment) bool {
		return d.OperatorID == operatorID && d.Status.IsActive()
	})
}

func (s *MemoryStore) findOneDeployment(match func(models.Deployment) bool) (*models.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.deployments {
		if match(d) {
			d := d
			return &d, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindDeploymentsByStatus(ctx context.Context, status models.DeploymentStatus) ([]models.Deployment, error) {
	return s.filterDeployments(func(d models.Deployment) bool { return d.Status == status })
}

func (s *MemoryStore) FindDeploymentsInWindow(ctx context.Context, from, to time.Time, filters models.AnalyticsFilters) ([]models.Deployment, error) {
	return s.filterDeployments(func(d models.Deployment) bool {
		if d.StartTime.Before(from) || !d.StartTime.Before(to) {
			return false
		}
		if filters.VehicleID != "" && d.VehicleID != filters.VehicleID {
			return false
		}
		if filters.OperatorID != "" && d.OperatorID != filters.OperatorID {
			return false
		}
		return true
	})
}

func (s *MemoryStore) filterDeployments(keep func(models.Deployment) bool) ([]models.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Deployment
	for _, d := range s.deployments {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- HistoryCollection ---

func (s *MemoryStore) InsertHistory(ctx context.Context, history models.DeploymentHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history.CreatedAt = time.Now()
	history.UpdatedAt = time.Now()
	s.histories[history.DeploymentID] = history
	return nil
}

func (s *MemoryStore) FindHistoryByDeployment(ctx context.Context, deploymentID string) (*models.DeploymentHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.histories[deploymentID]
	if !ok {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (s *MemoryStore) AppendStatusChange(ctx context.Context, deploymentID string, change models.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[deploymentID]
	if !ok {
		return ErrNotFound
	}
	h.StatusChanges = append(h.StatusChanges, change)
	h.UpdatedAt = time.Now()
	s.histories[deploymentID] = h
	return nil
}

func (s *MemoryStore) AppendLocationSample(ctx context.Context, deploymentID string, sample models.TrackedLocation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[deploymentID]
	if !ok {
		return false, ErrNotFound
	}
	for _, existing := range h.Locations {
		if existing.Timestamp.Equal(sample.Timestamp) {
			return false, nil
		}
	}
	h.Locations = append(h.Locations, sample)
	h.UpdatedAt = time.Now()
	s.histories[deploymentID] = h
	return true, nil
}

func (s *MemoryStore) AppendTelemetrySample(ctx context.Context, deploymentID string, sample models.TelemetrySample) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[deploymentID]
	if !ok {
		return false, ErrNotFound
	}
	for _, existing := range h.Telemetry {
		if existing.Timestamp.Equal(sample.Timestamp) {
			return false, nil
		}
	}
	h.Telemetry = append(h.Telemetry, sample)
	h.UpdatedAt = time.Now()
	s.histories[deploymentID] = h
	return true, nil
}

func (s *MemoryStore) SetMetrics(ctx context.Context, deploymentID string, metrics models.PerformanceMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[deploymentID]
	if !ok {
		return ErrNotFound
	}
	h.Metrics = &metrics
	h.UpdatedAt = time.Now()
	s.histories[deploymentID] = h
	return nil
}

// --- MaintenanceCollection ---

func (s *MemoryStore) InsertMaintenance(ctx context.Context, log models.MaintenanceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.CreatedAt = time.Now()
	log.UpdatedAt = time.Now()
	s.maintenance[log.ID] = log
	return nil
}

func (s *MemoryStore) FindMaintenanceByID(ctx context.Context, id string) (*models.MaintenanceLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.maintenance[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) FindActiveMaintenance(ctx context.Context, vehicleID string, mtype models.MaintenanceType) (*models.MaintenanceLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.maintenance {
		if m.VehicleID == vehicleID && m.Type == mtype && m.Status.IsActive() {
			m := m
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindScheduledMaintenanceDueBefore(ctx context.Context, cutoff time.Time) ([]models.MaintenanceLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MaintenanceLog
	for _, m := range s.maintenance {
		if m.Status == models.MaintenanceStatusScheduled && m.ScheduledDate.Before(cutoff) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateMaintenance(ctx context.Context, id string, log models.MaintenanceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.maintenance[id]; !ok {
		return ErrNotFound
	}
	log.ID = id
	log.UpdatedAt = time.Now()
	s.maintenance[id] = log
	return nil
}

// --- RolePermissionCollection ---

func (s *MemoryStore) FindRolePermissions(ctx context.Context) ([]models.RolePermission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RolePermission
	for _, p := range s.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

// SeedRolePermission installs a matrix entry; test and bootstrap helper.
func (s *MemoryStore) SeedRolePermission(perm models.RolePermission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[perm.Role] = perm
}

// --- UserCollection ---

func (s *MemoryStore) InsertUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	user.IsActive = true
	s.users[user.ID] = user
	return nil
}

func (s *MemoryStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Username == username })
}

func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

func (s *MemoryStore) findUser(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id string, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	user.ID = id
	user.UpdatedAt = time.Now()
	s.users[id] = user
	return nil
}

func (s *MemoryStore) UpdateLastLogin(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	u.LastLogin = &now
	u.UpdatedAt = now
	s.users[id] = u
	return nil
}
