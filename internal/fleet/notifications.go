package fleet

import (
	"context"

	"github.com/ukydev/fleet-operations/internal/models"
)

// GetNotifications builds the read-only composite feed: maintenance due
// soon, low-battery vehicles, deployments running past their estimate and
// deployments starting shortly. Delivery belongs to a collaborator; only the
// content and triggers live here.
func (s *Service) GetNotifications(ctx context.Context) (*models.NotificationFeed, error) {
	now := s.now()
	feed := &models.NotificationFeed{}

	urgent, err := s.maintenance.FindScheduledMaintenanceDueBefore(ctx, now.Add(s.cfg.UrgentMaintenanceWindow))
	if err != nil {
		return nil, internalErr("find urgent maintenance", err)
	}
	feed.UrgentMaintenance = urgent

	vehicles, err := s.vehicles.FindActiveVehicles(ctx)
	if err != nil {
		return nil, internalErr("find active vehicles", err)
	}
	for _, v := range vehicles {
		if v.Battery.Level < s.cfg.LowBatteryThreshold {
			feed.LowBattery = append(feed.LowBattery, v)
		}
	}

	inProgress, err := s.deployments.FindDeploymentsByStatus(ctx, models.DeploymentStatusInProgress)
	if err != nil {
		return nil, internalErr("find in-progress deployments", err)
	}
	for _, d := range inProgress {
		if d.EstimatedEndTime.Before(now) {
			feed.OverdueDeployments = append(feed.OverdueDeployments, d)
		}
	}

	scheduled, err := s.deployments.FindDeploymentsByStatus(ctx, models.DeploymentStatusScheduled)
	if err != nil {
		return nil, internalErr("find scheduled deployments", err)
	}
	horizon := now.Add(s.cfg.UpcomingWindow)
	for _, d := range scheduled {
		if !d.StartTime.Before(now) && d.StartTime.Before(horizon) {
			feed.UpcomingDeployments = append(feed.UpcomingDeployments, d)
		}
	}

	return feed, nil
}
