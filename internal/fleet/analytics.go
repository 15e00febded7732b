package fleet

import (
	"context"
	"sort"

	"github.com/ukydev/fleet-operations/internal/models"
)

// topN caps the per-operator and per-vehicle leaderboards.
const topN = 5

// GetDeploymentAnalytics aggregates deployments whose start time falls in
// the window. Pure read over persisted state; a deployment with no end time
// contributes zero duration and utilization.
func (s *Service) GetDeploymentAnalytics(ctx context.Context, window models.AnalyticsWindow, filters models.AnalyticsFilters) (*models.DeploymentReport, error) {
	deployments, err := s.deployments.FindDeploymentsInWindow(ctx, window.From, window.To, filters)
	if err != nil {
		return nil, internalErr("find deployments in window", err)
	}

	report := &models.DeploymentReport{Window: window}
	var durationSum float64
	var durationCount int
	operatorStats := make(map[string]*models.OperatorStats)
	vehicleHours := make(map[string]float64)

	for _, d := range deployments {
		report.TotalDeployments++
		report.TotalDistanceKm += d.DistanceKm
		report.TotalRevenue += d.Revenue
		report.TotalCost += d.OperationalCost

		op := operatorStats[d.OperatorID]
		if op == nil {
			op = &models.OperatorStats{OperatorID: d.OperatorID}
			operatorStats[d.OperatorID] = op
		}
		op.Deployments++

		switch d.Status {
		case models.DeploymentStatusCompleted:
			report.CompletedDeployments++
			op.Completed++
			if d.ActualEndTime != nil {
				hours := d.ActualEndTime.Sub(d.StartTime).Hours()
				if hours > 0 {
					durationSum += hours
					durationCount++
					vehicleHours[d.VehicleID] += hours
				}
			}
		case models.DeploymentStatusCancelled:
			report.CancelledDeployments++
		}
	}

	if report.TotalDeployments > 0 {
		report.CompletionRate = float64(report.CompletedDeployments) / float64(report.TotalDeployments)
	}
	if durationCount > 0 {
		report.AverageDurationHours = durationSum / float64(durationCount)
	}

	for _, op := range operatorStats {
		if op.Deployments > 0 {
			op.CompletionRate = float64(op.Completed) / float64(op.Deployments)
		}
		report.TopOperators = append(report.TopOperators, *op)
	}
	sort.Slice(report.TopOperators, func(i, j int) bool {
		a, b := report.TopOperators[i], report.TopOperators[j]
		if a.Deployments != b.Deployments {
			return a.Deployments > b.Deployments
		}
		return a.OperatorID < b.OperatorID
	})
	if len(report.TopOperators) > topN {
		report.TopOperators = report.TopOperators[:topN]
	}

	windowHours := window.To.Sub(window.From).Hours()
	for vehicleID, hours := range vehicleHours {
		util := models.VehicleUtilization{VehicleID: vehicleID, DeploymentHours: hours}
		if windowHours > 0 {
			util.UtilizationRatio = hours / windowHours
		}
		report.TopVehicles = append(report.TopVehicles, util)
	}
	sort.Slice(report.TopVehicles, func(i, j int) bool {
		a, b := report.TopVehicles[i], report.TopVehicles[j]
		if a.DeploymentHours != b.DeploymentHours {
			return a.DeploymentHours > b.DeploymentHours
		}
		return a.VehicleID < b.VehicleID
	})
	if len(report.TopVehicles) > topN {
		report.TopVehicles = report.TopVehicles[:topN]
	}

	return report, nil
}
