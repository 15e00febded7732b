package models

// NotificationFeed is the read-only composite consumed by the notification
// collaborator. Delivery mechanics live outside the core.
type NotificationFeed struct {
	UrgentMaintenance   []MaintenanceLog `json:"urgent_maintenance"`
	LowBattery          []Vehicle        `json:"low_battery"`
	OverdueDeployments  []Deployment     `json:"overdue_deployments"`
	UpcomingDeployments []Deployment     `json:"upcoming_deployments"`
}
