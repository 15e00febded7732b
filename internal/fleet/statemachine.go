package fleet

import "github.com/ukydev/fleet-operations/internal/models"

// transitions is the deployment lifecycle table. completed and cancelled are
// terminal; nothing transitions out of them.
var transitions = map[models.DeploymentStatus][]models.DeploymentStatus{
	models.DeploymentStatusScheduled: {
		models.DeploymentStatusInProgress,
		models.DeploymentStatusCancelled,
	},
	models.DeploymentStatusInProgress: {
		models.DeploymentStatusCompleted,
		models.DeploymentStatusEmergencyStop,
	},
	models.DeploymentStatusEmergencyStop: {
		models.DeploymentStatusCompleted,
		models.DeploymentStatusCancelled,
	},
}

// CanTransition reports whether the lifecycle table allows from -> to.
func CanTransition(from, to models.DeploymentStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// reasonRequired reports whether a transition into the status must carry a
// reason for the audit log.
func reasonRequired(to models.DeploymentStatus) bool {
	return to == models.DeploymentStatusCancelled || to == models.DeploymentStatusEmergencyStop
}

// ValidateTransition rejects illegal transitions and missing reasons. The
// prior state is never modified on rejection.
func ValidateTransition(from, to models.DeploymentStatus, reason string) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	if reasonRequired(to) && reason == "" {
		return &ValidationError{Fields: map[string]string{"reason": "required for " + string(to)}}
	}
	return nil
}
