package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-operations/internal/auth"
	"github.com/ukydev/fleet-operations/internal/fleet"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine error kinds to HTTP statuses. Unexpected
// errors surface as a generic 500; the detail is already logged.
func writeEngineError(w http.ResponseWriter, err error) {
	var (
		vehicleUnavailable *fleet.VehicleUnavailableError
		pilotUnavailable   *fleet.PilotUnavailableError
		battery            *fleet.InsufficientBatteryError
		distance           *fleet.DistanceTooFarError
		transition         *fleet.InvalidTransitionError
		validation         *fleet.ValidationError
		duplicate          *fleet.DuplicateKeyError
		denied             *auth.DeniedError
	)
	switch {
	case errors.Is(err, fleet.ErrVehicleNotFound), errors.Is(err, fleet.ErrDeploymentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error(), "fields": validation.Fields})
	case errors.As(err, &vehicleUnavailable),
		errors.As(err, &pilotUnavailable),
		errors.As(err, &battery),
		errors.As(err, &distance),
		errors.As(err, &transition),
		errors.As(err, &duplicate),
		errors.Is(err, fleet.ErrDeploymentNotActive),
		errors.Is(err, fleet.ErrMaintenanceRequired):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &denied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "operation timed out")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
