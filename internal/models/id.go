package models

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Prefixes for generated record ids.
const (
	PrefixVehicle     = "VEH"
	PrefixDeployment  = "DEP"
	PrefixMaintenance = "MNT"
	PrefixUser        = "OPR"
)

var idSeq uint64

// NewID mints a human-readable id of the form {PREFIX}_{sequence}_{yymmdd}.
// Uniqueness within a process comes from the sequence counter; the date
// suffix exists for operator correlation only.
func NewID(prefix string) string {
	seq := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("%s_%d_%s", prefix, seq, time.Now().Format("060102"))
}
