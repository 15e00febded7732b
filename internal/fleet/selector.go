package fleet

import (
	"context"
	"math"
	"sort"

	"github.com/ukydev/fleet-operations/internal/models"
)

// maxOptimalResults caps the ranked list returned to bookers.
const maxOptimalResults = 5

// OptimalCriteria narrows and ranks candidate vehicles for a trip.
// Zero-valued thresholds fall back to the configured selector defaults.
type OptimalCriteria struct {
	Location          *models.Location `json:"location,omitempty"`
	MinBatteryLevel   float64          `json:"min_battery_level,omitempty"`
	MaxDistanceKm     float64          `json:"max_distance_km,omitempty"`
	PreferredMake     string           `json:"preferred_make,omitempty"`
	RequiredEquipment string           `json:"required_equipment,omitempty"`
}

type scoredVehicle struct {
	vehicle models.Vehicle
	score   float64
}

// FindOptimalVehicles ranks available vehicles for the given criteria and
// returns the top matches, best first. This is a stateless read; it reserves
// nothing, ranking can tolerate slightly stale data.
func (s *Service) FindOptimalVehicles(ctx context.Context, criteria OptimalCriteria) ([]models.Vehicle, error) {
	minBattery := criteria.MinBatteryLevel
	if minBattery <= 0 {
		minBattery = s.cfg.SelectorMinBattery
	}
	maxDistance := criteria.MaxDistanceKm
	if maxDistance <= 0 {
		maxDistance = s.cfg.SelectorMaxDistanceKm
	}

	candidates, err := s.vehicles.FindAvailableVehicles(ctx)
	if err != nil {
		return nil, internalErr("find available vehicles", err)
	}

	scored := make([]scoredVehicle, 0, len(candidates))
	for _, v := range candidates {
		if v.Battery.Level < minBattery {
			continue
		}
		if criteria.PreferredMake != "" && v.Make != criteria.PreferredMake {
			continue
		}
		if criteria.RequiredEquipment != "" && !hasEquipment(v, criteria.RequiredEquipment) {
			continue
		}

		// A candidate without a known location is not distance-penalized.
		distanceKm := 0.0
		if criteria.Location != nil && v.CurrentLocation != nil {
			distanceKm = HaversineKm(*criteria.Location, v.CurrentLocation.Location)
			if distanceKm > maxDistance {
				continue
			}
		}

		score := v.Battery.Level
		if criteria.Location != nil {
			score = s.cfg.ScoreBatteryWeight*v.Battery.Level +
				s.cfg.ScoreDistanceWeight*(maxDistance-distanceKm) +
				s.cfg.ScoreEquipmentWeight*(float64(len(v.SpecialEquipment))*10)
		}
		scored = append(scored, scoredVehicle{vehicle: v, score: score})
	}

	// Descending score; ties broken by vehicle id ascending so repeated
	// calls over the same snapshot return the same order.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].vehicle.ID < scored[j].vehicle.ID
	})

	n := len(scored)
	if n > maxOptimalResults {
		n = maxOptimalResults
	}
	result := make([]models.Vehicle, 0, n)
	for _, sv := range scored[:n] {
		result = append(result, sv.vehicle)
	}
	return result, nil
}

func hasEquipment(v models.Vehicle, equipment string) bool {
	for _, e := range v.SpecialEquipment {
		if e == equipment {
			return true
		}
	}
	return false
}

// HaversineKm computes the great-circle distance between two locations.
func HaversineKm(a, b models.Location) float64 {
	const earthRadiusKm = 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}
