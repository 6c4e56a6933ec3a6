package travel

import (
	"context"
	"math"

	"github.com/pageza/fleet-replanner/internal/domain"
)

// HaversineOracle estimates travel time from great-circle distance and a
// fixed average road speed. It is the default Oracle: none of the pack's
// third-party stacks ship a routing/geocoding client, and fabricating one
// behind a hand-rolled HTTP wrapper would violate the no-fabricated-
// dependency rule, so this stays on stdlib math (documented in DESIGN.md).
type HaversineOracle struct {
	// AverageSpeedMetersPerSecond approximates in-city road speed inflated
	// over straight-line distance; callers tune it per deployment.
	AverageSpeedMetersPerSecond float64
}

// NewHaversineOracle builds an oracle using avgSpeedKPH as its average
// road speed.
func NewHaversineOracle(avgSpeedKPH float64) *HaversineOracle {
	return &HaversineOracle{AverageSpeedMetersPerSecond: avgSpeedKPH * 1000 / 3600}
}

const earthRadiusMeters = 6371000.0

// DurationSeconds implements Oracle. It never returns an error; ok is false
// only when the configured average speed is not positive. Identical origin
// and destination give a duration of zero.
func (o *HaversineOracle) DurationSeconds(_ context.Context, origin, destination domain.Coordinate) (int, bool, error) {
	if origin.Lat == destination.Lat && origin.Lng == destination.Lng {
		return 0, true, nil
	}

	lat1, lat2 := origin.Lat*math.Pi/180, destination.Lat*math.Pi/180
	dLat := (destination.Lat - origin.Lat) * math.Pi / 180
	dLng := (destination.Lng - origin.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	distanceMeters := earthRadiusMeters * c

	if o.AverageSpeedMetersPerSecond <= 0 {
		return 0, false, nil
	}
	seconds := int(distanceMeters / o.AverageSpeedMetersPerSecond)
	return seconds, true, nil
}
