// Package travel provides the travel-time oracle interface and a
// TTL-memoized cache in front of it (spec.md §4.4, §9).
package travel

import (
	"context"
	"fmt"
	"math"

	"github.com/pageza/fleet-replanner/internal/domain"
)

// Oracle returns the street-travel duration between two coordinates. A nil
// result (ok=false) signals failure; the caller substitutes a penalty.
type Oracle interface {
	DurationSeconds(ctx context.Context, origin, destination domain.Coordinate) (seconds int, ok bool, err error)
}

// Cache wraps an Oracle with a TTL-memoized lookup, keyed by rounded
// origin+destination coordinates (spec.md §4.4). Implementations must be
// safe for concurrent use (spec.md §5).
type Cache interface {
	DurationSeconds(ctx context.Context, origin, destination domain.Coordinate) (seconds int, ok bool, err error)
}

// roundedKey formats a cache key from two coordinates rounded to ~11m
// precision (4 decimal degrees), matching the spec's "rounded origin+
// destination coordinates" requirement without depending on the oracle's
// own precision.
func roundedKey(origin, destination domain.Coordinate) string {
	round := func(f float64) float64 { return math.Round(f*10000) / 10000 }
	return fmt.Sprintf("%.4f,%.4f->%.4f,%.4f",
		round(origin.Lat), round(origin.Lng),
		round(destination.Lat), round(destination.Lng))
}
