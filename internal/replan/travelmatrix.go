package replan

import (
	"context"

	"github.com/pageza/fleet-replanner/internal/domain"
	"github.com/pageza/fleet-replanner/internal/travel"
)

// BuildTravelMatrix produces an N×N duration matrix in seconds over an
// ordered, already-deduplicated location set (C4, spec.md §4.4). Oracle
// failures yield the configured sentinel penalty rather than aborting the
// pass.
func BuildTravelMatrix(ctx context.Context, locations []domain.Location, cache travel.Cache, penaltySeconds int) [][]int {
	n := len(locations)
	matrix := make([][]int, n)
	for i := range matrix {
		matrix[i] = make([]int, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			seconds, ok, err := cache.DurationSeconds(ctx, locations[i].Coord, locations[j].Coord)
			if err != nil || !ok {
				matrix[i][j] = penaltySeconds
				continue
			}
			matrix[i][j] = seconds
		}
	}

	return matrix
}
