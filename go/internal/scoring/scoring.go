// Package scoring turns a guessed coordinate into a comparable score.
// Everything here is pure arithmetic; clients are trusted to run it locally
// and persist the result, there is no server-side verification.
package scoring

import (
	"fmt"
	"math"
)

const (
	// EarthRadiusKm is the sphere radius used by the haversine formula.
	EarthRadiusKm = 6371.0

	// MaxScore is awarded for a guess within ExactThresholdKm of the target.
	MaxScore = 5000

	// MaxDistanceKm is the sentinel distance recorded for a round with no
	// guess. It is not a computed value.
	MaxDistanceKm = 20000.0

	// ExactThresholdKm is the distance under which a guess counts as exact.
	ExactThresholdKm = 0.1

	// decayKm controls how fast the score falls off with distance.
	decayKm = 2000.0
)

// Distance returns the great-circle distance in kilometers between two
// coordinates using the haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Pow(math.Sin(dLng/2), 2)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Score maps a distance in kilometers to a round score in [0, MaxScore].
// The curve is exponential: exact guesses get MaxScore, and the score
// strictly decreases as distance grows.
func Score(distanceKm float64) int {
	if distanceKm <= ExactThresholdKm {
		return MaxScore
	}
	s := int(math.Round(MaxScore * math.Exp(-distanceKm/decayKm)))
	if s < 0 {
		return 0
	}
	return s
}

// FormatDistance renders a distance for display: meters under 1 km, one
// decimal under 100 km, whole kilometers above.
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return fmt.Sprintf("%d m", int(math.Round(km*1000)))
	case km < 100:
		return fmt.Sprintf("%.1f km", km)
	default:
		return fmt.Sprintf("%d km", int(math.Round(km)))
	}
}
