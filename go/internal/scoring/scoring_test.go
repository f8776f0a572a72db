package scoring

import (
	"math"
	"testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		distanceKm float64
		want       int
	}{
		{name: "zero distance", distanceKm: 0, want: 5000},
		{name: "exact threshold", distanceKm: 0.1, want: 5000},
		{name: "one decay constant", distanceKm: 2000, want: 1839},
		{name: "two decay constants", distanceKm: 4000, want: 677},
		{name: "no guess sentinel", distanceKm: MaxDistanceKm, want: 0},
		{name: "beyond sentinel", distanceKm: 40000, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.distanceKm); got != tt.want {
				t.Fatalf("Score(%v) = %d, want %d", tt.distanceKm, got, tt.want)
			}
		})
	}
}

func TestScoreMonotonicallyDecreasing(t *testing.T) {
	prev := Score(0.2)
	for d := 1.0; d <= 20000; d += 50 {
		got := Score(d)
		if got > prev {
			t.Fatalf("Score(%v) = %d exceeds score %d at shorter distance", d, got, prev)
		}
		if got < 0 || got > MaxScore {
			t.Fatalf("Score(%v) = %d out of [0, %d]", d, got, MaxScore)
		}
		prev = got
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		wantKm                 float64
		tolKm                  float64
	}{
		{name: "same point", lat1: 50.45, lng1: 30.52, lat2: 50.45, lng2: 30.52, wantKm: 0, tolKm: 0.001},
		{name: "paris to london", lat1: 48.8566, lng1: 2.3522, lat2: 51.5074, lng2: -0.1278, wantKm: 344, tolKm: 5},
		{name: "antipodal-ish", lat1: 0, lng1: 0, lat2: 0, lng2: 180, wantKm: math.Pi * EarthRadiusKm, tolKm: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.wantKm) > tt.tolKm {
				t.Fatalf("Distance() = %v, want %v +/- %v", got, tt.wantKm, tt.tolKm)
			}
		})
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := Distance(40.7128, -74.0060, 35.6762, 139.6503)
	b := Distance(35.6762, 139.6503, 40.7128, -74.0060)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("distance not symmetric: %v vs %v", a, b)
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		km   float64
		want string
	}{
		{km: 0.25, want: "250 m"},
		{km: 42.195, want: "42.2 km"},
		{km: 12345, want: "12345 km"},
	}

	for _, tt := range tests {
		if got := FormatDistance(tt.km); got != tt.want {
			t.Fatalf("FormatDistance(%v) = %q, want %q", tt.km, got, tt.want)
		}
	}
}
