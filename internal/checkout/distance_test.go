package checkout

import (
	"math"
	"testing"
)

func TestDistanceKm(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		if d := DistanceKm(-1.2921, 36.8219, -1.2921, 36.8219); d != 0 {
			t.Errorf("expected 0, got %f", d)
		}
	})

	t.Run("one degree of longitude at the equator", func(t *testing.T) {
		d := DistanceKm(0, 0, 0, 1)
		// ~111.19 km with the mean earth radius.
		if math.Abs(d-111.19) > 0.5 {
			t.Errorf("expected roughly 111.19 km, got %f", d)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		a := DistanceKm(-1.2921, 36.8219, -1.3032, 36.7073)
		b := DistanceKm(-1.3032, 36.7073, -1.2921, 36.8219)
		if math.Abs(a-b) > 1e-9 {
			t.Errorf("expected symmetric distances, got %f and %f", a, b)
		}
	})
}
