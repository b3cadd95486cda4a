package geo

import (
	"math"
	"testing"
)

func TestMetersZeroForSamePoint(t *testing.T) {
	if d := Meters(51.5, -0.12, 51.5, -0.12); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestMetersKnownDistance(t *testing.T) {
	// London -> Cambridge, roughly 79 km.
	d := Meters(51.5074, -0.1278, 52.2053, 0.1218)
	if d < 75000 || d > 83000 {
		t.Fatalf("unexpected distance %v", d)
	}
}

func TestMetersCapped(t *testing.T) {
	// Antipodal points exceed the cap by four orders of magnitude.
	d := Meters(0, 0, 0, 180)
	if d != MaxDistanceMeters {
		t.Fatalf("expected cap %d, got %v", MaxDistanceMeters, d)
	}
}

func TestMetersNaNHitsCap(t *testing.T) {
	// Bad coordinates must look maximally far; a zero here would make
	// garbage the closest stop in every ordering.
	if d := Meters(math.NaN(), math.NaN(), 51.5, -0.1); d != MaxDistanceMeters {
		t.Fatalf("expected cap %d for NaN coords, got %v", MaxDistanceMeters, d)
	}
	if d := Meters(51.5, -0.1, math.NaN(), 0); d != MaxDistanceMeters {
		t.Fatalf("expected cap %d for NaN coords, got %v", MaxDistanceMeters, d)
	}
}

func TestTravelMinutes(t *testing.T) {
	// 30 km at 30 km/h is one hour.
	got := TravelMinutes(30000, 30)
	if math.Abs(got-60) > 1e-9 {
		t.Fatalf("expected 60 minutes, got %v", got)
	}
	// Zero speed falls back to the default rather than dividing by zero.
	if got := TravelMinutes(30000, 0); math.Abs(got-60) > 1e-9 {
		t.Fatalf("fallback speed: expected 60 minutes, got %v", got)
	}
}
