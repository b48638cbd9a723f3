// pkg/geo/orientation_test.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geo

import (
	"math"
	"testing"
)

func TestOrientationNormalizesAzimuth(t *testing.T) {
	o := NewOrientation(-30, 0, 1)
	if math.Abs(o.Azimuth-330) > 1e-9 {
		t.Errorf("expected azimuth 330, got %g", o.Azimuth)
	}

	o = NewOrientation(370, 0, 1)
	if math.Abs(o.Azimuth-10) > 1e-9 {
		t.Errorf("expected azimuth 10, got %g", o.Azimuth)
	}
}

func TestOrientationEqualityResolution(t *testing.T) {
	a := NewOrientation(10.001, 5.001, 1)
	b := NewOrientation(10.004, 5.004, 1)
	if !a.Equal(b) {
		t.Errorf("expected %v and %v to be equal at 0.01-degree resolution", a, b)
	}

	c := NewOrientation(10.02, 5, 1)
	if a.Equal(c) {
		t.Errorf("expected %v and %v to differ", a, c)
	}
}

func TestPoleDetection(t *testing.T) {
	if !NewOrientation(123, 90, 1).IsNorthPole() {
		t.Errorf("expected elevation 90 to be the north pole")
	}
	if !NewOrientation(45, 270, 1).IsSouthPole() {
		t.Errorf("expected elevation 270 to be the south pole")
	}
	if NewOrientation(0, 45, 1).IsPole() {
		t.Errorf("elevation 45 should not be a pole")
	}
}

func TestCartesianRoundTrip(t *testing.T) {
	for _, o := range []Orientation{
		NewOrientation(0, 0, 1),
		NewOrientation(90, 0, 2),
		NewOrientation(45, 30, 1.5),
		NewOrientation(200, 350, 3),
	} {
		v := o.ToCartesian()
		back := FromCartesian(v)
		if !o.Equal(back) {
			t.Errorf("round trip mismatch: %v -> %v -> %v", o, v, back)
		}
	}
}

func TestInterauralAzimuthAtEquator(t *testing.T) {
	for _, az := range []float64{0, 30, 90, 150} {
		theta := InterauralAzimuth(az, 0)
		want := math.Asin(math.Sin(az * math.Pi / 180))
		if math.Abs(theta-want) > 1e-9 {
			t.Errorf("InterauralAzimuth(%g, 0) = %g, expected %g", az, theta, want)
		}
	}
}
