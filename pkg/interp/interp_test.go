// pkg/interp/interp_test.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package interp

import (
	"math"
	"testing"

	"github.com/GrupoDiana/brt-go/pkg/grid"
)

type scalarValue float64

func (s scalarValue) Scale(w float64) scalarValue   { return scalarValue(float64(s) * w) }
func (s scalarValue) Add(o scalarValue) scalarValue { return s + o }

func TestCombine3ConcentratesOnSingleVertex(t *testing.T) {
	got := Combine3[scalarValue](1, 2, 3, 1, 0, 0)
	if got != 1 {
		t.Fatalf("got %v, want 1", got)
	}
}

func TestCombine3AveragesTwoVertices(t *testing.T) {
	got := Combine3[scalarValue](0, 10, 999, 0.5, 0.5, 0)
	if got != 5 {
		t.Fatalf("got %v, want 5", got)
	}
}

func TestOfflineInterpolateAtExactNodeReturnsStoredValue(t *testing.T) {
	g := grid.New[scalarValue](5)
	g.Set(0, 0, 42)
	g.Set(5, 0, 7)
	g.Set(0, 5, 99)

	got, ok := OfflineInterpolate[scalarValue](g, 0, 0)
	if !ok {
		t.Fatalf("expected a triangle to be found")
	}
	if math.Abs(float64(got)-42) > 1e-9 {
		t.Fatalf("got %v, want 42", got)
	}
}

func TestOfflineInterpolateAveragesAdjacentEquatorNodes(t *testing.T) {
	g := grid.New[scalarValue](5)
	g.Set(0, 0, 0)
	g.Set(5, 0, 10)
	g.Set(0, 5, 0)
	g.Set(5, 5, 10)

	got, ok := OfflineInterpolate[scalarValue](g, 2.5, 0)
	if !ok {
		t.Fatalf("expected a triangle to be found")
	}
	if math.Abs(float64(got)-5) > 1e-6 {
		t.Fatalf("got %v, want ~5", got)
	}
}

func TestOnlineInterpolatorCachesTriangleForNearbyQueries(t *testing.T) {
	g := grid.New[scalarValue](5)
	g.Set(0, 0, 0)
	g.Set(5, 0, 10)
	g.Set(0, 5, 0)
	g.Set(5, 5, 10)

	o := NewOnlineInterpolator[scalarValue](g, 4)
	first, ok := o.Interpolate(2.5, 0)
	if !ok {
		t.Fatalf("expected a triangle to be found")
	}
	second, ok := o.Interpolate(2.5, 0)
	if !ok {
		t.Fatalf("expected the cached triangle to still resolve")
	}
	if first != second {
		t.Fatalf("expected identical repeated queries to produce identical results: %v vs %v", first, second)
	}
}

func TestFindTriangleFailsWithoutData(t *testing.T) {
	g := grid.New[scalarValue](5)
	if _, ok := OfflineInterpolate[scalarValue](g, 123, 45); ok {
		t.Fatalf("expected interpolation over an empty grid to fail")
	}
}
