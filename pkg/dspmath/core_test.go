// pkg/dspmath/core_test.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package dspmath

import "testing"

func TestRadiansDegrees(t *testing.T) {
	for _, deg := range []float64{0, 30, 90, 180, 270, 360} {
		r := Radians(deg)
		got := Degrees(r)
		if Abs(got-deg) > 1e-9 {
			t.Errorf("Degrees(Radians(%g)) = %g, expected %g", deg, got, deg)
		}
	}
}

func TestClamp(t *testing.T) {
	type test struct {
		x, lo, hi, want float64
	}
	for _, c := range []test{
		{x: 5, lo: 0, hi: 10, want: 5},
		{x: -5, lo: 0, hi: 10, want: 0},
		{x: 15, lo: 0, hi: 10, want: 10},
	} {
		if got := Clamp(c.x, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%g, %g, %g) = %g, expected %g", c.x, c.lo, c.hi, got, c.want)
		}
	}
}

func TestLerp(t *testing.T) {
	if got := Lerp(0, 1, 5); got != 1 {
		t.Errorf("Lerp(0, 1, 5) = %g, expected 1", got)
	}
	if got := Lerp(1, 1, 5); got != 5 {
		t.Errorf("Lerp(1, 1, 5) = %g, expected 5", got)
	}
	if got := Lerp(0.5, 1, 5); got != 3 {
		t.Errorf("Lerp(0.5, 1, 5) = %g, expected 3", got)
	}
}

func TestRoundTo(t *testing.T) {
	type test struct {
		v        float64
		decimals int
		want     float64
	}
	for _, c := range []test{
		{v: 1.005, decimals: 2, want: 1.01},
		{v: 1.004, decimals: 2, want: 1.0},
		{v: -34.567, decimals: 1, want: -34.6},
	} {
		if got := RoundTo(c.v, c.decimals); Abs(got-c.want) > 1e-9 {
			t.Errorf("RoundTo(%g, %d) = %g, expected %g", c.v, c.decimals, got, c.want)
		}
	}
}

func TestNextPow2(t *testing.T) {
	type test struct {
		v, want int
	}
	for _, c := range []test{
		{v: 1, want: 1},
		{v: 2, want: 2},
		{v: 3, want: 4},
		{v: 512, want: 512},
		{v: 513, want: 1024},
	} {
		if got := NextPow2(c.v); got != c.want {
			t.Errorf("NextPow2(%d) = %d, expected %d", c.v, got, c.want)
		}
	}
}
