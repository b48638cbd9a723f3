// pkg/dspmath/core.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package dspmath collects the scalar and small-buffer math that the
// rendering pipeline leans on: generic numeric helpers, an FFT wrapper
// around gonum's real/complex transforms, biquad (SOS) section
// evaluation, a delay line used by the "expansion method" for per-ear
// ITD, and the one-pole smoother used for distance-attenuation gain.
package dspmath

import (
	"math"
	gomath "math"

	"golang.org/x/exp/constraints"
)

// Mathematical constants, carried over from the teacher's pkg/math so
// that angle conversions keep a single, tested home.
const (
	Pi      = gomath.Pi
	PiOver2 = 1.57079632679489661923
	Sqrt2   = 1.41421356237309504880
)

// Radians converts an angle expressed in degrees to radians.
func Radians(d float64) float64 {
	return d / 180 * Pi
}

// Degrees converts an angle expressed in radians to degrees.
func Degrees(r float64) float64 {
	return r * 180 / Pi
}

func Sign(v float64) float64 {
	if v > 0 {
		return 1
	} else if v < 0 {
		return -1
	}
	return 0
}

// Abs returns the absolute value of x.
func Abs[V constraints.Integer | constraints.Float](x V) V {
	if x < 0 {
		return -x
	}
	return x
}

func Sqr[V constraints.Integer | constraints.Float](v V) V { return v * v }

// Clamp restricts x to the range [low, high].
func Clamp[T constraints.Ordered](x T, low T, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

// Lerp performs linear interpolation between a and b using factor x in [0,1].
func Lerp(x, a, b float64) float64 {
	return (1-x)*a + x*b
}

// RoundTo rounds v to the given number of decimal places. The grid and
// interpolation packages use this to build the 0.01-degree-quantized
// hash key that core-spec direction lookups are keyed on.
func RoundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// NextPow2 returns the smallest power of two that is >= v. The
// convolver uses this to size its FFT blocks.
func NextPow2(v int) int {
	if v <= 1 {
		return 1
	}
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}
