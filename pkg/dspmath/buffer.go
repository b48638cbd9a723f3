// pkg/dspmath/buffer.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package dspmath

import "math"

// Zero fills buf with silence.
func Zero(buf []float64) {
	clear(buf)
}

// Gain scales buf in place by g.
func Gain(buf []float64, g float64) {
	for i := range buf {
		buf[i] *= g
	}
}

// Add accumulates src into dst, which must be at least as long as src.
func Add(dst, src []float64) {
	for i, v := range src {
		dst[i] += v
	}
}

// AddScaled accumulates g*src into dst.
func AddScaled(dst, src []float64, g float64) {
	for i, v := range src {
		dst[i] += g * v
	}
}

// Copy copies src into dst, returning the number of samples copied.
func Copy(dst, src []float64) int {
	return copy(dst, src)
}

// RMS returns the root-mean-square level of buf, used by diagnostics
// to report whether a processor's output has gone silent or is
// clipping.
func RMS(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, v := range buf {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(buf)))
}
