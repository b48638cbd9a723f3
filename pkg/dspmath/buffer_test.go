// pkg/dspmath/buffer_test.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package dspmath

import "testing"

func TestGain(t *testing.T) {
	buf := []float64{1, 2, 3}
	Gain(buf, 2)
	want := []float64{2, 4, 6}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("Gain mismatch at %d: got %g, expected %g", i, buf[i], want[i])
		}
	}
}

func TestAddScaled(t *testing.T) {
	dst := []float64{1, 1, 1}
	AddScaled(dst, []float64{1, 2, 3}, 0.5)
	want := []float64{1.5, 2, 2.5}
	for i := range want {
		if Abs(dst[i]-want[i]) > 1e-12 {
			t.Errorf("AddScaled mismatch at %d: got %g, expected %g", i, dst[i], want[i])
		}
	}
}

func TestRMS(t *testing.T) {
	if got := RMS([]float64{1, -1, 1, -1}); got != 1 {
		t.Errorf("RMS of unit square wave = %g, expected 1", got)
	}
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS of empty buffer = %g, expected 0", got)
	}
}

func TestZero(t *testing.T) {
	buf := []float64{1, 2, 3}
	Zero(buf)
	for i, v := range buf {
		if v != 0 {
			t.Errorf("Zero left nonzero sample at %d: %g", i, v)
		}
	}
}
