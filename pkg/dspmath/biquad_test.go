// pkg/dspmath/biquad_test.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package dspmath

import "testing"

func TestBiquadIdentity(t *testing.T) {
	// b0=1, everything else zero: a pass-through section.
	b := NewBiquad(1, 0, 0, 1, 0, 0)
	in := []float64{0.1, -0.2, 0.3, -0.4, 0.5}
	out := make([]float64, len(in))
	copy(out, in)
	b.ProcessBlock(out)
	for i := range in {
		if Abs(out[i]-in[i]) > 1e-12 {
			t.Errorf("identity section altered sample %d: got %g, expected %g", i, out[i], in[i])
		}
	}
}

func TestBiquadResetClearsState(t *testing.T) {
	b := NewBiquad(1, 1, 0, 1, 0.5, 0)
	b.Process(1)
	b.Process(1)
	if b.z1 == 0 && b.z2 == 0 {
		t.Fatalf("expected nonzero state after processing samples")
	}
	b.Reset()
	if b.z1 != 0 || b.z2 != 0 {
		t.Errorf("Reset() left nonzero state: z1=%g z2=%g", b.z1, b.z2)
	}
}

func TestCascadeCloneIsIndependent(t *testing.T) {
	c := Cascade{NewBiquad(1, 1, 0, 1, 0.5, 0)}
	c.Process(1)

	dup := c.Clone()
	wantZ1, wantZ2 := dup[0].z1, dup[0].z2

	c.Reset()
	if dup[0].z1 != wantZ1 || dup[0].z2 != wantZ2 {
		t.Errorf("Clone shares state with the original cascade: resetting the original changed the clone")
	}
}
