// pkg/dspmath/biquad.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package dspmath

// Biquad is a single second-order IIR section in direct-form II
// transposed, expressed with the usual normalized feedforward/feedback
// coefficients (a0 already divided out). The near-field filter service
// stores one measured distance/azimuth response as a cascade of these.
type Biquad struct {
	B0, B1, B2 float64
	A1, A2     float64
	z1, z2     float64
}

// NewBiquad builds a section from raw (non-normalized) coefficients,
// dividing through by a0 as the SOS tables in the near-field filter
// corpus are typically supplied.
func NewBiquad(b0, b1, b2, a0, a1, a2 float64) Biquad {
	return Biquad{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

// Process filters a single sample through the section, updating its
// internal state.
func (b *Biquad) Process(x float64) float64 {
	y := b.B0*x + b.z1
	b.z1 = b.B1*x - b.A1*y + b.z2
	b.z2 = b.B2*x - b.A2*y
	return y
}

// ProcessBlock filters an entire buffer in place.
func (b *Biquad) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = b.Process(x)
	}
}

// Reset clears the section's internal state, used when a filter
// service swaps in a new cascade for a changed distance/azimuth so
// that stale state doesn't bleed into the first samples of the new
// response.
func (b *Biquad) Reset() {
	b.z1, b.z2 = 0, 0
}

// Cascade is an ordered sequence of biquad sections whose combined
// response approximates one measured near-field SOS filter.
type Cascade []Biquad

// Process filters a single sample through every section in order.
func (c Cascade) Process(x float64) float64 {
	for i := range c {
		x = c[i].Process(x)
	}
	return x
}

// ProcessBlock filters an entire buffer in place through every section.
func (c Cascade) ProcessBlock(buf []float64) {
	for i := range c {
		c[i].ProcessBlock(buf)
	}
}

// Reset clears every section's state.
func (c Cascade) Reset() {
	for i := range c {
		c[i].Reset()
	}
}

// Clone returns an independent copy of the cascade, including its
// current filter state. The SOS service hands out clones so that two
// processors bound to the same (distance, azimuth) key never share
// mutable z1/z2 state.
func (c Cascade) Clone() Cascade {
	dup := make(Cascade, len(c))
	copy(dup, c)
	return dup
}
