// pkg/dspmath/delay.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package dspmath

// DelayLine implements the "expansion method" whole-sample delay used
// for per-ear ITD: the previous block's tail is concatenated in front
// of the current block, the delayed result is sliced back out, and the
// new tail is saved for the following call.
type DelayLine struct {
	maxDelay int
	tail     []float64
}

// NewDelayLine allocates a delay line able to hold up to maxDelay
// samples of history between calls.
func NewDelayLine(maxDelay int) *DelayLine {
	return &DelayLine{maxDelay: maxDelay, tail: make([]float64, maxDelay)}
}

// Process delays in by delaySamples (clamped to [0, maxDelay]) and
// writes the result into out, which must be the same length as in. It
// is safe to call with out aliasing in.
func (d *DelayLine) Process(out, in []float64, delaySamples int) {
	delaySamples = Clamp(delaySamples, 0, d.maxDelay)
	n := len(in)

	expanded := make([]float64, d.maxDelay+n)
	copy(expanded, d.tail)
	copy(expanded[d.maxDelay:], in)

	start := d.maxDelay - delaySamples
	copy(out, expanded[start:start+n])

	if n >= d.maxDelay {
		copy(d.tail, expanded[len(expanded)-d.maxDelay:])
	} else {
		copy(d.tail, d.tail[n:])
		copy(d.tail[d.maxDelay-n:], in)
	}
}

// Reset clears the saved tail, used whenever a bound HRTF or
// near-field filter changes in a way that invalidates the delay
// line's history (e.g. the manager re-enters setup).
func (d *DelayLine) Reset() {
	clear(d.tail)
}

// Smoother is a one-pole exponential smoother, used by the
// distance-attenuation processor to ramp gain across a block boundary
// rather than stepping it, which would otherwise produce an audible
// click whenever the source or listener moves.
type Smoother struct {
	Coefficient float64
	value       float64
	init        bool
}

// NewSmoother builds a smoother with the given one-pole coefficient in
// [0,1); larger values track the target more slowly.
func NewSmoother(coefficient float64) *Smoother {
	return &Smoother{Coefficient: coefficient}
}

// Step advances the smoother one sample toward target and returns the
// new smoothed value. The first call snaps directly to target so a
// freshly constructed smoother doesn't ramp up from zero.
func (s *Smoother) Step(target float64) float64 {
	if !s.init {
		s.value = target
		s.init = true
		return s.value
	}
	s.value = s.Coefficient*s.value + (1-s.Coefficient)*target
	return s.value
}

// Reset clears the smoother back to its just-constructed state.
func (s *Smoother) Reset() {
	s.value = 0
	s.init = false
}
