// pkg/convolve/convolve.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package convolve implements the uniformly-partitioned FFT convolver
// of core-spec §4.5: a ring of the P most recently transformed input
// sub-spectra, complex-multiplied against a P-sub-filter IR and
// overlap-added every tick, giving constant per-tick cost regardless of
// how long the impulse response is, with no added latency beyond the
// filter's own length.
package convolve

import (
	"github.com/GrupoDiana/brt-go/pkg/dspmath"
	"github.com/GrupoDiana/brt-go/pkg/util"
)

// Subfilter is one frequency-domain block of a partitioned impulse
// response: the forward transform of B zero-padded-to-2B time-domain
// samples, so B+1 non-redundant complex bins (core-spec §3
// "THRIRPartitioned"). pkg/hrtf and pkg/binaural share this type so an
// offline-partitioned HRIR can be fed straight into a Convolver.
type Subfilter []complex128

// Convolver is a single-channel uniformly-partitioned convolver bound
// to a fixed block size B and partition count P (core-spec §4.5).
type Convolver struct {
	blockSize int
	fft       *dspmath.RealFFT

	ring *util.RingBuffer[[]complex128]
	tail []float64

	padded []float64
	acc    []complex128
	scratch []float64
}

// New builds a convolver for the given block size. The partition count
// is determined by the filter passed to the first Process call; reset
// clears the ring without changing it.
func New(blockSize int) *Convolver {
	return &Convolver{
		blockSize: blockSize,
		fft:       dspmath.NewRealFFT(2 * blockSize),
		padded:    make([]float64, 2*blockSize),
		tail:      make([]float64, blockSize),
	}
}

// ensureRing allocates the ring on first use, sized to that filter's
// sub-filter count; later calls keep the existing ring.
func (c *Convolver) ensureRing(numPartitions int) {
	if c.ring != nil {
		return
	}
	c.ring = util.NewRingBuffer[[]complex128](numPartitions)
	c.acc = make([]complex128, c.blockSize+1)
}

// Process runs one block of input through the convolver against
// filter (ceil(L/B) sub-filters, each B+1 complex bins), writing the
// resulting B-sample output block (core-spec §4.5 steps 1-3).
func (c *Convolver) Process(out, in []float64, filter []Subfilter) {
	c.ensureRing(len(filter))

	dspmath.Zero(c.padded)
	copy(c.padded, in)
	spectrum := c.fft.Forward(nil, c.padded)
	c.ring.Add(spectrum)

	for i := range c.acc {
		c.acc[i] = 0
	}
	n := c.ring.Size()
	p := len(filter)
	if n < p {
		p = n
	}
	for k := 0; k < p; k++ {
		sub := c.ring.Get(n - 1 - k)
		dspmath.MultiplyAccumulate(c.acc, filter[k], sub)
	}

	if c.scratch == nil || len(c.scratch) != 2*c.blockSize {
		c.scratch = make([]float64, 2*c.blockSize)
	}
	c.fft.Inverse(c.scratch, c.acc)

	// Overlap-add: the first B samples of the linear convolution belong
	// to this tick's output together with whatever carried over from
	// the previous tick; the last B samples are this tick's carry into
	// the next one (core-spec §4.5 step 3).
	for i := 0; i < c.blockSize; i++ {
		out[i] = c.scratch[i] + c.tail[i]
	}
	copy(c.tail, c.scratch[c.blockSize:2*c.blockSize])
}

// Reset clears the ring of input sub-spectra and the overlap-add tail,
// used at creation time and whenever the bound HRTF/directivity
// changes to prevent audible artefacts (core-spec §4.5).
func (c *Convolver) Reset() {
	if c.ring != nil {
		c.ring.Reset()
	}
	dspmath.Zero(c.tail)
}
