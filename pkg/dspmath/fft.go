// pkg/dspmath/fft.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package dspmath

import "gonum.org/v1/gonum/dsp/fourier"

// RealFFT wraps gonum's real-input FFT, caching the plan for a fixed
// block size n. The convolver and the offline IR-partitioning code
// both transform fixed-size blocks repeatedly, so the plan is built
// once per size and reused.
type RealFFT struct {
	n   int
	fft *fourier.FFT
}

// NewRealFFT builds a real-to-complex FFT plan for blocks of n samples.
func NewRealFFT(n int) *RealFFT {
	return &RealFFT{n: n, fft: fourier.NewFFT(n)}
}

func (r *RealFFT) Len() int { return r.n }

// Forward transforms a real time-domain block of length n into its
// n/2+1 non-redundant complex spectrum bins.
func (r *RealFFT) Forward(dst []complex128, src []float64) []complex128 {
	return r.fft.Coefficients(dst, src)
}

// Inverse transforms the n/2+1 non-redundant spectrum bins back into a
// real time-domain block of length n. gonum's Sequence is unnormalized
// (a Coefficients/Sequence round trip scales by n), so this divides it
// back out.
func (r *RealFFT) Inverse(dst []float64, src []complex128) []float64 {
	dst = r.fft.Sequence(dst, src)
	for i := range dst {
		dst[i] /= float64(r.n)
	}
	return dst
}

// CmplxFFT wraps gonum's complex FFT, used by the directivity service
// to transform full (not half-spectrum) complex transfer functions.
type CmplxFFT struct {
	n   int
	fft *fourier.CmplxFFT
}

func NewCmplxFFT(n int) *CmplxFFT {
	return &CmplxFFT{n: n, fft: fourier.NewCmplxFFT(n)}
}

func (c *CmplxFFT) Len() int { return c.n }

func (c *CmplxFFT) Forward(dst, src []complex128) []complex128 {
	return c.fft.Coefficients(dst, src)
}

// Inverse transforms a full complex spectrum of length n back into a
// complex time-domain block, dividing out gonum's unnormalized Sequence
// scale of n (see RealFFT.Inverse).
func (c *CmplxFFT) Inverse(dst, src []complex128) []complex128 {
	dst = c.fft.Sequence(dst, src)
	n := complex(float64(c.n), 0)
	for i := range dst {
		dst[i] /= n
	}
	return dst
}

// MultiplyAccumulate adds the elementwise product of a and b into acc.
// The uniformly-partitioned convolver's inner loop sums P sub-spectra
// products per hop; doing that sum in place avoids P short-lived slice
// allocations per audio block.
func MultiplyAccumulate(acc []complex128, a, b []complex128) {
	for i := range acc {
		acc[i] += a[i] * b[i]
	}
}
