// pkg/reader/fixture.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package reader

import "github.com/GrupoDiana/brt-go/pkg/geo"

// Fixture is an in-memory stand-in for a SOFA-backed reader, used by
// tests that need HRTFSource/HRBRIRSource/SOSSource/DirectivityTFSource
// data without parsing a file. It implements HRTFSource directly and
// exposes the other three through AsHRBRIRSource, AsSOSSource and
// AsDirectivityTFSource; a test builds one with the With* methods and
// passes it (or the matching view) to the matching Load* function.
type Fixture struct {
	sampleRate float64
	hrir       []HRIRSample
	hrbrir     []HRBRIRSample
	sos        []SOSSample
	tf         []DirectivityTFSample
}

// NewFixture builds an empty fixture for the given sample rate (only
// consulted by HRTFSource/HRBRIRSource, which carry a sample rate).
func NewFixture(sampleRate float64) *Fixture {
	return &Fixture{sampleRate: sampleRate}
}

func (f *Fixture) SampleRate() float64 { return f.sampleRate }

// WithHRIR appends one spherical-coordinate HRIR measurement.
func (f *Fixture) WithHRIR(azimuth, elevation, distance float64, listenerPosition geo.Vec3, left, right []float64, leftDelay, rightDelay int) *Fixture {
	f.hrir = append(f.hrir, HRIRSample{
		Orientation:      geo.NewOrientation(azimuth, elevation, distance),
		ListenerPosition: listenerPosition,
		Left:             left, Right: right,
		LeftDelay: leftDelay, RightDelay: rightDelay,
	})
	return f
}

// WithHRIRCartesian appends one HRIR measurement given as a cartesian
// source position, converting it to the canonical spherical form the
// way core-spec §6 says a reader must when it detects a
// cartesian-vs-spherical mismatch.
func (f *Fixture) WithHRIRCartesian(sourcePosition geo.Vec3, listenerPosition geo.Vec3, left, right []float64, leftDelay, rightDelay int) *Fixture {
	o := geo.FromCartesian(sourcePosition)
	return f.WithHRIR(o.Azimuth, o.Elevation, o.Distance, listenerPosition, left, right, leftDelay, rightDelay)
}

func (f *Fixture) Samples() []HRIRSample { return f.hrir }

// WithHRBRIR appends one room-measurement sample.
func (f *Fixture) WithHRBRIR(azimuth, elevation, distance float64, listenerPosition, emitter geo.Vec3, left, right []float64, leftDelay, rightDelay int) *Fixture {
	f.hrbrir = append(f.hrbrir, HRBRIRSample{
		Orientation:      geo.NewOrientation(azimuth, elevation, distance),
		ListenerPosition: listenerPosition,
		Emitter:          emitter,
		Left:             left, Right: right,
		LeftDelay: leftDelay, RightDelay: rightDelay,
	})
	return f
}

// WithSOS appends one (azimuth, distance) coefficient sample. Pass nil
// for left or right to record a single-ear-only measurement.
func (f *Fixture) WithSOS(azimuthDeg, distanceM float64, left, right []float64) *Fixture {
	f.sos = append(f.sos, SOSSample{AzimuthDeg: azimuthDeg, DistanceM: distanceM, Left: left, Right: right})
	return f
}

// WithTF appends one directivity half-spectrum sample.
func (f *Fixture) WithTF(azimuthDeg, elevationDeg float64, real, imag []float64) *Fixture {
	f.tf = append(f.tf, DirectivityTFSample{AzimuthDeg: azimuthDeg, ElevationDeg: elevationDeg, Real: real, Imag: imag})
	return f
}

// hrbrirView adapts a *Fixture to HRBRIRSource: Fixture's own
// Samples() already returns []HRIRSample for HRTFSource, and Go has
// no overloading, so HRBRIRSource/SOSSource/DirectivityTFSource each
// get a thin same-package view type instead.
type hrbrirView struct{ f *Fixture }

func (v hrbrirView) SampleRate() float64     { return v.f.sampleRate }
func (v hrbrirView) Samples() []HRBRIRSample { return v.f.hrbrir }

// AsHRBRIRSource returns an HRBRIRSource view of f, for callers of
// LoadHRBRIR.
func (f *Fixture) AsHRBRIRSource() HRBRIRSource { return hrbrirView{f} }

type sosView struct{ f *Fixture }

func (v sosView) Samples() []SOSSample { return v.f.sos }

// AsSOSSource returns a SOSSource view of f, for callers of LoadSOS.
func (f *Fixture) AsSOSSource() SOSSource { return sosView{f} }

type tfView struct{ f *Fixture }

func (v tfView) Samples() []DirectivityTFSample { return v.f.tf }

// AsDirectivityTFSource returns a DirectivityTFSource view of f, for
// callers of LoadDirectivityTF.
func (f *Fixture) AsDirectivityTFSource() DirectivityTFSource { return tfView{f} }
