// pkg/reader/reader.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package reader declares the SOFA-compatible data-reader contract
// core-spec §6 places inbound to the HRTF, HRBRIR, SOS, and
// directivity-TF services: parsing a SOFA file is explicitly out of
// scope (core-spec §1 "Out of scope: SOFA file parsing (a reader
// supplies raw tables; its only contract is §6)"), so this package
// only describes the shape a reader must deliver and drives the
// Begin/Add/End sequence each service expects. A real SOFA-backed
// reader is expected to implement these interfaces against
// libmysofa-equivalent parsing and detect cartesian-vs-spherical
// mismatches itself, converting to the canonical spherical form
// before the samples reach this package (core-spec §6 last
// paragraph).
package reader

import (
	"github.com/GrupoDiana/brt-go/pkg/directivity"
	"github.com/GrupoDiana/brt-go/pkg/geo"
	"github.com/GrupoDiana/brt-go/pkg/hrtf"
	"github.com/GrupoDiana/brt-go/pkg/sos"
)

// HRIRSample is one SOFA FIR/FIR-E measurement (core-spec §6): a
// source position plus the two ear impulse responses and their
// sample-count delays.
type HRIRSample struct {
	Orientation      geo.Orientation
	ListenerPosition geo.Vec3
	Left, Right      []float64
	LeftDelay        int
	RightDelay       int
}

// HRTFSource is what a reader exposes for a plain free-field HRTF load.
type HRTFSource interface {
	SampleRate() float64
	Samples() []HRIRSample
}

// HRBRIRSample is one SingleRoomMIMOSRIR measurement: a source
// position, the listener transform in effect for that measurement,
// and the emitter position the room carries beyond what a plain HRIR
// needs (core-spec §6).
type HRBRIRSample struct {
	Orientation      geo.Orientation
	ListenerPosition geo.Vec3
	Emitter          geo.Vec3
	Left, Right      []float64
	LeftDelay        int
	RightDelay       int
}

// HRBRIRSource is what a reader exposes for a binaural-room-IR load.
type HRBRIRSource interface {
	SampleRate() float64
	Samples() []HRBRIRSample
}

// SOSSample is one SimpleFreeFieldHRSOS measurement: left and right
// coefficient vectors of length 6*S, keyed on (azimuth, distance).
// Either slice may be nil for a single-ear-only measurement.
type SOSSample struct {
	AzimuthDeg float64
	DistanceM  float64
	Left       []float64
	Right      []float64
}

// SOSSource is what a reader exposes for a near-field SOS filter load.
type SOSSource interface {
	Samples() []SOSSample
}

// DirectivityTFSample is one measurement of a directivity transfer
// function: a half-spectrum (real, imag) pair at (azimuth, elevation),
// of length equal to the configured block size (core-spec §6).
type DirectivityTFSample struct {
	AzimuthDeg   float64
	ElevationDeg float64
	Real, Imag   []float64
}

// DirectivityTFSource is what a reader exposes for a directivity load.
type DirectivityTFSource interface {
	Samples() []DirectivityTFSample
}

// LoadHRTF drives a reader's HRTFSource through a hrtf.Service's
// Begin/Add/End sequence (core-spec §6 configuration model). It
// rejects the load without mutating the service if the source's
// sample rate doesn't match the one the service was configured with.
func LoadHRTF(svc *hrtf.Service, src HRTFSource, l int, extrapolation hrtf.ExtrapolationKind) bool {
	if !svc.CheckSampleRate(src.SampleRate()) {
		return false
	}
	svc.BeginSetup(l, extrapolation)
	for _, s := range src.Samples() {
		svc.AddHRIR(s.Orientation.Azimuth, s.Orientation.Elevation, s.Orientation.Distance,
			s.ListenerPosition, s.Left, s.Right, s.LeftDelay, s.RightDelay)
	}
	return svc.EndSetup()
}

// LoadHRBRIR drives a reader's HRBRIRSource through the same
// hrtf.Service sequence, using AddHRBRIR so the emitter position
// travels with each sample.
func LoadHRBRIR(svc *hrtf.Service, src HRBRIRSource, l int, extrapolation hrtf.ExtrapolationKind) bool {
	if !svc.CheckSampleRate(src.SampleRate()) {
		return false
	}
	svc.BeginSetup(l, extrapolation)
	for _, s := range src.Samples() {
		svc.AddHRBRIR(s.Orientation.Azimuth, s.Orientation.Elevation, s.Orientation.Distance,
			s.ListenerPosition, s.Emitter, s.Left, s.Right, s.LeftDelay, s.RightDelay)
	}
	return svc.EndSetup()
}

// LoadSOS drives a reader's SOSSource through a sos.Service's
// Begin/Add/End sequence. The core spec places no sample-rate field
// on SOS data (core-spec §6's SOS entry names only azimuth/distance
// and the coefficient vectors), so there is nothing to check here.
func LoadSOS(svc *sos.Service, src SOSSource) bool {
	svc.BeginSetup()
	for _, s := range src.Samples() {
		svc.AddCoefficients(s.AzimuthDeg, s.DistanceM, s.Left, s.Right)
	}
	return svc.EndSetup()
}

// LoadDirectivityTF drives a reader's DirectivityTFSource through a
// directivity.Service's Begin/Add/End sequence.
func LoadDirectivityTF(svc *directivity.Service, src DirectivityTFSource) bool {
	svc.BeginSetup()
	for _, s := range src.Samples() {
		svc.AddTF(s.AzimuthDeg, s.ElevationDeg, s.Real, s.Imag)
	}
	return svc.EndSetup()
}
