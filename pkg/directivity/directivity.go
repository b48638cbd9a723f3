// pkg/directivity/directivity.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package directivity implements the source-directivity transfer
// function service of core-spec §4.4: same lifecycle, grid, and
// slope-method interpolation machinery as pkg/hrtf, but storing a
// single (real,imag) half-spectrum per direction instead of a per-ear
// impulse response pair.
package directivity

import (
	"strconv"

	"github.com/brunoga/deep"

	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/geo"
	"github.com/GrupoDiana/brt-go/pkg/grid"
	"github.com/GrupoDiana/brt-go/pkg/interp"
	"github.com/GrupoDiana/brt-go/pkg/log"
	"github.com/GrupoDiana/brt-go/pkg/util"
)

// State mirrors the HRTF service's lifecycle.
type State int

const (
	StateEmpty State = iota
	StateSetupInProgress
	StateLoaded
)

// TF is a half-spectrum transfer function: real and imaginary parts of
// length equal to the configured block size (core-spec §3
// "TDirectivityTF").
type TF struct {
	Real, Imag []float64
}

// Scale implements interp.Combinable.
func (t TF) Scale(w float64) TF {
	return TF{Real: scale(t.Real, w), Imag: scale(t.Imag, w)}
}

// Add implements interp.Combinable.
func (t TF) Add(o TF) TF {
	return TF{Real: add(t.Real, o.Real), Imag: add(t.Imag, o.Imag)}
}

func scale(s []float64, w float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v * w
	}
	return out
}

func add(a, b []float64) []float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]float64, n)
	for i, v := range a {
		out[i] += v
	}
	for i, v := range b {
		out[i] += v
	}
	return out
}

// Interlaced is a TF's real and imaginary parts combined into one
// complex block of the same length as Real: bin i holds
// complex(Real[i], -Imag[i]), the sign flip matching the FFT library's
// complex-multiplication convention. No mirror extension is applied.
type Interlaced []complex128

// ToInterlaced combines a half-spectrum TF bin by bin into an
// Interlaced block for direct use by a single-partition convolution.
func (t TF) ToInterlaced() Interlaced {
	out := make(Interlaced, len(t.Real))
	for i := range t.Real {
		out[i] = complex(t.Real[i], -t.Imag[i])
	}
	return out
}

// Service is the directivity-TF service (core-spec §4.4).
type Service struct {
	logger *log.Logger
	sink   *diag.Sink
	name   string
	blockSize int

	mu util.LoggingMutex

	state State
	raw   *util.OrderedMap

	resampled    *grid.Grid[TF]
	stepVector   map[int]float64
	onlineInterp *interp.OnlineInterpolator[TF]
}

// NewService builds an empty service serving half-spectra of
// blockSize length (core-spec §6: "length equal to the configured
// block size").
func NewService(name string, blockSize int, sink *diag.Sink, lg *log.Logger) *Service {
	return &Service{name: name, blockSize: blockSize, sink: sink, logger: lg, raw: util.NewOrderedMap()}
}

// State returns the service's lifecycle state.
func (s *Service) State() State { return s.state }

// BeginSetup clears the raw table.
func (s *Service) BeginSetup() {
	s.mu.Lock(s.logger)
	defer s.mu.Unlock(s.logger)
	s.raw = util.NewOrderedMap()
	s.state = StateSetupInProgress
}

// AddTF inserts one measurement's half-spectrum at (azimuth,
// elevation). Duplicate directions are ignored with a warning.
func (s *Service) AddTF(azimuthDeg, elevationDeg float64, real, imag []float64) bool {
	if s.state != StateSetupInProgress {
		s.report(diag.NotSet, "add_tf on %q: not in setup", s.name)
		return false
	}
	o := geo.NewOrientation(azimuthDeg, elevationDeg, 0)
	key := strconv.FormatInt(o.Hash(), 10)
	if _, ok := s.raw.Get(key); ok {
		s.report(diag.Warning, "add_tf on %q: duplicate entry at (%.2f,%.2f) ignored", s.name, o.Azimuth, o.Elevation)
		return false
	}
	s.raw.Set(key, rawTF{o: o, tf: TF{Real: util.DuplicateSlice(real), Imag: util.DuplicateSlice(imag)}})
	return true
}

type rawTF struct {
	o  geo.Orientation
	tf TF
}

// EndSetup builds the quasi-uniform grid and resamples every raw entry
// onto it, storing each half-spectrum as a TF; the processor converts a
// queried TF with ToInterlaced at run time.
func (s *Service) EndSetup() bool {
	if s.state != StateSetupInProgress {
		s.report(diag.NotAllowed, "end_setup on %q: not in setup", s.name)
		return false
	}
	keys := s.raw.Keys()
	if len(keys) == 0 {
		s.report(diag.NotSet, "end_setup on %q: no entries added", s.name)
		return false
	}

	working := grid.New[TF](grid.DefaultElevationStep)
	for _, k := range keys {
		v, _ := s.raw.Get(k)
		e := v.(rawTF)
		working.Set(e.o.Azimuth, e.o.Elevation, e.tf)
	}

	resampled := grid.New[TF](working.ElevationStep())
	for band := 0; band < working.NumBands(); band++ {
		elevation := working.BandElevationAt(band)
		for _, azimuth := range working.BandAzimuths(elevation) {
			tf, ok := working.Get(azimuth, elevation)
			if !ok {
				tf, ok = interp.OfflineInterpolate[TF](working, azimuth, elevation)
			}
			if !ok {
				s.report(diag.Warning, "%q: gap with no data at (%.2f,%.2f)", s.name, azimuth, elevation)
				continue
			}
			resampled.Set(azimuth, elevation, tf)
		}
	}

	published := deep.MustCopy(resampled)

	s.mu.Lock(s.logger)
	s.resampled = published
	s.stepVector = published.StepVector()
	s.onlineInterp = interp.NewOnlineInterpolator[TF](published, 64)
	s.mu.Unlock(s.logger)

	s.state = StateLoaded
	return true
}

// GetTF serves the directivity transfer function at a queried
// direction, either the nearest grid node or barycentric-interpolated.
func (s *Service) GetTF(azimuthDeg, elevationDeg float64, runtimeInterpolation bool) (TF, bool) {
	s.mu.Lock(s.logger)
	defer s.mu.Unlock(s.logger)

	if s.state != StateLoaded {
		s.report(diag.NotSet, "get_tf on %q: not loaded", s.name)
		return TF{}, false
	}
	o := geo.NewOrientation(azimuthDeg, elevationDeg, 0)
	if !runtimeInterpolation || o.IsPole() {
		return s.resampled.Get(o.Azimuth, o.Elevation)
	}
	return s.onlineInterp.Interpolate(o.Azimuth, o.Elevation)
}

func (s *Service) report(kind diag.Kind, format string, args ...any) {
	if s.sink != nil {
		s.sink.Report(kind, format, args...)
	}
}
