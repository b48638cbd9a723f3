// pkg/sos/sos.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package sos implements the near-field second-order-section filter
// service of core-spec §4.3: a (distance,azimuth)-keyed biquad cascade
// table, with a symmetric-ear fallback when only one ear was measured.
package sos

import (
	"math"
	"strconv"

	"github.com/brunoga/deep"

	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/dspmath"
	"github.com/GrupoDiana/brt-go/pkg/log"
	"github.com/GrupoDiana/brt-go/pkg/util"
)

// Ear selects which measured channel to read.
type Ear int

const (
	Left Ear = iota
	Right
)

// State mirrors the HRTF service's lifecycle.
type State int

const (
	StateEmpty State = iota
	StateSetupInProgress
	StateLoaded
)

// entry is one (distance,azimuth) sample: the measured cascade for
// whichever ear(s) were supplied.
type entry struct {
	distanceMM float64
	azimuthDeg float64
	left       dspmath.Cascade
	right      dspmath.Cascade
	hasLeft    bool
	hasRight   bool
}

// Service is the near-field SOS filter service (core-spec §4.3).
type Service struct {
	logger *log.Logger
	sink   *diag.Sink
	name   string

	mu util.LoggingMutex

	state State
	raw   *util.OrderedMap

	minDistanceStepMM float64
	minAzimuthStepDeg float64
	published         []entry
}

// NewService builds an empty service.
func NewService(name string, sink *diag.Sink, lg *log.Logger) *Service {
	return &Service{name: name, sink: sink, logger: lg, raw: util.NewOrderedMap()}
}

// State returns the service's lifecycle state.
func (s *Service) State() State { return s.state }

// BeginSetup clears the stored table (core-spec §4.3).
func (s *Service) BeginSetup() {
	s.mu.Lock(s.logger)
	defer s.mu.Unlock(s.logger)
	s.raw = util.NewOrderedMap()
	s.state = StateSetupInProgress
}

// AddCoefficients pushes one (azimuth,distance) sample's coefficient
// vectors, flat (b0,b1,b2,a0,a1,a2) sextuples, one per biquad stage.
// Either ear's vector may be omitted (pass nil) for a single-ear-only
// measurement.
func (s *Service) AddCoefficients(azimuthDeg, distanceM float64, leftCoefs, rightCoefs []float64) bool {
	if s.state != StateSetupInProgress {
		s.report(diag.NotSet, "add_coefficients on %q: not in setup", s.name)
		return false
	}
	e := entry{distanceMM: distanceM * 1000, azimuthDeg: wrap360(azimuthDeg)}
	if leftCoefs != nil {
		e.left = cascadeFrom(leftCoefs)
		e.hasLeft = true
	}
	if rightCoefs != nil {
		e.right = cascadeFrom(rightCoefs)
		e.hasRight = true
	}
	key := strconv.FormatInt(int64(math.Round(e.azimuthDeg*100))*1_000_000+int64(math.Round(e.distanceMM)), 10)
	s.raw.Set(key, e)
	return true
}

func cascadeFrom(coefs []float64) dspmath.Cascade {
	stages := len(coefs) / 6
	cascade := make(dspmath.Cascade, stages)
	for i := 0; i < stages; i++ {
		c := coefs[i*6 : i*6+6]
		cascade[i] = dspmath.NewBiquad(c[0], c[1], c[2], c[3], c[4], c[5])
	}
	return cascade
}

// EndSetup publishes the stored entries and records the minimum
// azimuth and distance step across them. Runtime queries do not read
// these steps; see GetSOSFilterCoefficients.
func (s *Service) EndSetup() bool {
	if s.state != StateSetupInProgress {
		s.report(diag.NotAllowed, "end_setup on %q: not in setup", s.name)
		return false
	}
	keys := s.raw.Keys()
	if len(keys) == 0 {
		s.report(diag.NotSet, "end_setup on %q: no coefficients added", s.name)
		return false
	}

	entries := make([]entry, 0, len(keys))
	distances := map[float64]struct{}{}
	azimuths := map[float64]struct{}{}
	for _, k := range keys {
		v, _ := s.raw.Get(k)
		e := v.(entry)
		entries = append(entries, e)
		distances[e.distanceMM] = struct{}{}
		azimuths[e.azimuthDeg] = struct{}{}
	}

	s.mu.Lock(s.logger)
	s.minDistanceStepMM = minGap(distances)
	s.minAzimuthStepDeg = minGap(azimuths)
	s.published = deep.MustCopy(entries)
	s.mu.Unlock(s.logger)

	s.state = StateLoaded
	return true
}

func minGap(values map[float64]struct{}) float64 {
	sorted := make([]float64, 0, len(values))
	for v := range values {
		sorted = append(sorted, v)
	}
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] < sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	min := math.Inf(1)
	for i := 1; i < len(sorted); i++ {
		if d := sorted[i] - sorted[i-1]; d < min {
			min = d
		}
	}
	if math.IsInf(min, 1) {
		return 1
	}
	return min
}

// GetSOSFilterCoefficients returns a clone of the cascade for ear
// stored at the entry nearest (distanceM, azimuthDeg), nearness being
// the squared millimetre difference plus the squared degree
// difference; on a complete distance-by-azimuth table this picks the
// nearest stored value on each axis. If only
// the other ear was measured, the query mirrors the sign of azimuth
// and returns that ear's coefficients unchanged (core-spec §4.3's
// symmetric-ear fallback): get_sos(RIGHT,d,a) with only LEFT measured
// equals get_sos(LEFT,d,-a).
func (s *Service) GetSOSFilterCoefficients(ear Ear, distanceM, azimuthDeg float64) (dspmath.Cascade, bool) {
	s.mu.Lock(s.logger)
	defer s.mu.Unlock(s.logger)

	if s.state != StateLoaded {
		s.report(diag.NotSet, "get_sos_filter_coefficients on %q: not loaded", s.name)
		return nil, false
	}

	distanceMM := distanceM * 1000
	azimuth := wrap360(azimuthDeg)
	e, ok := s.nearest(distanceMM, azimuth)
	if ok {
		if ear == Left && e.hasLeft {
			return e.left.Clone(), true
		}
		if ear == Right && e.hasRight {
			return e.right.Clone(), true
		}
	}

	// Symmetric-ear fallback: mirror azimuth and borrow the other ear.
	mirrored, ok := s.nearest(distanceMM, wrap360(-azimuthDeg))
	if !ok {
		return nil, false
	}
	if ear == Right && mirrored.hasLeft {
		return mirrored.left.Clone(), true
	}
	if ear == Left && mirrored.hasRight {
		return mirrored.right.Clone(), true
	}
	return nil, false
}

func (s *Service) nearest(distanceMM, azimuthDeg float64) (entry, bool) {
	if len(s.published) == 0 {
		return entry{}, false
	}
	best := s.published[0]
	bestDist := gridDistance(best, distanceMM, azimuthDeg)
	for _, e := range s.published[1:] {
		d := gridDistance(e, distanceMM, azimuthDeg)
		if d < bestDist {
			bestDist = d
			best = e
		}
	}
	return best, true
}

func gridDistance(e entry, distanceMM, azimuthDeg float64) float64 {
	dd := (e.distanceMM - distanceMM)
	da := azimuthDelta(e.azimuthDeg, azimuthDeg)
	return dd*dd + da*da
}

func azimuthDelta(a, b float64) float64 {
	d := math.Mod(dspmath.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

func wrap360(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}

func (s *Service) report(kind diag.Kind, format string, args ...any) {
	if s.sink != nil {
		s.sink.Report(kind, format, args...)
	}
}
