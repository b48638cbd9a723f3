// pkg/hrtf/query.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package hrtf

import (
	"math"

	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/geo"
)

// GetHRIRPartitioned serves the partitioned IR for a queried direction
// (core-spec §4.2 "Runtime queries"). With runtimeInterpolation false,
// the nearest grid node is returned as-is; with it true, the query is
// normalized, bypassed at a pole, and otherwise passed through the
// online barycentric interpolator.
func (s *Service) GetHRIRPartitioned(azimuth, elevation float64, runtimeInterpolation bool) (THRIRPartitioned, bool) {
	s.mu.Lock(s.logger)
	defer s.mu.Unlock(s.logger)

	if s.State() != StateLoaded {
		s.report(diag.NotSet, "get_hrir_partitioned on %q: service not loaded", s.name)
		return THRIRPartitioned{}, false
	}

	o := geo.NewOrientation(azimuth, elevation, 0)
	if !runtimeInterpolation || o.IsPole() {
		return s.resampled.Get(o.Azimuth, o.Elevation)
	}
	return s.onlineInterp.Interpolate(o.Azimuth, o.Elevation)
}

// GetHRIRDelay returns the per-ear delay, in samples, for a queried
// direction. If Woodworth ITD substitution is enabled the stored delay
// is overridden by the closed-form model (core-spec §4.2 "ITD
// substitution").
func (s *Service) GetHRIRDelay(ear Ear, azimuth, elevation float64, runtimeInterpolation bool) (int, bool) {
	s.mu.Lock(s.logger)
	woodworth, headRadius, speedOfSound := s.woodworth, s.headRadius, s.speedOfSound
	s.mu.Unlock(s.logger)

	if woodworth {
		return s.woodworthDelay(ear, azimuth, elevation, headRadius, speedOfSound), true
	}

	entry, ok := s.GetHRIRPartitioned(azimuth, elevation, runtimeInterpolation)
	if !ok {
		return 0, false
	}
	return entry.DelaySamples(ear), true
}

// woodworthDelay implements core-spec §4.2's closed-form ITD model:
// headRadius*(theta+sin(theta))/c for the ear the source is farther
// from (the contralateral ear); the ipsilateral ear's delay is zero.
func (s *Service) woodworthDelay(ear Ear, azimuth, elevation, headRadius, speedOfSound float64) int {
	theta := geo.InterauralAzimuth(azimuth, elevation)
	ipsilateral := Right
	if theta < 0 {
		ipsilateral = Left
	}
	if ear == ipsilateral {
		return 0
	}
	delaySeconds := headRadius * (math.Abs(theta) + math.Sin(math.Abs(theta))) / speedOfSound
	return int(math.Round(delaySeconds * s.cfg.SampleRate))
}

// StepVector returns the azimuth-step-by-elevation-band map of the
// published grid (core-spec §3 "Grid step vector").
func (s *Service) StepVector() map[int]float64 {
	s.mu.Lock(s.logger)
	defer s.mu.Unlock(s.logger)
	return s.stepVector
}

// NumSubfilters returns the frozen sub-filter count every entry in the
// resampled table carries (core-spec §3 invariant).
func (s *Service) NumSubfilters() int {
	s.mu.Lock(s.logger)
	defer s.mu.Unlock(s.logger)
	return s.numSubfilters
}
