// pkg/hrtf/hrtf_test.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package hrtf

import (
	"math"
	"testing"

	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/geo"
)

func testConfig() Config {
	return Config{BlockSize: 4, SampleRate: 48000}
}

func impulseIR(l int) []float64 {
	ir := make([]float64, l)
	ir[0] = 1
	return ir
}

// denseService builds a service with measurements on a coarse but
// complete sphere so EndSetup never needs extrapolation, for tests
// that exercise the resampling/partitioning invariants directly.
func denseService(t *testing.T) *Service {
	t.Helper()
	sink := diag.NewSink(nil, diag.NotSet)
	s := NewService("test", KindHRTF, testConfig(), sink, nil)
	s.BeginSetup(8, ExtrapolationZero)
	for el := -80.0; el <= 80; el += 20 {
		for az := 0.0; az < 360; az += 30 {
			s.AddHRIR(az, el, 1.0, geo.Vec3{}, impulseIR(8), impulseIR(8), 0, 0)
		}
	}
	s.AddHRIR(0, 90, 1.0, geo.Vec3{}, impulseIR(8), impulseIR(8), 0, 0)
	s.AddHRIR(0, 270, 1.0, geo.Vec3{}, impulseIR(8), impulseIR(8), 0, 0)
	if !s.EndSetup() {
		t.Fatalf("EndSetup failed: %v", sink.Events())
	}
	return s
}

func TestSubfilterCountAndLength(t *testing.T) {
	s := denseService(t)
	want := (8 + s.cfg.BlockSize - 1) / s.cfg.BlockSize
	entry, ok := s.GetHRIRPartitioned(10, 10, false)
	if !ok {
		t.Fatalf("expected entry")
	}
	if entry.NumSubfilters() != want {
		t.Errorf("subfilter count = %d, want %d", entry.NumSubfilters(), want)
	}
	for _, sf := range entry.Left {
		if len(sf) != s.cfg.BlockSize+1 {
			t.Errorf("subfilter length = %d, want %d", len(sf), s.cfg.BlockSize+1)
		}
	}
}

func TestNearestNodeMatchesStepVector(t *testing.T) {
	s := denseService(t)
	got, ok := s.GetHRIRPartitioned(17, 12, false)
	if !ok {
		t.Fatalf("expected a nearest-node entry")
	}
	az, el := s.resampled.Nearest(17, 12)
	want, ok := s.resampled.Get(az, el)
	if !ok {
		t.Fatalf("expected grid entry at snapped node")
	}
	if got.NumSubfilters() != want.NumSubfilters() {
		t.Errorf("mismatched nearest-node lookup")
	}
}

func TestZeroDelayInvariant(t *testing.T) {
	s := denseService(t)
	sawLeftZero, sawRightZero := false, false
	for band := 0; band < s.resampled.NumBands(); band++ {
		el := s.resampled.BandElevationAt(band)
		for _, az := range s.resampled.BandAzimuths(el) {
			v, ok := s.resampled.Get(az, el)
			if !ok {
				continue
			}
			if v.LeftDelay == 0 {
				sawLeftZero = true
			}
			if v.RightDelay == 0 {
				sawRightZero = true
			}
		}
	}
	if !sawLeftZero || !sawRightZero {
		t.Errorf("expected at least one zero delay per ear after common-delay removal")
	}
}

func TestPoleInvariance(t *testing.T) {
	s := denseService(t)
	base, ok := s.GetHRIRPartitioned(0, 90, false)
	if !ok {
		t.Fatalf("expected pole entry")
	}
	for _, az := range []float64{0, 45, 123, 359} {
		v, ok := s.GetHRIRPartitioned(az, 90, true)
		if !ok {
			t.Fatalf("expected pole entry at azimuth %v", az)
		}
		if v.NumSubfilters() != base.NumSubfilters() {
			t.Errorf("pole invariance broken at azimuth %v", az)
		}
		for i := range v.Left {
			for j := range v.Left[i] {
				if v.Left[i][j] != base.Left[i][j] {
					t.Errorf("pole value differs at azimuth %v", az)
				}
			}
		}
	}
}

func TestWoodworthIpsilateralIsZero(t *testing.T) {
	sink := diag.NewSink(nil, diag.NotSet)
	s := denseService(t)
	_ = sink
	s.SetWoodworth(true, 0.0875, DefaultSpeedOfSound)

	d, ok := s.GetHRIRDelay(Right, 90, 0, true)
	if !ok || d != 0 {
		t.Errorf("ipsilateral (right at azimuth +90) delay = %d, want 0", d)
	}
	contra, ok := s.GetHRIRDelay(Left, 90, 0, true)
	if !ok {
		t.Fatalf("expected contralateral delay")
	}
	theta := math.Pi / 2
	want := int(math.Round(0.0875 * (theta + math.Sin(theta)) / DefaultSpeedOfSound * 48000))
	if contra != want {
		t.Errorf("contralateral delay = %d, want %d", contra, want)
	}
}

func TestQueryBeforeLoadedFails(t *testing.T) {
	sink := diag.NewSink(nil, diag.NotSet)
	s := NewService("empty", KindHRTF, testConfig(), sink, nil)
	if _, ok := s.GetHRIRPartitioned(0, 0, false); ok {
		t.Errorf("expected failure before Loaded")
	}
}

func TestDuplicateEntryIgnored(t *testing.T) {
	sink := diag.NewSink(nil, diag.NotSet)
	s := NewService("dup", KindHRTF, testConfig(), sink, nil)
	s.BeginSetup(4, ExtrapolationZero)
	if !s.AddHRIR(10, 10, 1, geo.Vec3{}, impulseIR(4), impulseIR(4), 0, 0) {
		t.Fatalf("first add should succeed")
	}
	if s.AddHRIR(10, 10, 1, geo.Vec3{}, impulseIR(4), impulseIR(4), 0, 0) {
		t.Errorf("duplicate add should fail")
	}
}
