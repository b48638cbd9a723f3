// pkg/reader/reader_test.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package reader

import (
	"testing"

	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/directivity"
	"github.com/GrupoDiana/brt-go/pkg/geo"
	"github.com/GrupoDiana/brt-go/pkg/hrtf"
	"github.com/GrupoDiana/brt-go/pkg/sos"
)

func impulse(l int) []float64 {
	ir := make([]float64, l)
	ir[0] = 1
	return ir
}

func denseFixture(sampleRate float64) *Fixture {
	f := NewFixture(sampleRate)
	for el := -80.0; el <= 80; el += 20 {
		for az := 0.0; az < 360; az += 30 {
			f.WithHRIR(az, el, 1.0, geo.Vec3{}, impulse(8), impulse(8), 0, 0)
		}
	}
	f.WithHRIR(0, 90, 1.0, geo.Vec3{}, impulse(8), impulse(8), 0, 0)
	f.WithHRIR(0, 270, 1.0, geo.Vec3{}, impulse(8), impulse(8), 0, 0)
	return f
}

func TestLoadHRTFPopulatesService(t *testing.T) {
	sink := diag.NewSink(nil, diag.NotSet)
	svc := hrtf.NewService("test", hrtf.KindHRTF, hrtf.Config{BlockSize: 4, SampleRate: 48000}, sink, nil)

	if !LoadHRTF(svc, denseFixture(48000), 8, hrtf.ExtrapolationZero) {
		t.Fatalf("LoadHRTF failed: %v", sink.Events())
	}
	if svc.State() != hrtf.StateLoaded {
		t.Fatalf("expected Loaded, got %v", svc.State())
	}
	if _, ok := svc.GetHRIRPartitioned(0, 0, false); !ok {
		t.Errorf("expected a stored response at (0,0)")
	}
}

func TestLoadHRTFRejectsSampleRateMismatch(t *testing.T) {
	sink := diag.NewSink(nil, diag.NotSet)
	svc := hrtf.NewService("test", hrtf.KindHRTF, hrtf.Config{BlockSize: 4, SampleRate: 48000}, sink, nil)

	if LoadHRTF(svc, denseFixture(44100), 8, hrtf.ExtrapolationZero) {
		t.Fatalf("expected LoadHRTF to reject a sample-rate mismatch")
	}
	if svc.State() == hrtf.StateLoaded {
		t.Fatalf("service should not have left Empty/SetupInProgress on a rejected load")
	}
}

func TestLoadHRBRIRCarriesEmitter(t *testing.T) {
	sink := diag.NewSink(nil, diag.NotSet)
	svc := hrtf.NewService("test", hrtf.KindHRBRIR, hrtf.Config{BlockSize: 4, SampleRate: 48000}, sink, nil)

	f := denseFixture(48000)
	f.WithHRBRIR(0, 0, 1.0, geo.Vec3{}, geo.Vec3{X: 1}, impulse(8), impulse(8), 0, 0)

	if !LoadHRBRIR(svc, f.AsHRBRIRSource(), 8, hrtf.ExtrapolationZero) {
		t.Fatalf("LoadHRBRIR failed: %v", sink.Events())
	}
	if svc.State() != hrtf.StateLoaded {
		t.Fatalf("expected Loaded, got %v", svc.State())
	}
}

func TestHRIRCartesianRoundTrip(t *testing.T) {
	f := NewFixture(48000)
	f.WithHRIRCartesian(geo.Vec3{X: 1}, geo.Vec3{}, impulse(4), impulse(4), 0, 0)
	samples := f.Samples()
	if len(samples) != 1 {
		t.Fatalf("expected one sample, got %d", len(samples))
	}
	got := samples[0].Orientation
	if got.Azimuth != 0 || got.Elevation != 0 {
		t.Errorf("expected (0,0) for a source straight ahead on +X, got (%v,%v)", got.Azimuth, got.Elevation)
	}
}

func TestLoadSOSPopulatesService(t *testing.T) {
	sink := diag.NewSink(nil, diag.NotSet)
	svc := sos.NewService("test", sink, nil)

	f := NewFixture(0)
	f.WithSOS(30, 0.2, []float64{1, 0, 0, 1, 0, 0}, nil)

	if !LoadSOS(svc, f.AsSOSSource()) {
		t.Fatalf("LoadSOS failed: %v", sink.Events())
	}
	if _, ok := svc.GetSOSFilterCoefficients(sos.Right, 0.2, -30); !ok {
		t.Errorf("expected the symmetric-ear fallback to serve the loaded coefficients")
	}
}

func TestLoadDirectivityTFPopulatesService(t *testing.T) {
	sink := diag.NewSink(nil, diag.NotSet)
	svc := directivity.NewService("test", 4, sink, nil)

	f := NewFixture(0)
	for el := -80.0; el <= 80; el += 20 {
		for az := 0.0; az < 360; az += 30 {
			f.WithTF(az, el, []float64{1, 0.5, 0.25, 0.1}, []float64{0, 0, 0, 0})
		}
	}
	f.WithTF(0, 90, []float64{1, 1, 1, 1}, []float64{0, 0, 0, 0})
	f.WithTF(0, 270, []float64{1, 1, 1, 1}, []float64{0, 0, 0, 0})

	if !LoadDirectivityTF(svc, f.AsDirectivityTFSource()) {
		t.Fatalf("LoadDirectivityTF failed: %v", sink.Events())
	}
	if _, ok := svc.GetTF(0, 0, false); !ok {
		t.Errorf("expected a stored TF at (0,0)")
	}
}
