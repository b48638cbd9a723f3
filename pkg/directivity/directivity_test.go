// pkg/directivity/directivity_test.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package directivity

import (
	"testing"

	"github.com/GrupoDiana/brt-go/pkg/diag"
)

func denseService(t *testing.T) *Service {
	t.Helper()
	sink := diag.NewSink(nil, diag.NotSet)
	s := NewService("test", 4, sink, nil)
	s.BeginSetup()
	for el := -80.0; el <= 80; el += 20 {
		for az := 0.0; az < 360; az += 30 {
			s.AddTF(az, el, []float64{1, 0.5, 0.25, 0.1}, []float64{0, 0, 0, 0})
		}
	}
	s.AddTF(0, 90, []float64{1, 1, 1, 1}, []float64{0, 0, 0, 0})
	s.AddTF(0, 270, []float64{1, 1, 1, 1}, []float64{0, 0, 0, 0})
	if !s.EndSetup() {
		t.Fatalf("end_setup failed: %v", sink.Events())
	}
	return s
}

func TestInterlacedSignFlip(t *testing.T) {
	tf := TF{Real: []float64{1, 2}, Imag: []float64{3, 4}}
	il := tf.ToInterlaced()
	if real(il[0]) != 1 || imag(il[0]) != -3 {
		t.Errorf("interlace sign flip wrong: %v", il[0])
	}
}

func TestQueryBeforeLoadedFails(t *testing.T) {
	sink := diag.NewSink(nil, diag.NotSet)
	s := NewService("empty", 4, sink, nil)
	if _, ok := s.GetTF(0, 0, false); ok {
		t.Errorf("expected failure before Loaded")
	}
}

func TestNearestNodeLookup(t *testing.T) {
	s := denseService(t)
	if _, ok := s.GetTF(12, 33, false); !ok {
		t.Fatalf("expected a nearest-node entry")
	}
}
