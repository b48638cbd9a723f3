// pkg/sos/sos_test.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sos

import (
	"testing"

	"github.com/GrupoDiana/brt-go/pkg/diag"
)

func TestSymmetricEarFallback(t *testing.T) {
	sink := diag.NewSink(nil, diag.NotSet)
	s := NewService("test", sink, nil)
	s.BeginSetup()
	left := []float64{1, 0, 0, 1, 0, 0}
	if !s.AddCoefficients(30, 0.2, left, nil) {
		t.Fatalf("add_coefficients failed")
	}
	if !s.EndSetup() {
		t.Fatalf("end_setup failed: %v", sink.Events())
	}

	got, ok := s.GetSOSFilterCoefficients(Right, 0.2, -30)
	if !ok {
		t.Fatalf("expected fallback coefficients")
	}
	want, ok := s.GetSOSFilterCoefficients(Left, 0.2, 30)
	if !ok {
		t.Fatalf("expected stored left coefficients")
	}
	if len(got) != len(want) {
		t.Fatalf("cascade length mismatch: %d vs %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("stage %d differs: %+v vs %+v", i, got[i], want[i])
		}
	}
}

func TestQueryBeforeLoadedFails(t *testing.T) {
	sink := diag.NewSink(nil, diag.NotSet)
	s := NewService("empty", sink, nil)
	if _, ok := s.GetSOSFilterCoefficients(Left, 1, 0); ok {
		t.Errorf("expected failure before Loaded")
	}
}
