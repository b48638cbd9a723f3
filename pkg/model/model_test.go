// pkg/model/model_test.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package model

import (
	"math"
	"testing"

	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/geo"
	"github.com/GrupoDiana/brt-go/pkg/graph"
	"github.com/GrupoDiana/brt-go/pkg/hrtf"
)

// identityHRTFService mirrors pkg/binaural's test fixture: a single
// entry at (0,0,1m) with a unit-impulse IR on both ears and zero
// delay, so a listener directly in front of a source at unit distance
// hears an unmodified copy of the input.
func identityHRTFService(t *testing.T, blockSize int, sampleRate float64) *hrtf.Service {
	t.Helper()
	sink := diag.NewSink(nil, diag.NotSet)
	cfg := hrtf.Config{BlockSize: blockSize, SampleRate: sampleRate}
	s := hrtf.NewService("test", hrtf.KindHRTF, cfg, sink, nil)
	s.BeginSetup(blockSize, hrtf.ExtrapolationZero)
	left := make([]float64, blockSize)
	right := make([]float64, blockSize)
	left[0], right[0] = 1, 1
	if !s.AddHRIR(0, 0, 1, geo.Vec3{}, left, right, 0, 0) {
		t.Fatalf("add_hrir failed")
	}
	if !s.EndSetup() {
		t.Fatalf("end_setup failed: %v", sink.Events())
	}
	return s
}

func TestSourceToListenerEndToEnd(t *testing.T) {
	blockSize := 8
	sampleRate := 48000.0
	cfg := graph.Config{BlockSize: blockSize, SampleRate: sampleRate}
	mgr := graph.NewManager("test", nil)

	source := NewSource("src1", mgr, nil, nil)
	listener := NewListener("lst1", blockSize, mgr, nil, nil)
	Attach(mgr, source, listener, cfg, nil, nil, 0, 0)

	if !mgr.EndSetup() {
		t.Fatalf("end_setup failed")
	}

	listener.SetHRTFService(identityHRTFService(t, blockSize, sampleRate))

	input := make([]float64, blockSize)
	for i := range input {
		input[i] = 1
	}
	source.SetBuffer(input)
	source.SetTransform(geo.Transform{Position: geo.Vec3{X: 1}})
	listener.SetTransform(geo.Transform{})

	if !mgr.ProcessAll() {
		t.Fatalf("process_all failed")
	}

	left, right := listener.GetBuffers()
	for i := range input {
		if math.Abs(left[i]-1) > 1e-6 {
			t.Errorf("left[%d] = %v, want 1", i, left[i])
		}
		if math.Abs(right[i]-1) > 1e-6 {
			t.Errorf("right[%d] = %v, want 1", i, right[i])
		}
	}

	// get_buffers clears the mix buses: a second read before any new
	// tick must come back silent.
	left, right = listener.GetBuffers()
	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("expected cleared buffers on second read, got left=%v right=%v", left, right)
		}
	}
}

func TestListenerSumsMultipleSources(t *testing.T) {
	blockSize := 4
	sampleRate := 48000.0
	cfg := graph.Config{BlockSize: blockSize, SampleRate: sampleRate}
	mgr := graph.NewManager("test", nil)

	srcA := NewSource("srcA", mgr, nil, nil)
	srcB := NewSource("srcB", mgr, nil, nil)
	listener := NewListener("lst1", blockSize, mgr, nil, nil)
	Attach(mgr, srcA, listener, cfg, nil, nil, 0, 0)
	Attach(mgr, srcB, listener, cfg, nil, nil, 0, 0)

	if !mgr.EndSetup() {
		t.Fatalf("end_setup failed")
	}

	svc := identityHRTFService(t, blockSize, sampleRate)
	listener.SetHRTFService(svc)

	inA := []float64{1, 1, 1, 1}
	inB := []float64{2, 2, 2, 2}
	srcA.SetBuffer(inA)
	srcA.SetTransform(geo.Transform{Position: geo.Vec3{X: 1}})
	srcB.SetBuffer(inB)
	srcB.SetTransform(geo.Transform{Position: geo.Vec3{X: 1}})
	listener.SetTransform(geo.Transform{})

	if !mgr.ProcessAll() {
		t.Fatalf("process_all failed")
	}

	left, right := listener.GetBuffers()
	for i := range left {
		if math.Abs(left[i]-3) > 1e-6 || math.Abs(right[i]-3) > 1e-6 {
			t.Errorf("mix[%d] = (%v,%v), want (3,3) summing both sources", i, left[i], right[i])
		}
	}
}

func TestSourceCommandsUpdateTransform(t *testing.T) {
	mgr := graph.NewManager("test", nil)
	source := NewSource("src1", mgr, nil, nil)

	if !mgr.ExecuteCommand(graph.Command{
		Address: CmdSourceLocation,
		Target:  "src1",
		Params:  map[string]graph.Param{"position": graph.Vec3Param(geo.Vec3{X: 3, Y: 4})},
	}) {
		t.Fatalf("expected /source/location to be handled")
	}

	source.mu.Lock()
	pos := source.transform.Position
	source.mu.Unlock()
	if pos.X != 3 || pos.Y != 4 {
		t.Fatalf("position not updated: %+v", pos)
	}
}
