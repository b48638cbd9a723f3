// pkg/model/wiring.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package model

import (
	"github.com/GrupoDiana/brt-go/pkg/binaural"
	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/graph"
	"github.com/GrupoDiana/brt-go/pkg/log"
)

// Pipeline holds the per-(source,listener) processor chain Attach
// builds, in case the caller needs to reach into it later (e.g. to
// disable spatialization by address instead of waiting for a command).
type Pipeline struct {
	Directivity *binaural.DirectivityProcessor
	Distance    *binaural.DistanceAttenuationProcessor
	HRTF        *binaural.HRTFConvolverProcessor
	NearField   *binaural.NearFieldProcessor
}

// Attach wires one source's contribution to one listener through the
// full per-source processor chain core-spec §4.6-§4.8 describes:
// directivity, then distance attenuation, then HRTF convolution, then
// the near-field post-filter, finally summed into the listener's mix
// buses. Must be called while mgr is in setup.
func Attach(mgr *graph.Manager, source *Source, listener *Listener, cfg graph.Config, sink *diag.Sink, lg *log.Logger, headRadius, earOffset float64) *Pipeline {
	idPrefix := source.ModuleID() + ">" + listener.ModuleID()

	dir := binaural.NewDirectivityProcessor(idPrefix+":directivity", cfg, mgr, sink, lg)
	dist := binaural.NewDistanceAttenuationProcessor(idPrefix+":distance", mgr, sink, lg, 1.0, binaural.DefaultAnechoicAttenuationDB)
	hrtfProc := binaural.NewHRTFConvolverProcessor(idPrefix+":hrtf", cfg, mgr, sink, lg, headRadius, earOffset)
	nearField := binaural.NewNearFieldProcessor(idPrefix+":nearfield", mgr, sink, lg)

	graph.Connect(mgr, source.ModuleID(), source.Samples, dir.ModuleID(), dir.InputSamples)
	graph.Connect(mgr, source.ModuleID(), source.Transform, dir.ModuleID(), dir.SourcePosition)
	graph.Connect(mgr, listener.ModuleID(), listener.Transform, dir.ModuleID(), dir.ListenerPosition)
	graph.Connect(mgr, source.ModuleID(), source.ID, dir.ModuleID(), dir.SourceID)
	graph.Connect(mgr, source.ModuleID(), source.DirectivityService, dir.ModuleID(), dir.DirectivityTF)

	graph.Connect(mgr, dir.ModuleID(), dir.OutputSamples, dist.ModuleID(), dist.InputSamples)
	graph.Connect(mgr, source.ModuleID(), source.Transform, dist.ModuleID(), dist.SourcePosition)
	graph.Connect(mgr, listener.ModuleID(), listener.Transform, dist.ModuleID(), dist.ListenerPosition)
	graph.Connect(mgr, source.ModuleID(), source.ID, dist.ModuleID(), dist.SourceID)

	graph.Connect(mgr, dist.ModuleID(), dist.OutputSamples, hrtfProc.ModuleID(), hrtfProc.InputSamples)
	graph.Connect(mgr, source.ModuleID(), source.Transform, hrtfProc.ModuleID(), hrtfProc.SourcePosition)
	graph.Connect(mgr, listener.ModuleID(), listener.Transform, hrtfProc.ModuleID(), hrtfProc.ListenerPosition)
	graph.Connect(mgr, source.ModuleID(), source.ID, hrtfProc.ModuleID(), hrtfProc.SourceID)
	graph.Connect(mgr, listener.ModuleID(), listener.ID, hrtfProc.ModuleID(), hrtfProc.ListenerID)
	graph.Connect(mgr, listener.ModuleID(), listener.HRTFService, hrtfProc.ModuleID(), hrtfProc.ListenerHRTF)
	graph.Connect(mgr, listener.ModuleID(), listener.HRBRIRService, hrtfProc.ModuleID(), hrtfProc.ListenerHRBRIR)

	graph.Connect(mgr, hrtfProc.ModuleID(), hrtfProc.LeftEar, nearField.ModuleID(), nearField.LeftIn)
	graph.Connect(mgr, hrtfProc.ModuleID(), hrtfProc.RightEar, nearField.ModuleID(), nearField.RightIn)
	graph.Connect(mgr, source.ModuleID(), source.Transform, nearField.ModuleID(), nearField.SourcePosition)
	graph.Connect(mgr, listener.ModuleID(), listener.Transform, nearField.ModuleID(), nearField.ListenerPosition)
	graph.Connect(mgr, listener.ModuleID(), listener.ID, nearField.ModuleID(), nearField.ListenerID)
	graph.Connect(mgr, listener.ModuleID(), listener.NearFieldService, nearField.ModuleID(), nearField.NearFieldTF)

	left, right := listener.AttachSource(source.ModuleID())
	graph.Connect(mgr, nearField.ModuleID(), nearField.LeftEar, listener.ModuleID(), left)
	graph.Connect(mgr, nearField.ModuleID(), nearField.RightEar, listener.ModuleID(), right)

	return &Pipeline{Directivity: dir, Distance: dist, HRTF: hrtfProc, NearField: nearField}
}
