// pkg/model/listener.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package model

import (
	"sync"

	"github.com/GrupoDiana/brt-go/pkg/binaural"
	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/dspmath"
	"github.com/GrupoDiana/brt-go/pkg/geo"
	"github.com/GrupoDiana/brt-go/pkg/graph"
	"github.com/GrupoDiana/brt-go/pkg/hrtf"
	"github.com/GrupoDiana/brt-go/pkg/log"
	"github.com/GrupoDiana/brt-go/pkg/sos"
)

// CmdSetHeadRadius reuses pkg/binaural's own command address so a
// single command updates both the listener's authoritative
// cranial-geometry record and the HRTF convolver processor's copy
// (core-spec §4.9: "accepts commands to... set head radius").
const CmdSetHeadRadius = binaural.CmdSetHeadRadius

// DefaultHeadRadius is used for a listener created without an explicit
// cranial-geometry record.
const DefaultHeadRadius = 0.0875

// Listener is the application-facing front object for one listening
// point: it owns the cranial-geometry record (head radius), exposes
// transform/id exits for the binaural processors bound to it, and
// sums every attached source's stereo contribution into a pair of mix
// buses (core-spec §4.9).
type Listener struct {
	*graph.BaseModule

	id     string
	sink   *diag.Sink
	logger *log.Logger

	Transform *graph.ExitPoint[geo.Transform]
	ID        *graph.ExitPoint[string]

	// Weak service references (core-spec §5): binding or unbinding a
	// service is a Send through these exits, including Send(nil) to
	// unbind, so every processor watching them re-checks liveness the
	// next time it fires rather than holding a strong reference.
	HRTFService      *graph.ExitPoint[*hrtf.Service]
	HRBRIRService    *graph.ExitPoint[*hrtf.Service]
	NearFieldService *graph.ExitPoint[*sos.Service]

	mu         sync.Mutex
	transform  geo.Transform
	headRadius float64

	blockSize int
	left      *graph.EntryPoint[[]float64]
	right     *graph.EntryPoint[[]float64]
	sources   map[string]*sourceEntries

	leftSum, rightSum []float64
}

// sourceEntries are the dedicated entry points one attached source's
// binaural processor sends its left_ear/right_ear contribution to.
// Each attached source gets its own EntryPoint instance rather than
// sharing one, sidestepping the unimplemented multiplicity>1
// accumulation the core spec leaves as an open question: the waiting
// stack still fires exactly once per tick, after every attached
// source's pair has arrived.
type sourceEntries struct {
	left, right *graph.EntryPoint[[]float64]
}

// NewListener builds a listener registered on mgr as a graph listener
// node and on the command bus, with block size blockSize used to size
// the mix buses.
func NewListener(id string, blockSize int, mgr *graph.Manager, sink *diag.Sink, lg *log.Logger) *Listener {
	l := &Listener{
		id:         id,
		sink:       sink,
		logger:     lg,
		headRadius: DefaultHeadRadius,
		blockSize:  blockSize,
		sources:    make(map[string]*sourceEntries),
	}
	l.BaseModule = graph.NewBaseModule(id, l.accumulate)

	l.Transform = graph.NewExitPoint[geo.Transform](id + ":transform")
	l.ID = graph.NewExitPoint[string](id + ":id")
	l.HRTFService = graph.NewExitPoint[*hrtf.Service](id + ":hrtf_service")
	l.HRBRIRService = graph.NewExitPoint[*hrtf.Service](id + ":hrbrir_service")
	l.NearFieldService = graph.NewExitPoint[*sos.Service](id + ":nearfield_service")

	if mgr != nil {
		mgr.CreateModule(l, false, true)
		mgr.Bus().Register(l)
		mgr.RegisterTick(l.Process)
	}
	l.ID.Send(id)
	return l
}

// AttachSource registers a new source-to-listener contribution path
// and returns the entry points the binaural processor chain for that
// source should Connect its left_ear/right_ear exits to. Only valid
// while the manager is in setup.
func (l *Listener) AttachSource(sourceID string) (left, right *graph.EntryPoint[[]float64]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if se, ok := l.sources[sourceID]; ok {
		return se.left, se.right
	}
	se := &sourceEntries{
		left:  graph.NewEntryPoint[[]float64]("left_ear:"+sourceID, graph.Notifying, l.BaseModule),
		right: graph.NewEntryPoint[[]float64]("right_ear:"+sourceID, graph.Notifying, l.BaseModule),
	}
	l.sources[sourceID] = se
	return se.left, se.right
}

// DetachSource removes a previously attached source; its entry points
// are left to be garbage collected once no exit point still holds
// them (core-spec §5 "releasing... does not prolong its life").
func (l *Listener) DetachSource(sourceID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sources, sourceID)
}

// ModuleID implements graph.Module.
func (l *Listener) ModuleID() string { return l.id }

// SetTransform updates the listener's pose, held until Process sends
// it downstream.
func (l *Listener) SetTransform(t geo.Transform) {
	l.mu.Lock()
	l.transform = t
	l.mu.Unlock()
}

// Process marks the listener's transform exit ready for this tick
// (core-spec §6 tick order step 2).
func (l *Listener) Process() {
	l.mu.Lock()
	t := l.transform
	l.mu.Unlock()
	l.Transform.Send(t)
}

// accumulate is the waiting-stack firing callback: it fires once every
// attached source has delivered its left_ear/right_ear contribution
// this tick, summing them into the mix buses that GetBuffers reads.
func (l *Listener) accumulate() {
	l.mu.Lock()
	defer l.mu.Unlock()

	left := make([]float64, l.blockSize)
	right := make([]float64, l.blockSize)
	for _, se := range l.sources {
		if v, ok := se.left.Value(); ok {
			dspmath.Add(left, v)
		}
		if v, ok := se.right.Value(); ok {
			dspmath.Add(right, v)
		}
	}
	l.leftSum = left
	l.rightSum = right
}

// GetBuffers returns the summed stereo pair accumulated this tick and
// clears the mix buses (core-spec §4.9 "get_buffers() returns the
// summed pair and clears them").
func (l *Listener) GetBuffers() (left, right []float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	left, right = l.leftSum, l.rightSum
	l.leftSum, l.rightSum = nil, nil
	if left == nil {
		left = make([]float64, l.blockSize)
	}
	if right == nil {
		right = make([]float64, l.blockSize)
	}
	return left, right
}

// SetHRTFService binds (or, with nil, unbinds) this listener's HRTF
// table; bound processors resolve it, preferring it over SetHRBRIRService's
// table, the next time they fire.
func (l *Listener) SetHRTFService(s *hrtf.Service) { l.HRTFService.Send(s) }

// SetHRBRIRService binds (or unbinds) this listener's HRBRIR table.
func (l *Listener) SetHRBRIRService(s *hrtf.Service) { l.HRBRIRService.Send(s) }

// SetNearFieldService binds (or unbinds) this listener's near-field
// SOS filter table.
func (l *Listener) SetNearFieldService(s *sos.Service) { l.NearFieldService.Send(s) }

// HeadRadius returns the listener's current cranial-geometry radius.
func (l *Listener) HeadRadius() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.headRadius
}

// HandleCommand implements graph.CommandHandler: core-spec §4.9's
// head-radius command updates the listener's own authoritative copy;
// every other listed toggle (interpolation, ITD, parallax, near-field)
// is handled directly by the bound processors themselves, which
// already filter on this same listener id, so the bus's own fan-out
// is the "broadcast to every... processor" core-spec §4.9 describes.
func (l *Listener) HandleCommand(cmd graph.Command) bool {
	if cmd.Target != l.id || cmd.Address != CmdSetHeadRadius {
		return false
	}
	radius, ok := cmd.Params["radius"]
	if !ok {
		l.report(diag.InvalidParam, "listener %q: setHeadRadius missing radius param", l.id)
		return true
	}
	l.mu.Lock()
	l.headRadius = radius.Flt
	l.mu.Unlock()
	return true
}

func (l *Listener) report(kind diag.Kind, format string, args ...any) {
	if l.sink != nil {
		l.sink.Report(kind, format, args...)
	}
}
