// pkg/model/source.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package model implements the Source and Listener front objects of
// core-spec §4.9: the objects an application actually holds and
// drives each tick, wiring the processors of pkg/binaural into a
// graph.Manager the way the teacher's pkg/sim wires pkg/aviation and
// pkg/platform together under SimManager.
package model

import (
	"sync"

	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/directivity"
	"github.com/GrupoDiana/brt-go/pkg/geo"
	"github.com/GrupoDiana/brt-go/pkg/graph"
	"github.com/GrupoDiana/brt-go/pkg/log"
)

// Command addresses core-spec §4.9 gives the source model literally.
const (
	CmdSourceLocation             = "/source/location"
	CmdSourceOrientation          = "/source/orientation"
	CmdSourceOrientationQuaternion = "/source/orientationQuaternion"
)

// Source is the application-facing front object for one audio
// emitter: set_buffer/set_transform load this tick's data, Process
// marks the exit points ready, and the command bus keeps position and
// orientation in sync between ticks (core-spec §4.9).
type Source struct {
	id     string
	sink   *diag.Sink
	logger *log.Logger

	Samples            *graph.ExitPoint[[]float64]
	Transform          *graph.ExitPoint[geo.Transform]
	ID                 *graph.ExitPoint[string]
	DirectivityService *graph.ExitPoint[*directivity.Service]

	mu        sync.Mutex
	transform geo.Transform
	buffer    []float64
}

// NewSource builds a source registered on mgr as a graph source node
// (reachable-from-source validation anchors on this) and on the
// command bus.
func NewSource(id string, mgr *graph.Manager, sink *diag.Sink, lg *log.Logger) *Source {
	s := &Source{
		id:     id,
		sink:   sink,
		logger: lg,

		Samples:            graph.NewExitPoint[[]float64](id + ":samples"),
		Transform:          graph.NewExitPoint[geo.Transform](id + ":transform"),
		ID:                 graph.NewExitPoint[string](id + ":id"),
		DirectivityService: graph.NewExitPoint[*directivity.Service](id + ":directivity_service"),
	}
	if mgr != nil {
		mgr.CreateModule(s, true, false)
		mgr.Bus().Register(s)
		mgr.RegisterTick(s.Process)
	}
	s.ID.Send(id)
	return s
}

// ModuleID implements graph.Module.
func (s *Source) ModuleID() string { return s.id }

// SetBuffer loads this tick's mono input block, held until Process
// sends it downstream (core-spec §4.9 "set_buffer(mono) loads this
// tick's input").
func (s *Source) SetBuffer(mono []float64) {
	s.mu.Lock()
	s.buffer = mono
	s.mu.Unlock()
}

// SetTransform updates the source's position/orientation, held until
// Process sends it downstream.
func (s *Source) SetTransform(t geo.Transform) {
	s.mu.Lock()
	s.transform = t
	s.mu.Unlock()
}

// Process marks the source's exit points ready for this tick
// (core-spec §4.9 "driving process() marks the internal exit points
// ready"), in the order the manager's tick loop expects: buffer, then
// transform.
func (s *Source) Process() {
	s.mu.Lock()
	buf := s.buffer
	t := s.transform
	s.mu.Unlock()
	s.Samples.Send(buf)
	s.Transform.Send(t)
}

// SetDirectivityService binds (or, with nil, unbinds) this source's
// directivity-TF table (core-spec §4.9's "/source/enableDirectivity"
// toggles whether the bound processor applies it; binding the service
// itself is a graph wiring concern handled here).
func (s *Source) SetDirectivityService(svc *directivity.Service) {
	s.DirectivityService.Send(svc)
}

// HandleCommand implements graph.CommandHandler for the three literal
// addresses core-spec §4.9 gives the source model.
func (s *Source) HandleCommand(cmd graph.Command) bool {
	if cmd.Target != s.id {
		return false
	}
	switch cmd.Address {
	case CmdSourceLocation:
		pos, ok := cmd.Params["position"]
		if !ok {
			s.report(diag.InvalidParam, "source %q: /source/location missing position param", s.id)
			return true
		}
		s.mu.Lock()
		s.transform.Position = pos.Vec
		s.mu.Unlock()
	case CmdSourceOrientation:
		az, hasAz := cmd.Params["azimuth"]
		el, hasEl := cmd.Params["elevation"]
		if !hasAz || !hasEl {
			s.report(diag.InvalidParam, "source %q: /source/orientation needs azimuth and elevation params", s.id)
			return true
		}
		s.mu.Lock()
		s.transform.Quaternion = quaternionFacing(az.Flt, el.Flt)
		s.mu.Unlock()
	case CmdSourceOrientationQuaternion:
		q, ok := cmd.Params["quaternion"]
		if !ok {
			s.report(diag.InvalidParam, "source %q: /source/orientationQuaternion missing quaternion param", s.id)
			return true
		}
		s.mu.Lock()
		s.transform.Quaternion = q.Quat
		s.mu.Unlock()
	default:
		return false
	}
	return true
}

func (s *Source) report(kind diag.Kind, format string, args ...any) {
	if s.sink != nil {
		s.sink.Report(kind, format, args...)
	}
}

// quaternionFacing builds the rotation that carries the local +X axis
// to the direction given by azimuth/elevation (core-spec §4.9's
// "/source/orientation" command), via the standard
// axis-angle-between-two-vectors construction.
func quaternionFacing(azimuthDeg, elevationDeg float64) geo.Quaternion {
	target := geo.NewOrientation(azimuthDeg, elevationDeg, 1).ToCartesian()
	return quaternionBetween(geo.Vec3{X: 1}, target)
}

// quaternionBetween returns the shortest rotation taking unit vector
// from to unit vector to.
func quaternionBetween(from, to geo.Vec3) geo.Quaternion {
	fromLen := from.Length()
	toLen := to.Length()
	if fromLen == 0 || toLen == 0 {
		return geo.IdentityQuaternion
	}
	from = from.Scale(1 / fromLen)
	to = to.Scale(1 / toLen)

	dot := from.Dot(to)
	if dot >= 1-1e-12 {
		return geo.IdentityQuaternion
	}
	if dot <= -1+1e-12 {
		// Opposite directions: rotate 180 degrees around any axis
		// perpendicular to from.
		axis := geo.Vec3{X: -from.Y, Y: from.X, Z: 0}
		if axis.Length() < 1e-9 {
			axis = geo.Vec3{X: 0, Y: -from.Z, Z: from.Y}
		}
		axis = axis.Scale(1 / axis.Length())
		return geo.Quaternion{W: 0, X: axis.X, Y: axis.Y, Z: axis.Z}
	}

	axis := crossVec(from, to)
	q := geo.Quaternion{W: 1 + dot, X: axis.X, Y: axis.Y, Z: axis.Z}
	return q.Normalized()
}

func crossVec(a, b geo.Vec3) geo.Vec3 {
	return geo.Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}
