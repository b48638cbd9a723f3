// pkg/diag/diag.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package diag is the system's single diagnostic sink: a small
// accumulate-and-report facility, adapted from the teacher's
// pkg/util.ErrorLogger, extended with the error-kind taxonomy and the
// once-per-key dedupe a real-time audio path needs so a persistently
// missing service doesn't spam a warning on every tick.
package diag

import (
	"fmt"
	"strings"
	"time"

	"github.com/GrupoDiana/brt-go/pkg/log"
	"github.com/GrupoDiana/brt-go/pkg/util"
)

// Kind is an error category, not a Go error type: the core spec treats
// these as tags attached to an otherwise uniform diagnostic record.
type Kind int

const (
	// Warning: a pole was synthesised, a gap was extrapolated, or a
	// sub-filter count was rounded up — informational, not an error.
	Warning Kind = iota
	// NotSet: a service was queried before it finished loading.
	NotSet
	// NotAllowed: a structural edit was attempted outside setup mode,
	// or a duplicate id was used.
	NotAllowed
	// BadAlloc: allocation failed during a create_* call.
	BadAlloc
	// InvalidParam: a negative head radius, a non-power-of-two block
	// size (accepted with a warning), or a non-positive distance.
	InvalidParam
	// OutOfRange: barycentric coordinates fell outside every triangle
	// considered while scanning for one containing the query.
	OutOfRange
	// BadSize: a sample-rate or block-size mismatch.
	BadSize
	// Physics: a source radius smaller than the minimum
	// source-to-listener distance, clamped rather than rejected.
	Physics
	// NullPointer: a weak service reference had expired by fire time.
	NullPointer
)

func (k Kind) String() string {
	switch k {
	case NotSet:
		return "NotSet"
	case NotAllowed:
		return "NotAllowed"
	case BadAlloc:
		return "BadAlloc"
	case InvalidParam:
		return "InvalidParam"
	case OutOfRange:
		return "OutOfRange"
	case BadSize:
		return "BadSize"
	case Physics:
		return "Physics"
	case NullPointer:
		return "NullPointer"
	case Warning:
		return "Warning"
	default:
		return "Unknown"
	}
}

// Event is a single diagnostic record: a kind, the hierarchy of
// component names active when it was raised (mirroring the teacher's
// Push/Pop context stack), and a formatted message.
type Event struct {
	Kind    Kind
	Context string
	Message string
	Time    time.Time
}

func (e Event) String() string {
	if e.Context == "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Context, e.Message)
}

// Sink accumulates diagnostic events, filters by a minimum kind
// severity, and dedupes repeated warnings on a real-time path so a
// persistently missing service doesn't flood the log once per tick.
type Sink struct {
	hierarchy []string
	events    []Event
	minKind   Kind
	logger    *log.Logger
	seen      *util.TransientMap[string, struct{}]
	dedupe    time.Duration
}

// NewSink builds a sink that logs through lg (which may be nil) and
// only retains events at or above minKind. A minKind of Warning (the
// default when 0 is passed) keeps everything; passing a higher kind
// value filters out informational warnings.
func NewSink(lg *log.Logger, minKind Kind) *Sink {
	return &Sink{
		logger:  lg,
		minKind: minKind,
		seen:    util.NewTransientMap[string, struct{}](),
		dedupe:  time.Second,
	}
}

// Push records a component name on the context hierarchy, e.g. the
// listener or source id a following Report call pertains to.
func (s *Sink) Push(name string) {
	s.hierarchy = append(s.hierarchy, name)
}

// Pop removes the most recently pushed context name.
func (s *Sink) Pop() {
	if len(s.hierarchy) > 0 {
		s.hierarchy = s.hierarchy[:len(s.hierarchy)-1]
	}
}

// Report records a diagnostic event. Events below the sink's minimum
// kind are dropped entirely; kind is otherwise just a tag; ordering
// amongst kinds follows the const block above and has no meaning
// beyond filtering.
func (s *Sink) Report(kind Kind, format string, args ...any) {
	if kind < s.minKind {
		return
	}
	ev := Event{
		Kind:    kind,
		Context: strings.Join(s.hierarchy, " / "),
		Message: fmt.Sprintf(format, args...),
		Time:    time.Now(),
	}
	s.events = append(s.events, ev)
	s.log(ev)
}

// ReportOnce behaves like Report but suppresses repeats of the same
// key within the sink's dedupe window. The audio thread uses this for
// conditions that would otherwise fire once per tick, such as "no
// HRTF service bound for listener X".
func (s *Sink) ReportOnce(key string, kind Kind, format string, args ...any) {
	if kind < s.minKind {
		return
	}
	if _, ok := s.seen.Get(key); ok {
		return
	}
	s.seen.Add(key, struct{}{}, s.dedupe)
	s.Report(kind, format, args...)
}

func (s *Sink) log(ev Event) {
	if s.logger == nil {
		return
	}
	if ev.Kind == Warning {
		s.logger.Warn(ev.String())
	} else {
		s.logger.Error(ev.String())
	}
}

// HasErrors reports whether any event of a kind other than Warning has
// been recorded, used by structural setup APIs to decide whether to
// return false.
func (s *Sink) HasErrors() bool {
	for _, ev := range s.events {
		if ev.Kind != Warning {
			return true
		}
	}
	return false
}

// Events returns a copy of all recorded events, oldest first.
func (s *Sink) Events() []Event {
	return util.DuplicateSlice(s.events)
}

// Reset clears all recorded events without affecting the dedupe cache
// or the context hierarchy.
func (s *Sink) Reset() {
	s.events = nil
}
