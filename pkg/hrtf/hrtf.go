// pkg/hrtf/hrtf.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package hrtf implements the HRTF/HRBRIR service of core-spec §4.2: a
// state machine over a raw, arbitrary-sphere measured table that, on
// EndSetup, removes the common per-ear delay, extrapolates missing
// regions, synthesizes the poles, fills any oversized polar cap, builds
// a quasi-uniform grid, and resamples+partitions every node for
// uniformly-partitioned convolution. Runtime queries serve both a
// nearest-grid-node lookup and a barycentric online-interpolated one,
// with an optional Woodworth ITD substitution.
package hrtf

import (
	"strconv"
	"sync"

	"github.com/brunoga/deep"

	"github.com/GrupoDiana/brt-go/pkg/convolve"
	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/dspmath"
	"github.com/GrupoDiana/brt-go/pkg/geo"
	"github.com/GrupoDiana/brt-go/pkg/grid"
	"github.com/GrupoDiana/brt-go/pkg/interp"
	"github.com/GrupoDiana/brt-go/pkg/log"
	"github.com/GrupoDiana/brt-go/pkg/util"
)

// Kind distinguishes a plain free-field HRTF service from an HRBRIR
// (binaural room impulse response) service: core-spec §4.6 step 2
// prefers HRTF over HRBRIR when a listener has both bound. They share
// every other mechanism in this package.
type Kind int

const (
	KindHRTF Kind = iota
	KindHRBRIR
)

func (k Kind) String() string {
	if k == KindHRBRIR {
		return "HRBRIR"
	}
	return "HRTF"
}

// Ear selects which channel of a stored response to read.
type Ear int

const (
	Left Ear = iota
	Right
)

// ExtrapolationKind selects how EndSetup fills directions the
// measured data never covers (core-spec §4.2 step 2).
type ExtrapolationKind int

const (
	// ExtrapolationZero inserts a silent (all-zero) response.
	ExtrapolationZero ExtrapolationKind = iota
	// ExtrapolationNearest copies the nearest measured direction's
	// response.
	ExtrapolationNearest
)

// DefaultCapGapDegrees is the core spec's default threshold above
// which the gap between the pole and the nearest measured ring
// triggers synthesis of intermediate rings (core-spec §4.2 step 4).
const DefaultCapGapDegrees = 10.0

// DefaultSpeedOfSound is used by the Woodworth ITD substitution when
// the caller hasn't overridden it.
const DefaultSpeedOfSound = 343.0

// State is the service's lifecycle (core-spec §4.2): Empty ->
// SetupInProgress -> Loaded. Any public query outside Loaded returns a
// failure response.
type State int

const (
	StateEmpty State = iota
	StateSetupInProgress
	StateLoaded
)

// Config carries the process-wide invariants every service is built
// against (core-spec §3: "Block size B is process-wide and immutable";
// "Sample rate is process-wide and immutable").
type Config struct {
	BlockSize  int
	SampleRate float64
}

// THRIR is a time-domain HRIR pair plus per-ear delay (core-spec §3).
// Delays are kept as float64 during setup-time blending (pole/cap
// averaging and offline barycentric interpolation combine fractional
// weights); runtime queries round the partitioned entry's delay to the
// nearest sample via THRIRPartitioned.DelaySamples.
type THRIR struct {
	Left, Right           []float64
	LeftDelay, RightDelay float64
}

// Scale implements interp.Combinable.
func (t THRIR) Scale(w float64) THRIR {
	return THRIR{
		Left:       scaleSamples(t.Left, w),
		Right:      scaleSamples(t.Right, w),
		LeftDelay:  t.LeftDelay * w,
		RightDelay: t.RightDelay * w,
	}
}

// Add implements interp.Combinable.
func (t THRIR) Add(o THRIR) THRIR {
	return THRIR{
		Left:       addSamples(t.Left, o.Left),
		Right:      addSamples(t.Right, o.Right),
		LeftDelay:  t.LeftDelay + o.LeftDelay,
		RightDelay: t.RightDelay + o.RightDelay,
	}
}

func scaleSamples(s []float64, w float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v * w
	}
	return out
}

func addSamples(a, b []float64) []float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]float64, n)
	for i, v := range a {
		out[i] += v
	}
	for i, v := range b {
		out[i] += v
	}
	return out
}

// RoundedDelays returns the per-ear delay rounded to the nearest
// sample, for use by the delay line's expansion method.
func (t THRIR) RoundedDelays() (left, right int) {
	return dspmath.Clamp(int(t.LeftDelay+0.5), 0, 1<<30), dspmath.Clamp(int(t.RightDelay+0.5), 0, 1<<30)
}

// Subfilter is one frequency-domain block of a partitioned IR, shared
// with pkg/convolve so a partitioned HRIR can be fed straight into a
// Convolver without conversion (core-spec §3 "THRIRPartitioned").
type Subfilter = convolve.Subfilter

// THRIRPartitioned is a THRIR split into ceil(L/B) sub-filters per
// ear, each zero-padded to 2B and forward-transformed, plus the
// (possibly fractional, mid-blend) per-ear delay.
type THRIRPartitioned struct {
	Left, Right           []Subfilter
	LeftDelay, RightDelay float64
}

// Scale implements interp.Combinable.
func (t THRIRPartitioned) Scale(w float64) THRIRPartitioned {
	return THRIRPartitioned{
		Left:       scaleSubfilters(t.Left, w),
		Right:      scaleSubfilters(t.Right, w),
		LeftDelay:  t.LeftDelay * w,
		RightDelay: t.RightDelay * w,
	}
}

// Add implements interp.Combinable.
func (t THRIRPartitioned) Add(o THRIRPartitioned) THRIRPartitioned {
	return THRIRPartitioned{
		Left:       addSubfilters(t.Left, o.Left),
		Right:      addSubfilters(t.Right, o.Right),
		LeftDelay:  t.LeftDelay + o.LeftDelay,
		RightDelay: t.RightDelay + o.RightDelay,
	}
}

func scaleSubfilters(subs []Subfilter, w float64) []Subfilter {
	out := make([]Subfilter, len(subs))
	cw := complex(w, 0)
	for i, sf := range subs {
		o := make(Subfilter, len(sf))
		for j, c := range sf {
			o[j] = c * cw
		}
		out[i] = o
	}
	return out
}

func addSubfilters(a, b []Subfilter) []Subfilter {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]Subfilter, len(a))
	for i := range a {
		out[i] = make(Subfilter, len(a[i]))
		for j := range a[i] {
			out[i][j] = a[i][j] + b[i][j]
		}
	}
	return out
}

// NumSubfilters reports how many per-ear partitions this entry holds.
func (t THRIRPartitioned) NumSubfilters() int { return len(t.Left) }

// DelaySamples rounds the blended per-ear delay to the nearest sample.
func (t THRIRPartitioned) DelaySamples(ear Ear) int {
	d := t.LeftDelay
	if ear == Right {
		d = t.RightDelay
	}
	return dspmath.Clamp(int(d+0.5), 0, 1<<30)
}

// RawEntry is one add_hrir/add_hrbrir call's worth of measured data.
// Emitter is non-nil only for HRBRIR measurements (core-spec §6
// "SingleRoomMIMOSRIR": "per measurement ... emitter position").
type RawEntry struct {
	Orientation      geo.Orientation
	ListenerPosition geo.Vec3
	Emitter          *geo.Vec3
	IR               THRIR
}

// Service is the HRTF or HRBRIR service described by core-spec §4.2:
// Empty -> SetupInProgress -> Loaded, serving nearest-node and
// barycentric-interpolated runtime queries once loaded.
type Service struct {
	logger *log.Logger
	sink   *diag.Sink
	cfg    Config
	Kind   Kind
	name   string

	mu util.LoggingMutex

	stateMu sync.RWMutex
	state   State

	l             int
	extrapolation ExtrapolationKind
	capGapDegrees float64

	raw *util.OrderedMap

	fft *dspmath.RealFFT

	// Published, immutable once EndSetup completes.
	resampled     *grid.Grid[THRIRPartitioned]
	stepVector    map[int]float64
	numSubfilters int
	onlineInterp  *interp.OnlineInterpolator[THRIRPartitioned]

	// Runtime knobs, guarded by mu alongside the table pointer swap.
	woodworth    bool
	headRadius   float64
	speedOfSound float64
}

// NewService builds an empty service in state Empty.
func NewService(name string, kind Kind, cfg Config, sink *diag.Sink, lg *log.Logger) *Service {
	return &Service{
		name:          name,
		Kind:          kind,
		cfg:           cfg,
		sink:          sink,
		logger:        lg,
		capGapDegrees: DefaultCapGapDegrees,
		speedOfSound:  DefaultSpeedOfSound,
		raw:           util.NewOrderedMap(),
	}
}

// State returns the service's current lifecycle state.
func (s *Service) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// BeginSetup clears all tables and records the per-ear tap count and
// extrapolation policy (core-spec §4.2).
func (s *Service) BeginSetup(l int, extrapolation ExtrapolationKind) {
	s.mu.Lock(s.logger)
	defer s.mu.Unlock(s.logger)

	s.l = l
	s.extrapolation = extrapolation
	s.raw = util.NewOrderedMap()
	s.resampled = nil
	s.stepVector = nil
	s.numSubfilters = 0
	s.onlineInterp = nil

	s.stateMu.Lock()
	s.state = StateSetupInProgress
	s.stateMu.Unlock()
}

// AddHRIR inserts one measurement into the raw table. Azimuth and
// elevation are normalized first; an entry already present at the
// same (azimuth,elevation) (0.01-degree resolution) is ignored with a
// warning (core-spec §4.2).
func (s *Service) AddHRIR(azimuth, elevation, distance float64, listenerPosition geo.Vec3, left, right []float64, leftDelay, rightDelay int) bool {
	if s.State() != StateSetupInProgress {
		s.report(diag.NotSet, "add_hrir on %q: not in setup", s.name)
		return false
	}
	o := geo.NewOrientation(azimuth, elevation, distance)
	key := strconv.FormatInt(o.Hash(), 10)
	if _, ok := s.raw.Get(key); ok {
		s.report(diag.Warning, "add_hrir on %q: duplicate entry at (%.2f,%.2f) ignored", s.name, o.Azimuth, o.Elevation)
		return false
	}
	s.raw.Set(key, RawEntry{
		Orientation:      o,
		ListenerPosition: listenerPosition,
		IR: THRIR{
			Left: util.DuplicateSlice(left), Right: util.DuplicateSlice(right),
			LeftDelay: float64(leftDelay), RightDelay: float64(rightDelay),
		},
	})
	return true
}

// AddHRBRIR inserts one room-measurement sample, including the emitter
// position the plain HRIR form doesn't carry (core-spec §6).
func (s *Service) AddHRBRIR(azimuth, elevation, distance float64, listenerPosition, emitter geo.Vec3, left, right []float64, leftDelay, rightDelay int) bool {
	if s.State() != StateSetupInProgress {
		s.report(diag.NotSet, "add_hrbrir on %q: not in setup", s.name)
		return false
	}
	o := geo.NewOrientation(azimuth, elevation, distance)
	key := strconv.FormatInt(o.Hash(), 10)
	if _, ok := s.raw.Get(key); ok {
		s.report(diag.Warning, "add_hrbrir on %q: duplicate entry at (%.2f,%.2f) ignored", s.name, o.Azimuth, o.Elevation)
		return false
	}
	s.raw.Set(key, RawEntry{
		Orientation:      o,
		ListenerPosition: listenerPosition,
		Emitter:          &emitter,
		IR: THRIR{
			Left: util.DuplicateSlice(left), Right: util.DuplicateSlice(right),
			LeftDelay: float64(leftDelay), RightDelay: float64(rightDelay),
		},
	})
	return true
}

// rawEntries returns every raw entry in insertion order.
func (s *Service) rawEntries() []RawEntry {
	entries := make([]RawEntry, 0, len(s.raw.Keys()))
	for _, k := range s.raw.Keys() {
		v, _ := s.raw.Get(k)
		entries = append(entries, v.(RawEntry))
	}
	return entries
}

// CheckSampleRate validates that sampleRate matches the service's
// configured one, rejecting a mismatched load (core-spec §3 "any
// service whose measured sample rate differs is rejected at load").
func (s *Service) CheckSampleRate(sampleRate float64) bool {
	if sampleRate != s.cfg.SampleRate {
		s.report(diag.BadSize, "%q: sample rate %v does not match configured %v", s.name, sampleRate, s.cfg.SampleRate)
		return false
	}
	return true
}

// SetWoodworth enables or disables the Woodworth ITD substitution
// (core-spec §4.2 "ITD substitution") for subsequent delay queries.
func (s *Service) SetWoodworth(enabled bool, headRadius, speedOfSound float64) {
	s.mu.Lock(s.logger)
	defer s.mu.Unlock(s.logger)
	s.woodworth = enabled
	s.headRadius = headRadius
	if speedOfSound > 0 {
		s.speedOfSound = speedOfSound
	}
}

// deepClone publishes a defensive copy of the resampled grid so an
// in-flight query against the previous table is never mutated by a
// concurrent EndSetup (core-spec §5's "mutex... protects pointer
// swap").
func deepClone[T any](v T) T {
	return deep.MustCopy(v)
}

func (s *Service) report(kind diag.Kind, format string, args ...any) {
	if s.sink != nil {
		s.sink.Report(kind, format, args...)
	}
}
