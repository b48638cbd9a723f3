// pkg/binaural/distance_processor.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package binaural

import (
	"math"
	"sync"

	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/dspmath"
	"github.com/GrupoDiana/brt-go/pkg/geo"
	"github.com/GrupoDiana/brt-go/pkg/graph"
	"github.com/GrupoDiana/brt-go/pkg/log"
)

// DefaultAnechoicAttenuationDB is the default attenuation-per-doubling
// factor for an anechoic environment (core-spec §4.8).
const DefaultAnechoicAttenuationDB = -6.02

// DefaultReverberantAttenuationDB is the default factor for a
// reverberant environment (core-spec §4.8).
const DefaultReverberantAttenuationDB = -3.01

// DefaultSmoothingCoefficient is the one-pole coefficient used to ramp
// gain across block boundaries. The smoother is stepped once per block,
// so after a distance change each block closes 10% of the remaining
// gap, coming within 10% of the new gain after about 22 blocks.
const DefaultSmoothingCoefficient = 0.9

// Command address the distance-attenuation processor filters on.
const CmdEnableDistanceAttenuation = "/source/enableDistanceAttenuation"

// DistanceAttenuationProcessor is core-spec §4.8: applies
// `aDB * log2(d/d0)` gain (aDB per doubling of distance), clamped to 0dB when the source is at or
// inside the reference distance, smoothed with a one-pole exponential
// ramp to avoid clicks as distance changes tick to tick.
type DistanceAttenuationProcessor struct {
	*graph.BaseModule

	sink   *diag.Sink
	logger *log.Logger

	InputSamples     *graph.EntryPoint[[]float64]
	SourcePosition   *graph.EntryPoint[geo.Transform]
	ListenerPosition *graph.EntryPoint[geo.Transform]
	SourceID         *graph.EntryPoint[string]

	OutputSamples *graph.ExitPoint[[]float64]

	mu                  sync.Mutex
	enabled             bool
	referenceDistance   float64
	attenuationDBPerDoubling float64
	smoother            *dspmath.Smoother
}

// NewDistanceAttenuationProcessor builds a processor with the given
// reference distance (meters) and attenuation factor (dB, negative).
func NewDistanceAttenuationProcessor(id string, mgr *graph.Manager, sink *diag.Sink, lg *log.Logger, referenceDistance, attenuationDB float64) *DistanceAttenuationProcessor {
	p := &DistanceAttenuationProcessor{
		sink:                     sink,
		logger:                   lg,
		enabled:                  true,
		referenceDistance:        referenceDistance,
		attenuationDBPerDoubling: attenuationDB,
		smoother:                 dspmath.NewSmoother(DefaultSmoothingCoefficient),
	}
	p.BaseModule = graph.NewBaseModule(id, p.update)

	p.InputSamples = graph.NewEntryPoint[[]float64]("input_samples", graph.Notifying, p.BaseModule)
	p.SourcePosition = graph.NewEntryPoint[geo.Transform]("source_position", graph.Notifying, p.BaseModule)
	p.ListenerPosition = graph.NewEntryPoint[geo.Transform]("listener_position", graph.Notifying, p.BaseModule)
	p.SourceID = graph.NewEntryPoint[string]("source_id", graph.Latched, p.BaseModule)

	p.OutputSamples = graph.NewExitPoint[[]float64](id + ":output_samples")

	if mgr != nil {
		mgr.CreateModule(p, false, false)
		mgr.RegisterEntryProbe(id, "input_samples", p.InputSamples.Connected)
		mgr.RegisterEntryProbe(id, "source_position", p.SourcePosition.Connected)
		mgr.RegisterEntryProbe(id, "listener_position", p.ListenerPosition.Connected)
		mgr.Bus().Register(p)
	}
	return p
}

// HandleCommand implements graph.CommandHandler, filtering by source id.
func (p *DistanceAttenuationProcessor) HandleCommand(cmd graph.Command) bool {
	sourceID, _ := p.SourceID.Value()
	if cmd.Target != sourceID || cmd.Address != CmdEnableDistanceAttenuation {
		return false
	}
	enable := true
	if param, ok := cmd.Params["enabled"]; ok {
		enable = param.Bln
	}
	p.mu.Lock()
	p.enabled = enable
	p.mu.Unlock()
	return true
}

func (p *DistanceAttenuationProcessor) update() {
	input, _ := p.InputSamples.Value()
	sourceT, _ := p.SourcePosition.Value()
	listenerT, _ := p.ListenerPosition.Value()

	p.mu.Lock()
	enabled := p.enabled
	d0 := p.referenceDistance
	aDB := p.attenuationDBPerDoubling
	p.mu.Unlock()

	if !enabled {
		p.OutputSamples.Send(input)
		return
	}

	distance := geo.Distance(sourceT.Position, listenerT.Position)
	gainDB := 0.0
	if distance > d0 && d0 > 0 {
		// aDB is dB-per-doubling (e.g. -6.02 anechoic, -3.01
		// reverberant, core-spec §4.8), so the distance ratio is
		// taken in base 2, not base 10.
		gainDB = aDB * math.Log2(distance/d0)
	}
	linearGain := math.Pow(10, gainDB/20)

	p.mu.Lock()
	smoothed := p.smoother.Step(linearGain)
	p.mu.Unlock()

	out := make([]float64, len(input))
	dspmath.Copy(out, input)
	dspmath.Gain(out, smoothed)
	p.OutputSamples.Send(out)
}
