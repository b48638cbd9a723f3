// pkg/binaural/directivity_processor.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package binaural

import (
	"sync"

	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/directivity"
	"github.com/GrupoDiana/brt-go/pkg/dspmath"
	"github.com/GrupoDiana/brt-go/pkg/geo"
	"github.com/GrupoDiana/brt-go/pkg/graph"
	"github.com/GrupoDiana/brt-go/pkg/log"
)

// Command addresses the source-directivity processor filters on
// (core-spec §4.9 names "/source/enableDirectivity" explicitly).
const CmdEnableDirectivity = "/source/enableDirectivity"

// DirectivityProcessor is the source-directivity processor of
// core-spec §4.7: resolves the listener-relative direction in the
// source's own local frame, fetches the directivity transfer function
// for that direction, and applies it with a single-partition
// frequency-domain multiply.
type DirectivityProcessor struct {
	*graph.BaseModule

	cfg    graph.Config
	sink   *diag.Sink
	logger *log.Logger

	InputSamples     *graph.EntryPoint[[]float64]
	SourcePosition   *graph.EntryPoint[geo.Transform]
	ListenerPosition *graph.EntryPoint[geo.Transform]
	SourceID         *graph.EntryPoint[string]
	DirectivityTF    *graph.EntryPoint[*directivity.Service]

	OutputSamples *graph.ExitPoint[[]float64]

	mu      sync.Mutex
	enabled bool

	fft *dspmath.RealFFT
}

// NewDirectivityProcessor builds a processor bound to id and registers
// it on mgr and the command bus.
func NewDirectivityProcessor(id string, cfg graph.Config, mgr *graph.Manager, sink *diag.Sink, lg *log.Logger) *DirectivityProcessor {
	p := &DirectivityProcessor{
		cfg:     cfg,
		sink:    sink,
		logger:  lg,
		enabled: true,
		fft:     dspmath.NewRealFFT(2 * cfg.BlockSize),
	}
	p.BaseModule = graph.NewBaseModule(id, p.update)

	p.InputSamples = graph.NewEntryPoint[[]float64]("input_samples", graph.Notifying, p.BaseModule)
	p.SourcePosition = graph.NewEntryPoint[geo.Transform]("source_position", graph.Notifying, p.BaseModule)
	p.ListenerPosition = graph.NewEntryPoint[geo.Transform]("listener_position", graph.Notifying, p.BaseModule)
	p.SourceID = graph.NewEntryPoint[string]("source_id", graph.Latched, p.BaseModule)
	p.DirectivityTF = graph.NewEntryPoint[*directivity.Service]("directivity_tf", graph.Latched, p.BaseModule)

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

// HandleCommand implements graph.CommandHandler, filtering by this
// processor's source id.
func (p *DirectivityProcessor) HandleCommand(cmd graph.Command) bool {
	sourceID, _ := p.SourceID.Value()
	if cmd.Target != sourceID {
		return false
	}
	if cmd.Address != CmdEnableDirectivity {
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

func (p *DirectivityProcessor) update() {
	input, _ := p.InputSamples.Value()
	sourceT, _ := p.SourcePosition.Value()
	listenerT, _ := p.ListenerPosition.Value()

	p.mu.Lock()
	enabled := p.enabled
	p.mu.Unlock()

	if !enabled {
		p.OutputSamples.Send(input)
		return
	}

	service, ok := p.DirectivityTF.Value()
	if !ok || service == nil || service.State() != directivity.StateLoaded {
		p.reportOnce("no_service", diag.NullPointer, "directivity processor %q: no TF service bound", p.ModuleID())
		p.OutputSamples.Send(input)
		return
	}

	// The listener is seen from the source's own local frame: invert
	// the roles OrientationTo normally plays (listener relative to
	// source, not source relative to listener), handling the pole
	// singularity exactly as OrientationTo already does for any frame.
	localDirection := sourceT.OrientationTo(listenerT.Position)

	tf, ok := service.GetTF(localDirection.Azimuth, localDirection.Elevation, true)
	if !ok {
		p.reportOnce("no_entry", diag.NotSet, "directivity processor %q: no TF for queried direction", p.ModuleID())
		p.OutputSamples.Send(input)
		return
	}

	p.OutputSamples.Send(p.applyTF(input, tf))
}

// applyTF runs a single-partition frequency-domain multiply: zero-pad
// the block to 2B, forward transform, multiply by the TF's interlaced
// spectrum, inverse transform, and take the first B samples (core-spec
// §4.7 "run a single-partition frequency-domain convolution").
func (p *DirectivityProcessor) applyTF(input []float64, tf directivity.TF) []float64 {
	blockSize := p.cfg.BlockSize
	padded := make([]float64, 2*blockSize)
	copy(padded, input)
	spectrum := p.fft.Forward(nil, padded)

	il := tf.ToInterlaced()
	n := len(spectrum)
	if len(il) < n {
		n = len(il)
	}
	for i := 0; i < n; i++ {
		spectrum[i] *= il[i]
	}

	out := make([]float64, 2*blockSize)
	p.fft.Inverse(out, spectrum)
	return out[:blockSize]
}

func (p *DirectivityProcessor) reportOnce(key string, kind diag.Kind, format string, args ...any) {
	if p.sink != nil {
		p.sink.ReportOnce(p.ModuleID()+":"+key, kind, format, args...)
	}
}
