// pkg/binaural/nearfield_processor.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package binaural

import (
	"sync"

	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/geo"
	"github.com/GrupoDiana/brt-go/pkg/graph"
	"github.com/GrupoDiana/brt-go/pkg/log"
	"github.com/GrupoDiana/brt-go/pkg/sos"
)

// CmdEnableNearField is the listener command that toggles the
// near-field effect (core-spec §4.9 "enable/disable... near-field
// effect"); core-spec §4.9 does not give this toggle a literal wire
// string, so it follows the /listener/... vocabulary already
// established for the HRTF convolver processor's own commands.
const CmdEnableNearField = "/listener/enableNearField"

// NearFieldProcessor applies the listener's near-field SOS filter
// service (core-spec §4.3) to each ear's already-spatialized channel,
// a post-stage to the HRTF convolver that boosts/rolls off the
// response for sources close enough to the head that the measured
// far-field HRIR alone no longer captures the near-field effect.
type NearFieldProcessor struct {
	*graph.BaseModule

	sink   *diag.Sink
	logger *log.Logger

	LeftIn           *graph.EntryPoint[[]float64]
	RightIn          *graph.EntryPoint[[]float64]
	SourcePosition   *graph.EntryPoint[geo.Transform]
	ListenerPosition *graph.EntryPoint[geo.Transform]
	ListenerID       *graph.EntryPoint[string]
	NearFieldTF      *graph.EntryPoint[*sos.Service]

	LeftEar  *graph.ExitPoint[[]float64]
	RightEar *graph.ExitPoint[[]float64]

	mu      sync.Mutex
	enabled bool
}

// NewNearFieldProcessor builds a processor bound to id, registered on
// mgr and the command bus.
func NewNearFieldProcessor(id string, mgr *graph.Manager, sink *diag.Sink, lg *log.Logger) *NearFieldProcessor {
	p := &NearFieldProcessor{
		sink:    sink,
		logger:  lg,
		enabled: true,
	}
	p.BaseModule = graph.NewBaseModule(id, p.update)

	p.LeftIn = graph.NewEntryPoint[[]float64]("left_in", graph.Notifying, p.BaseModule)
	p.RightIn = graph.NewEntryPoint[[]float64]("right_in", graph.Notifying, p.BaseModule)
	p.SourcePosition = graph.NewEntryPoint[geo.Transform]("source_position", graph.Notifying, p.BaseModule)
	p.ListenerPosition = graph.NewEntryPoint[geo.Transform]("listener_position", graph.Notifying, p.BaseModule)
	p.ListenerID = graph.NewEntryPoint[string]("listener_id", graph.Latched, p.BaseModule)
	p.NearFieldTF = graph.NewEntryPoint[*sos.Service]("nearfield_tf", graph.Latched, p.BaseModule)

	p.LeftEar = graph.NewExitPoint[[]float64](id + ":left_ear")
	p.RightEar = graph.NewExitPoint[[]float64](id + ":right_ear")

	if mgr != nil {
		mgr.CreateModule(p, false, false)
		mgr.RegisterEntryProbe(id, "left_in", p.LeftIn.Connected)
		mgr.RegisterEntryProbe(id, "right_in", p.RightIn.Connected)
		mgr.RegisterEntryProbe(id, "source_position", p.SourcePosition.Connected)
		mgr.RegisterEntryProbe(id, "listener_position", p.ListenerPosition.Connected)
		mgr.Bus().Register(p)
	}
	return p
}

// HandleCommand implements graph.CommandHandler, filtering by this
// processor's listener id.
func (p *NearFieldProcessor) HandleCommand(cmd graph.Command) bool {
	listenerID, _ := p.ListenerID.Value()
	if cmd.Target != listenerID || cmd.Address != CmdEnableNearField {
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

func (p *NearFieldProcessor) update() {
	left, _ := p.LeftIn.Value()
	right, _ := p.RightIn.Value()
	sourceT, _ := p.SourcePosition.Value()
	listenerT, _ := p.ListenerPosition.Value()

	p.mu.Lock()
	enabled := p.enabled
	p.mu.Unlock()

	if !enabled {
		p.LeftEar.Send(left)
		p.RightEar.Send(right)
		return
	}

	service, ok := p.NearFieldTF.Value()
	if !ok || service == nil || service.State() != sos.StateLoaded {
		p.LeftEar.Send(left)
		p.RightEar.Send(right)
		return
	}

	orientation := listenerT.OrientationTo(sourceT.Position)

	leftCoefs, leftOK := service.GetSOSFilterCoefficients(sos.Left, orientation.Distance, orientation.Azimuth)
	rightCoefs, rightOK := service.GetSOSFilterCoefficients(sos.Right, orientation.Distance, orientation.Azimuth)
	if !leftOK || !rightOK {
		p.reportOnce("no_entry", diag.NotSet, "nearfield processor %q: no SOS coefficients for queried direction", p.ModuleID())
		p.LeftEar.Send(left)
		p.RightEar.Send(right)
		return
	}

	leftOut := make([]float64, len(left))
	rightOut := make([]float64, len(right))
	copy(leftOut, left)
	copy(rightOut, right)
	leftCoefs.ProcessBlock(leftOut)
	rightCoefs.ProcessBlock(rightOut)

	p.LeftEar.Send(leftOut)
	p.RightEar.Send(rightOut)
}

func (p *NearFieldProcessor) reportOnce(key string, kind diag.Kind, format string, args ...any) {
	if p.sink != nil {
		p.sink.ReportOnce(p.ModuleID()+":"+key, kind, format, args...)
	}
}
