// pkg/graph/command_test.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package graph

import (
	"testing"

	"github.com/GrupoDiana/brt-go/pkg/geo"
)

type recordingHandler struct {
	address string
	target  string
	handled bool
}

func (r *recordingHandler) HandleCommand(cmd Command) bool {
	if cmd.Target != r.target {
		return false
	}
	if cmd.Address != r.address {
		return false
	}
	r.handled = true
	return true
}

func TestCommandBusFiltersByTarget(t *testing.T) {
	bus := NewCommandBus()
	a := &recordingHandler{address: "/source/location", target: "source-1"}
	b := &recordingHandler{address: "/source/location", target: "source-2"}
	bus.Register(a)
	bus.Register(b)

	handled := bus.Execute(Command{
		Address: "/source/location",
		Target:  "source-1",
		Params:  map[string]Param{"position": Vec3Param(geo.Vec3{X: 1})},
	})

	if !handled {
		t.Fatalf("expected the command to be handled")
	}
	if !a.handled {
		t.Errorf("expected handler a to have handled the command")
	}
	if b.handled {
		t.Errorf("handler b should not have handled a command targeting a different module")
	}
}

func TestCommandBusUnregister(t *testing.T) {
	bus := NewCommandBus()
	a := &recordingHandler{address: "/listener/setHeadRadius", target: "listener-1"}
	bus.Register(a)
	bus.Unregister(a)

	handled := bus.Execute(Command{Address: "/listener/setHeadRadius", Target: "listener-1"})
	if handled {
		t.Fatalf("unregistered handler should not see commands")
	}
}

func TestCommandEncodeDecodeRoundTrip(t *testing.T) {
	cmd := Command{
		Address: "/source/orientationQuaternion",
		Target:  "source-1",
		Params: map[string]Param{
			"q":     QuatParam(geo.Quaternion{W: 1}),
			"gain":  FloatParam(-6.02),
			"count": IntParam(3),
			"on":    BoolParam(true),
			"label": StringParam("front"),
		},
	}

	data, err := cmd.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := DecodeCommand(data)
	if err != nil {
		t.Fatalf("DecodeCommand failed: %v", err)
	}

	if got.Address != cmd.Address || got.Target != cmd.Target {
		t.Fatalf("round trip mismatch: got %+v, expected %+v", got, cmd)
	}
	if len(got.Params) != len(cmd.Params) {
		t.Fatalf("param count mismatch: got %d, expected %d", len(got.Params), len(cmd.Params))
	}
	if got.Params["gain"].Flt != -6.02 {
		t.Errorf("gain param mismatch: %+v", got.Params["gain"])
	}
	if got.Params["label"].Str != "front" {
		t.Errorf("label param mismatch: %+v", got.Params["label"])
	}
}
