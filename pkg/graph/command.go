// pkg/graph/command.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package graph

import (
	"github.com/GrupoDiana/brt-go/pkg/geo"
	"github.com/vmihailenco/msgpack/v5"
)

// ParamKind tags which field of Param is populated; Param is the sum
// type core-spec §4.1 describes for command parameters ("strings,
// ints, floats, bools, 3-vectors, quaternions").
type ParamKind int

const (
	ParamString ParamKind = iota
	ParamInt
	ParamFloat
	ParamBool
	ParamVec3
	ParamQuaternion
)

// Param is one named command-bus parameter value.
type Param struct {
	Kind ParamKind
	Str  string          `msgpack:",omitempty"`
	Int  int64           `msgpack:",omitempty"`
	Flt  float64         `msgpack:",omitempty"`
	Bln  bool            `msgpack:",omitempty"`
	Vec  geo.Vec3        `msgpack:",omitempty"`
	Quat geo.Quaternion  `msgpack:",omitempty"`
}

func StringParam(s string) Param       { return Param{Kind: ParamString, Str: s} }
func IntParam(i int64) Param           { return Param{Kind: ParamInt, Int: i} }
func FloatParam(f float64) Param       { return Param{Kind: ParamFloat, Flt: f} }
func BoolParam(b bool) Param           { return Param{Kind: ParamBool, Bln: b} }
func Vec3Param(v geo.Vec3) Param       { return Param{Kind: ParamVec3, Vec: v} }
func QuatParam(q geo.Quaternion) Param { return Param{Kind: ParamQuaternion, Quat: q} }

// Command is a self-describing record: an address string (such as
// "/source/location"), the id of the module it targets, and a set of
// named typed parameters. Modules filter on Address and Target and
// act synchronously.
type Command struct {
	Address string
	Target  string
	Params  map[string]Param
}

// Encode serializes a command with msgpack so it can be captured to a
// ring buffer or replayed in a test, per core-spec §9's note that the
// manager is the natural concurrency/process boundary.
func (c Command) Encode() ([]byte, error) {
	return msgpack.Marshal(c)
}

// DecodeCommand deserializes a command previously produced by Encode.
func DecodeCommand(data []byte) (Command, error) {
	var c Command
	err := msgpack.Unmarshal(data, &c)
	return c, err
}

// CommandHandler is implemented by any module that wants to observe
// commands broadcast on the bus. HandleCommand returns true if it recognized
// and acted on the command's Address.
type CommandHandler interface {
	HandleCommand(Command) bool
}

// CommandBus is the manager's single command exit point, fanned out
// to every registered handler. Unlike EntryPoint, handlers are invoked
// directly and synchronously — commands never pass through the
// notifying waiting-stack rule (core-spec §5: "commands... delivered
// synchronously before process_all returns, not interleaved with
// sample processing").
type CommandBus struct {
	handlers []CommandHandler
}

// NewCommandBus builds an empty bus.
func NewCommandBus() *CommandBus {
	return &CommandBus{}
}

// Register attaches a handler to the bus, in the order future commands
// should be offered to it.
func (b *CommandBus) Register(h CommandHandler) {
	b.handlers = append(b.handlers, h)
}

// Unregister detaches a previously registered handler.
func (b *CommandBus) Unregister(h CommandHandler) {
	for i, r := range b.handlers {
		if r == h {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return
		}
	}
}

// Execute offers cmd to every registered handler in attachment order
// and reports whether any of them handled it.
func (b *CommandBus) Execute(cmd Command) bool {
	handled := false
	for _, h := range b.handlers {
		if h.HandleCommand(cmd) {
			handled = true
		}
	}
	return handled
}
