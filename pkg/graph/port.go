// pkg/graph/port.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package graph is the dataflow runtime: typed entry/exit ports wired
// by a subject/observer fan-out, a per-module waiting-stack firing
// rule, a command bus, and the manager that owns a tick's worth of
// sources, listeners, and processors.
package graph

import "sync"

// ExitPoint is a named subject exposing the last value it sent. Send
// stores the value and notifies every attached entry point
// synchronously, in the order they were attached (core-spec §5:
// "per-subject notifications are delivered in the order observers
// were attached").
type ExitPoint[T any] struct {
	ID    string
	mu    sync.Mutex
	value T
	obs   []*EntryPoint[T]
}

// NewExitPoint builds a named exit point.
func NewExitPoint[T any](id string) *ExitPoint[T] {
	return &ExitPoint[T]{ID: id}
}

// Attach connects an entry point so it receives every future Send.
func (x *ExitPoint[T]) Attach(e *EntryPoint[T]) {
	x.mu.Lock()
	x.obs = append(x.obs, e)
	x.mu.Unlock()
	e.setAttached(1)
}

// Detach disconnects a previously attached entry point. Safe to call
// even if e was never attached.
func (x *ExitPoint[T]) Detach(e *EntryPoint[T]) {
	x.mu.Lock()
	found := false
	for i, o := range x.obs {
		if o == e {
			x.obs = append(x.obs[:i], x.obs[i+1:]...)
			found = true
			break
		}
	}
	x.mu.Unlock()
	if found {
		e.setAttached(-1)
	}
}

// Send stores value as the exit point's current value and notifies
// every attached entry point in attachment order.
func (x *ExitPoint[T]) Send(value T) {
	x.mu.Lock()
	x.value = value
	obs := x.obs
	x.mu.Unlock()

	for _, o := range obs {
		o.receive(value)
	}
}

// Value returns the last value sent.
func (x *ExitPoint[T]) Value() T {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.value
}

// NumObservers reports how many entry points are currently attached.
// The manager's EndSetup validation does not use it; it checks the
// registered entry probes instead.
func (x *ExitPoint[T]) NumObservers() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.obs)
}

// Multiplicity selects how an EntryPoint participates in its module's
// firing rule.
type Multiplicity int

const (
	// Latched: the entry point stores the value and never triggers
	// firing.
	Latched Multiplicity = 0
	// Notifying: the entry point triggers firing once every notifying
	// input on the module has arrived during the current tick.
	Notifying Multiplicity = 1
)

// EntryPoint is a named observer wrapping the last-received value.
// Multiplicity 0 is latched; any other value is notifying — the core
// spec reserves multiplicity > 1 for future use and current semantics
// treat it exactly like 1 (see the BaseModule.registerNotifying note).
type EntryPoint[T any] struct {
	ID           string
	Multiplicity Multiplicity

	mu         sync.Mutex
	value      T
	hasValue   bool
	module     *BaseModule
	attachedBy int
}

// NewEntryPoint builds an entry point owned by module, registering it
// on the module's waiting stack if it is notifying.
func NewEntryPoint[T any](id string, mult Multiplicity, module *BaseModule) *EntryPoint[T] {
	e := &EntryPoint[T]{ID: id, Multiplicity: mult, module: module}
	if mult != Latched {
		module.registerNotifying(id)
	}
	return e
}

// receive stores the value and, if this is a notifying entry point,
// reports the arrival to the owning module's waiting stack.
func (e *EntryPoint[T]) receive(value T) {
	e.mu.Lock()
	e.value = value
	e.hasValue = true
	e.mu.Unlock()

	if e.Multiplicity != Latched {
		e.module.arrive(e.ID)
	}
}

// Value returns the last received value and whether any value has
// ever been received.
func (e *EntryPoint[T]) Value() (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value, e.hasValue
}

func (e *EntryPoint[T]) setAttached(delta int) {
	e.mu.Lock()
	e.attachedBy += delta
	e.mu.Unlock()
}

// Connected reports whether some exit point currently has this entry
// point attached. The manager's EndSetup uses this (via
// Manager.RegisterEntryProbe) to validate that every notifying input
// is wired before ending setup.
func (e *EntryPoint[T]) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attachedBy > 0
}
