// pkg/graph/manager.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package graph

import (
	"context"
	"fmt"

	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/util"
	"golang.org/x/sync/errgroup"
)

// commandHistoryCapacity bounds how many encoded commands ExecuteCommand
// retains for replay/diagnostics.
const commandHistoryCapacity = 256

// Manager owns the set of live sources, listeners, and processors for
// one audio pipeline, plus the command bus. It enforces the core
// spec's setup/run split: structural edits (create, connect,
// disconnect, destroy) only succeed while setup is active;
// process_all only runs while it is not.
type Manager struct {
	ID          string
	sink        *diag.Sink
	bus         *CommandBus
	setupActive bool

	modules  map[string]Module
	sources  map[string]struct{}
	listener map[string]struct{}
	edges    map[string][]string // moduleID -> ids of modules it feeds
	probes   map[string]map[string]func() bool

	tickers []func()

	// history keeps the most recent commands msgpack-encoded, so a
	// diagnostic consumer or a test can capture and replay exactly what
	// crossed the bus without holding a reference to the live Command
	// values (core-spec §9: the manager is the natural concurrency
	// boundary to capture at).
	history *util.RingBuffer[[]byte]
}

// NewManager builds an empty manager, already in setup mode — the
// core spec's lifecycle always begins with begin_setup.
func NewManager(id string, sink *diag.Sink) *Manager {
	return &Manager{
		ID:          id,
		sink:        sink,
		bus:         NewCommandBus(),
		setupActive: true,
		modules:     make(map[string]Module),
		sources:     make(map[string]struct{}),
		listener:    make(map[string]struct{}),
		edges:       make(map[string][]string),
		probes:      make(map[string]map[string]func() bool),
		history:     util.NewRingBuffer[[]byte](commandHistoryCapacity),
	}
}

// Bus returns the manager's command bus.
func (m *Manager) Bus() *CommandBus { return m.bus }

// BeginSetup re-enters setup mode, e.g. to wire in a new module after
// end_setup was already called once.
func (m *Manager) BeginSetup() {
	m.setupActive = true
}

// InSetup reports whether structural edits currently succeed.
func (m *Manager) InSetup() bool { return m.setupActive }

// CreateModule registers a module under a unique id while setup is
// active. Returns false (with a diag.NotAllowed report) if setup is
// not active or the id is a duplicate.
func (m *Manager) CreateModule(mod Module, isSource, isListener bool) bool {
	if !m.setupActive {
		m.report(diag.NotAllowed, "create_module %q: setup not active", mod.ModuleID())
		return false
	}
	id := mod.ModuleID()
	if _, exists := m.modules[id]; exists {
		m.report(diag.NotAllowed, "create_module %q: duplicate id", id)
		return false
	}
	m.modules[id] = mod
	m.probes[id] = make(map[string]func() bool)
	if isSource {
		m.sources[id] = struct{}{}
	}
	if isListener {
		m.listener[id] = struct{}{}
	}
	return true
}

// DestroyModule releases a module while setup is active.
func (m *Manager) DestroyModule(id string) bool {
	if !m.setupActive {
		m.report(diag.NotAllowed, "destroy_module %q: setup not active", id)
		return false
	}
	delete(m.modules, id)
	delete(m.sources, id)
	delete(m.listener, id)
	delete(m.edges, id)
	delete(m.probes, id)
	return true
}

// RegisterEntryProbe records how to ask an entry point on module id
// whether it is currently connected, used by EndSetup's connectivity
// validation. Concrete modules call this once per notifying entry
// point they own.
func (m *Manager) RegisterEntryProbe(moduleID, entryID string, probe func() bool) {
	if _, ok := m.probes[moduleID]; !ok {
		m.probes[moduleID] = make(map[string]func() bool)
	}
	m.probes[moduleID][entryID] = probe
}

// Connect attaches an exit point to an entry point and records the
// edge between their owning modules for EndSetup's reachability
// check. It only succeeds while setup is active.
func Connect[T any](m *Manager, fromModuleID string, x *ExitPoint[T], toModuleID string, e *EntryPoint[T]) bool {
	if !m.setupActive {
		m.report(diag.NotAllowed, "connect %s -> %s: setup not active", fromModuleID, toModuleID)
		return false
	}
	x.Attach(e)
	m.edges[fromModuleID] = append(m.edges[fromModuleID], toModuleID)
	return true
}

// Disconnect detaches an exit point from an entry point and removes
// the recorded edge. It only succeeds while setup is active.
func Disconnect[T any](m *Manager, fromModuleID string, x *ExitPoint[T], toModuleID string, e *EntryPoint[T]) bool {
	if !m.setupActive {
		m.report(diag.NotAllowed, "disconnect %s -> %s: setup not active", fromModuleID, toModuleID)
		return false
	}
	x.Detach(e)
	if edges, ok := m.edges[fromModuleID]; ok {
		for i, id := range edges {
			if id == toModuleID {
				m.edges[fromModuleID] = append(edges[:i], edges[i+1:]...)
				break
			}
		}
	}
	return true
}

// EndSetup clears setup mode after validating the graph: every
// registered notifying entry-point probe must report connected, and
// every listener must be reachable from at least one source. The core
// spec's C++ original left this validation unimplemented (a noted
// bug); this module implements it for real. Returns false, leaving
// setup active, if validation fails.
func (m *Manager) EndSetup() bool {
	for moduleID, entries := range m.probes {
		for entryID, probe := range entries {
			if !probe() {
				m.report(diag.NotAllowed, "module %q entry %q has no connection at end_setup", moduleID, entryID)
				return false
			}
		}
	}

	reachable := m.reachableFromSources()
	for id := range m.listener {
		if !reachable[id] {
			m.report(diag.NotAllowed, "listener %q is not reachable from any source", id)
			return false
		}
	}

	m.setupActive = false
	return true
}

func (m *Manager) reachableFromSources() map[string]bool {
	seen := make(map[string]bool)
	var stack []string
	for id := range m.sources {
		stack = append(stack, id)
		seen[id] = true
	}
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		for _, next := range m.edges[cur] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return seen
}

// RegisterTick adds a per-tick callback driven by ProcessAll, in the
// order sources should be asked to mark their exits ready (core-spec
// §6: "For each source: set_buffer..., set_transform...; Call
// process_all()").
func (m *Manager) RegisterTick(fire func()) {
	m.tickers = append(m.tickers, fire)
}

// ProcessAll drives one tick of audio through the graph: every
// registered tick callback runs in registration order. It is an error
// to call this while setup is active.
func (m *Manager) ProcessAll() bool {
	if m.setupActive {
		m.report(diag.NotAllowed, "process_all called while setup is active")
		return false
	}
	for _, fire := range m.tickers {
		fire()
	}
	return true
}

// ExecuteCommand runs a command through the manager's bus and appends
// its msgpack-encoded form to the replay history.
func (m *Manager) ExecuteCommand(cmd Command) bool {
	if data, err := cmd.Encode(); err == nil {
		m.history.Add(data)
	} else {
		m.report(diag.Warning, "execute_command %q: history encode failed: %v", cmd.Address, err)
	}
	return m.bus.Execute(cmd)
}

// CommandHistory decodes and returns the most recently executed
// commands, oldest first.
func (m *Manager) CommandHistory() []Command {
	n := m.history.Size()
	out := make([]Command, 0, n)
	for i := 0; i < n; i++ {
		cmd, err := DecodeCommand(m.history.Get(i))
		if err != nil {
			m.report(diag.Warning, "command_history: decode failed: %v", err)
			continue
		}
		out = append(out, cmd)
	}
	return out
}

// ReplayCommandHistory re-executes every command currently held in the
// history buffer against the bus, in original order. A listener model
// reconnecting mid-session uses this to recover the runtime knobs
// (interpolation/ITD/parallax toggles, head radius, ...) it missed
// while detached.
func (m *Manager) ReplayCommandHistory() {
	for _, cmd := range m.CommandHistory() {
		m.bus.Execute(cmd)
	}
}

func (m *Manager) report(kind diag.Kind, format string, args ...any) {
	if m.sink != nil {
		m.sink.Report(kind, fmt.Sprintf(format, args...))
	}
}

// RunManagers drives ProcessAll on each of a set of independent
// managers concurrently, one goroutine per manager, waits for all of
// them to finish, and returns the first error any of them reported.
// Core-spec §5: "parallelism
// is expected to come from running multiple independent listener or
// environment graphs on separate threads, each owning its manager."
func RunManagers(ctx context.Context, managers []*Manager) error {
	g, _ := errgroup.WithContext(ctx)
	for _, mgr := range managers {
		mgr := mgr
		g.Go(func() error {
			if !mgr.ProcessAll() {
				return fmt.Errorf("manager %q: process_all failed", mgr.ID)
			}
			return nil
		})
	}
	return g.Wait()
}
