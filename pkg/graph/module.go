// pkg/graph/module.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package graph

import "sync"

// Module is anything that owns entry and exit points and fires on the
// waiting-stack rule. Concrete modules (sources, listeners,
// processors) embed BaseModule and supply an Update function at
// construction.
type Module interface {
	// ModuleID returns the module's id, used for command-bus target
	// filtering and connectivity diagnostics.
	ModuleID() string
}

// BaseModule implements the per-module waiting stack described in
// core-spec §4.1: a module defines, at construction, which entry
// points are notifying; the firing rule calls Update() once every
// notifying input has arrived during the current tick, then resets
// the stack.
type BaseModule struct {
	id     string
	update func()

	mu        sync.Mutex
	notifying map[string]struct{}
	waiting   map[string]struct{}
}

// NewBaseModule builds the waiting-stack machinery for a module. fire
// is called exactly once per tick, after every notifying entry point
// registered via NewEntryPoint has received a value.
func NewBaseModule(id string, fire func()) *BaseModule {
	return &BaseModule{
		id:        id,
		update:    fire,
		notifying: make(map[string]struct{}),
		waiting:   make(map[string]struct{}),
	}
}

func (m *BaseModule) ModuleID() string { return m.id }

// registerNotifying adds an entry point id to the set that must
// arrive before the module fires. Multiplicity > 1 is accepted here
// and, per the core spec's documented-future open question, behaves
// identically to multiplicity 1: it is simply added to the same
// notifying set.
func (m *BaseModule) registerNotifying(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifying[id] = struct{}{}
}

// arrive records that the notifying entry point id has received a
// value this tick. Once every registered notifying id has arrived,
// Update fires and the waiting stack resets for the next tick.
func (m *BaseModule) arrive(id string) {
	m.mu.Lock()
	if _, ok := m.notifying[id]; !ok {
		m.mu.Unlock()
		return
	}
	m.waiting[id] = struct{}{}
	ready := len(m.waiting) == len(m.notifying)
	if ready {
		clear(m.waiting)
	}
	m.mu.Unlock()

	if ready {
		m.update()
	}
}

// NumNotifying reports how many distinct notifying entry points are
// registered, used by tests of the firing rule.
func (m *BaseModule) NumNotifying() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifying)
}
