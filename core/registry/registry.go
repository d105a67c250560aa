// Package registry owns the set of registered feature modules.
// It rejects modules whose routes or components collide with ones already
// registered, tracks isolation markers, holds each module's live instance and
// purges a module's hooks when it is unregistered.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/artpar/carehub/core/hooks"
	"github.com/artpar/carehub/core/module"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidModule is returned for descriptors that fail validation.
	ErrInvalidModule = errors.New("invalid module")

	// ErrAlreadyRegistered is returned when a module id is already taken.
	ErrAlreadyRegistered = errors.New("module already registered")

	// ErrNotRegistered is returned by operations that need a registered module.
	ErrNotRegistered = errors.New("module not registered")

	// ErrNilInstance is returned when loading a nil instance.
	ErrNilInstance = errors.New("instance is nil")
)

// Instance is the live business-logic object of a module.
type Instance any

// Metrics receives registry events. Implemented by adapters/metrics.
type Metrics interface {
	ModuleRegistered(id string)
	ModuleUnregistered(id string)
	ConflictDetected(id string, conflicts int)
	StatsChanged(stats Stats)
}

// Registry manages registered modules, their instances, isolation markers and hooks.
type Registry struct {
	mu sync.RWMutex

	// descriptors by module id
	modules map[string]module.Descriptor

	// live instances by module id
	instances map[string]Instance

	isolation *IsolationManager
	hooks     *hooks.Dispatcher

	logger  zerolog.Logger
	metrics Metrics
	now     func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics reports registry events to m.
func WithMetrics(m Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithHooks uses d as the hook dispatcher instead of a private one.
func WithHooks(d *hooks.Dispatcher) Option {
	return func(r *Registry) {
		r.hooks = d
	}
}

// WithClock overrides the time source used for backup timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		modules:   make(map[string]module.Descriptor),
		instances: make(map[string]Instance),
		isolation: NewIsolationManager(),
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.hooks == nil {
		r.hooks = hooks.New(r.logger)
	}
	return r
}

// Register validates d, checks it against every registered module for route
// and component conflicts, and stores it. On any failure nothing changes.
func (r *Registry) Register(d module.Descriptor) error {
	if err := module.Validate(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidModule, err)
	}
	d = d.Clone()

	r.mu.Lock()
	if _, exists := r.modules[d.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, d.ID)
	}

	conflicts := DetectConflicts(d, r.othersLocked(d.ID))
	if len(conflicts) > 0 {
		r.mu.Unlock()
		r.logger.Warn().
			Str("module", d.ID).
			Strs("conflicts", conflicts).
			Msg("module registration rejected")
		if r.metrics != nil {
			r.metrics.ConflictDetected(d.ID, len(conflicts))
		}
		return &ConflictError{Module: d.ID, Conflicts: conflicts}
	}

	r.modules[d.ID] = d
	if d.Settings.Isolated {
		r.isolation.Create(d.ID)
	}
	stats := r.statsLocked()
	r.mu.Unlock()

	r.logger.Info().
		Str("module", d.ID).
		Str("version", d.Version).
		Int("routes", len(d.Routes)).
		Int("components", len(d.Components)).
		Bool("isolated", d.Settings.Isolated).
		Msg("module registered")

	if r.metrics != nil {
		r.metrics.ModuleRegistered(d.ID)
		r.metrics.StatsChanged(stats)
	}
	return nil
}

// Unregister removes a module along with its isolation entry, instance and
// hooks. Unknown ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	if _, exists := r.modules[id]; !exists {
		r.mu.Unlock()
		return
	}

	r.isolation.Remove(id)
	delete(r.instances, id)
	removedHooks := r.hooks.RemoveModule(id)
	delete(r.modules, id)
	stats := r.statsLocked()
	r.mu.Unlock()

	r.logger.Info().
		Str("module", id).
		Int("hooks_removed", removedHooks).
		Msg("module unregistered")

	if r.metrics != nil {
		r.metrics.ModuleUnregistered(id)
		r.metrics.StatsChanged(stats)
	}
}

// Get returns a copy of a registered module's descriptor.
func (r *Registry) Get(id string) (module.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.modules[id]
	if !ok {
		return module.Descriptor{}, false
	}
	return d.Clone(), true
}

// GetAll returns every registered module, sorted by id.
func (r *Registry) GetAll() []module.Descriptor {
	return r.filter(func(module.Descriptor) bool { return true })
}

// GetEnabled returns the modules whose settings have Enabled set.
func (r *Registry) GetEnabled() []module.Descriptor {
	return r.filter(func(d module.Descriptor) bool { return d.Settings.Enabled })
}

// GetIsolated returns the modules whose settings have Isolated set.
func (r *Registry) GetIsolated() []module.Descriptor {
	return r.filter(func(d module.Descriptor) bool { return d.Settings.Isolated })
}

func (r *Registry) filter(keep func(module.Descriptor) bool) []module.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]module.Descriptor, 0, len(r.modules))
	for _, id := range r.sortedIDsLocked() {
		d := r.modules[id]
		if keep(d) {
			result = append(result, d.Clone())
		}
	}
	return result
}

// LoadInstance attaches the live business object of a registered module,
// replacing any previous one.
func (r *Registry) LoadInstance(id string, inst Instance) error {
	if inst == nil {
		return ErrNilInstance
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[id]; !exists {
		return fmt.Errorf("load instance: %w: %s", ErrNotRegistered, id)
	}
	r.instances[id] = inst

	r.logger.Debug().
		Str("module", id).
		Str("type", fmt.Sprintf("%T", inst)).
		Msg("module instance loaded")
	return nil
}

// GetInstance returns the live instance of a module.
func (r *Registry) GetInstance(id string) (Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[id]
	return inst, ok
}

// UpdateSettings merges patch into a module's settings. It returns false if
// the module is not registered. Toggling Isolated keeps the isolation entry
// in step with the flag.
func (r *Registry) UpdateSettings(id string, patch module.SettingsPatch) bool {
	r.mu.Lock()
	d, exists := r.modules[id]
	if !exists {
		r.mu.Unlock()
		return false
	}

	d.Settings = d.Settings.Apply(patch)
	r.modules[id] = d
	r.syncIsolationLocked(d)
	stats := r.statsLocked()
	r.mu.Unlock()

	r.logger.Info().
		Str("module", id).
		Bool("enabled", d.Settings.Enabled).
		Bool("isolated", d.Settings.Isolated).
		Msg("module settings updated")

	if r.metrics != nil {
		r.metrics.StatsChanged(stats)
	}
	return true
}

// CheckPermission reports whether role may perform action on a module.
// Unknown modules deny everything.
func (r *Registry) CheckPermission(id string, action module.Action, role string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.modules[id]
	if !ok {
		return false
	}
	return d.Permissions.Allows(action, role)
}

// IsIsolated reports whether a module has an isolation entry.
func (r *Registry) IsIsolated(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isolation.IsIsolated(id)
}

// RegisterHook attaches a callback to a hook name. A non-empty moduleID ties
// the registration to that module's lifetime.
func (r *Registry) RegisterHook(name, moduleID string, cb hooks.Callback) hooks.HandleID {
	return r.hooks.Register(name, cb, moduleID)
}

// UnregisterHook removes a single hook registration.
func (r *Registry) UnregisterHook(name string, id hooks.HandleID) bool {
	return r.hooks.Unregister(name, id)
}

// CallHook invokes every callback registered for name. It never fails:
// failing callbacks contribute nil results.
func (r *Registry) CallHook(ctx context.Context, name string, args ...any) []any {
	return r.hooks.Call(ctx, name, args...)
}

// Hooks returns the registry's hook dispatcher.
func (r *Registry) Hooks() *hooks.Dispatcher {
	return r.hooks
}

// RouteEntry is a route together with the module that declares it.
type RouteEntry struct {
	Module string       `json:"module"`
	Route  module.Route `json:"route"`
}

// ComponentEntry is a component together with the module that owns it.
type ComponentEntry struct {
	Module    string           `json:"module"`
	Component module.Component `json:"component"`
}

// Routes returns every registered route, sorted by path.
func (r *Registry) Routes() []RouteEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []RouteEntry
	for id, d := range r.modules {
		for _, route := range d.Clone().Routes {
			entries = append(entries, RouteEntry{Module: id, Route: route})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Route.Path < entries[j].Route.Path
	})
	return entries
}

// Components returns every registered component, sorted by id.
func (r *Registry) Components() []ComponentEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []ComponentEntry
	for id, d := range r.modules {
		for _, c := range d.Clone().Components {
			entries = append(entries, ComponentEntry{Module: id, Component: c})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Component.ID < entries[j].Component.ID
	})
	return entries
}

// othersLocked returns the descriptors of every module except id, in id order.
func (r *Registry) othersLocked(id string) []module.Descriptor {
	others := make([]module.Descriptor, 0, len(r.modules))
	for _, other := range r.sortedIDsLocked() {
		if other != id {
			others = append(others, r.modules[other])
		}
	}
	return others
}

func (r *Registry) sortedIDsLocked() []string {
	ids := make([]string, 0, len(r.modules))
	for id := range r.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) syncIsolationLocked(d module.Descriptor) {
	switch {
	case d.Settings.Isolated && !r.isolation.IsIsolated(d.ID):
		r.isolation.Create(d.ID)
	case !d.Settings.Isolated && r.isolation.IsIsolated(d.ID):
		r.isolation.Remove(d.ID)
	}
}
