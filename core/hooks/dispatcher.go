// Package hooks provides named extension points that modules attach callbacks to.
// A hook failure is contained to the callback that raised it: it is logged with
// the owning module and reported as a nil result, and sibling callbacks still run.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Callback is a function attached to a hook name.
type Callback func(ctx context.Context, args ...any) (any, error)

// HandleID identifies one registration. Go functions are not comparable,
// so registrations are removed by handle rather than by callback identity.
type HandleID string

// Registration is a callback attached to a hook, optionally owned by a module.
// An empty ModuleID marks a global hook that outlives every module.
type Registration struct {
	ID       HandleID
	Hook     string
	ModuleID string
	Callback Callback
}

// ErrTimeout is reported when a callback exceeds the dispatcher timeout.
var ErrTimeout = errors.New("hook callback timed out")

// FailureObserver is notified of every contained callback failure.
type FailureObserver interface {
	HookFailed(hook, moduleID string)
}

// Dispatcher stores hook registrations and invokes them.
type Dispatcher struct {
	mu       sync.RWMutex
	hooks    map[string][]Registration
	logger   zerolog.Logger
	timeout  time.Duration
	observer FailureObserver
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds how long a single callback may run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.timeout = d
	}
}

// WithObserver reports contained failures to o.
func WithObserver(o FailureObserver) Option {
	return func(disp *Dispatcher) {
		disp.observer = o
	}
}

// New creates an empty dispatcher.
func New(logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		hooks:  make(map[string][]Registration),
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetTimeout changes the per-callback bound for subsequent calls.
// Zero disables the bound.
func (d *Dispatcher) SetTimeout(timeout time.Duration) {
	d.mu.Lock()
	d.timeout = timeout
	d.mu.Unlock()
}

// Timeout returns the current per-callback bound.
func (d *Dispatcher) Timeout() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.timeout
}

// Register appends a callback for hook and returns its handle.
func (d *Dispatcher) Register(hook string, cb Callback, moduleID string) HandleID {
	id := HandleID(uuid.NewString())

	d.mu.Lock()
	d.hooks[hook] = append(d.hooks[hook], Registration{
		ID:       id,
		Hook:     hook,
		ModuleID: moduleID,
		Callback: cb,
	})
	d.mu.Unlock()

	d.logger.Debug().
		Str("hook", hook).
		Str("module", moduleID).
		Str("handle", string(id)).
		Msg("hook registered")
	return id
}

// Unregister removes the registration with the given handle.
// It returns false if no such registration exists for hook.
func (d *Dispatcher) Unregister(hook string, id HandleID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs := d.hooks[hook]
	for i, reg := range regs {
		if reg.ID != id {
			continue
		}
		next := make([]Registration, 0, len(regs)-1)
		next = append(next, regs[:i]...)
		next = append(next, regs[i+1:]...)
		d.set(hook, next)
		return true
	}
	return false
}

// RemoveModule drops every registration owned by moduleID and returns how many
// were removed. Global registrations are never touched.
func (d *Dispatcher) RemoveModule(moduleID string) int {
	if moduleID == "" {
		return 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for hook, regs := range d.hooks {
		kept := make([]Registration, 0, len(regs))
		for _, reg := range regs {
			if reg.ModuleID == moduleID {
				removed++
				continue
			}
			kept = append(kept, reg)
		}
		if len(kept) != len(regs) {
			d.set(hook, kept)
		}
	}

	if removed > 0 {
		d.logger.Debug().
			Str("module", moduleID).
			Int("count", removed).
			Msg("module hooks removed")
	}
	return removed
}

// set stores regs for hook, deleting empty entries. Caller holds d.mu.
func (d *Dispatcher) set(hook string, regs []Registration) {
	if len(regs) == 0 {
		delete(d.hooks, hook)
		return
	}
	d.hooks[hook] = regs
}

// Call invokes every callback registered for hook in registration order and
// returns their results. A failed callback contributes nil. The callback list
// is snapshotted first, so callbacks may register or unregister hooks.
func (d *Dispatcher) Call(ctx context.Context, hook string, args ...any) []any {
	d.mu.RLock()
	snapshot := make([]Registration, len(d.hooks[hook]))
	copy(snapshot, d.hooks[hook])
	timeout := d.timeout
	d.mu.RUnlock()

	results := make([]any, len(snapshot))
	for i, reg := range snapshot {
		result, err := d.invoke(ctx, reg, args, timeout)
		if err != nil {
			d.logger.Error().
				Err(err).
				Str("hook", hook).
				Str("module", reg.ModuleID).
				Str("handle", string(reg.ID)).
				Msg("hook callback failed")
			if d.observer != nil {
				d.observer.HookFailed(hook, reg.ModuleID)
			}
			continue
		}
		results[i] = result
	}
	return results
}

func (d *Dispatcher) invoke(ctx context.Context, reg Registration, args []any, timeout time.Duration) (any, error) {
	if timeout <= 0 {
		return safeCall(ctx, reg.Callback, args)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := safeCall(ctx, reg.Callback, args)
		done <- outcome{result, err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}

// safeCall runs cb, turning a panic into an error.
func safeCall(ctx context.Context, cb Callback, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("hook callback panicked: %v", r)
		}
	}()
	return cb(ctx, args...)
}

// Names returns the hook names with at least one registration, sorted.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.hooks))
	for name := range d.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registrations for hook.
func (d *Dispatcher) Count(hook string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.hooks[hook])
}

// Registrations returns a copy of the registrations for hook.
func (d *Dispatcher) Registrations(hook string) []Registration {
	d.mu.RLock()
	defer d.mu.RUnlock()

	regs := make([]Registration, len(d.hooks[hook]))
	copy(regs, d.hooks[hook])
	return regs
}
