package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MissingDependencyError lists declared dependencies that are not registered.
type MissingDependencyError struct {
	Module  string
	Missing []string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("module %q has missing dependencies: %s", e.Module, strings.Join(e.Missing, ", "))
}

// CircularDependencyError describes a dependency cycle reachable from Module.
// Cycle starts and ends with the same module id.
type CircularDependencyError struct {
	Module string
	Cycle  []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("module %q has circular dependency: %s", e.Module, strings.Join(e.Cycle, " -> "))
}

// MissingDependencies returns the declared dependencies of id that are not
// registered. For an unknown id it returns a single explanatory message.
func (r *Registry) MissingDependencies(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.modules[id]
	if !ok {
		return []string{fmt.Sprintf("module %s not found", id)}
	}

	missing := []string{}
	for _, dep := range d.Dependencies {
		if _, registered := r.modules[dep]; !registered {
			missing = append(missing, dep)
		}
	}
	return missing
}

// HasCycle reports whether a dependency cycle is reachable from id.
// Unregistered dependencies are leaves.
func (r *Registry) HasCycle(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findCycleLocked(id, nil) != nil
}

// findCycleLocked walks the dependency graph depth-first. Each branch gets its
// own copy of path, so a node reached twice through different branches (a
// diamond) is not mistaken for a back-edge.
func (r *Registry) findCycleLocked(id string, path []string) []string {
	if i := slices.Index(path, id); i >= 0 {
		return append(slices.Clone(path[i:]), id)
	}

	d, ok := r.modules[id]
	if !ok {
		return nil
	}

	path = append(slices.Clone(path), id)
	for _, dep := range d.Dependencies {
		if cycle := r.findCycleLocked(dep, path); cycle != nil {
			return cycle
		}
	}
	return nil
}

// ValidateDependencies runs both dependency checks for a registered module.
// It returns a *MissingDependencyError, a *CircularDependencyError, both
// joined, or nil. Registration never calls it.
func (r *Registry) ValidateDependencies(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.modules[id]
	if !ok {
		return fmt.Errorf("validate dependencies: %w: %s", ErrNotRegistered, id)
	}

	var errs []error

	var missing []string
	for _, dep := range d.Dependencies {
		if _, registered := r.modules[dep]; !registered {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		errs = append(errs, &MissingDependencyError{Module: id, Missing: missing})
	}

	if cycle := r.findCycleLocked(id, nil); cycle != nil {
		errs = append(errs, &CircularDependencyError{Module: id, Cycle: cycle})
	}

	return errors.Join(errs...)
}
