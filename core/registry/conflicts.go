package registry

import (
	"fmt"
	"strings"

	"github.com/artpar/carehub/core/module"
)

// ConflictError is returned by Register when a module collides with
// modules already registered. Conflicts holds one message per collision.
type ConflictError struct {
	Module    string
	Conflicts []string
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("module %q conflicts detected:\n  - %s", e.Module, strings.Join(e.Conflicts, "\n  - "))
}

// HasConflicts returns true if there are any conflicts.
func (e *ConflictError) HasConflicts() bool {
	return len(e.Conflicts) > 0
}

// DetectConflicts compares the candidate's route paths and component ids
// against every other descriptor. Descriptors sharing the candidate's id are
// skipped, so a module never conflicts with a prior version of itself.
// It returns one message per collision and an empty slice if there are none.
func DetectConflicts(candidate module.Descriptor, existing []module.Descriptor) []string {
	conflicts := []string{}

	for _, other := range existing {
		if other.ID == candidate.ID {
			continue
		}

		for _, route := range candidate.Routes {
			for _, taken := range other.Routes {
				if route.Path == taken.Path {
					conflicts = append(conflicts, fmt.Sprintf("Route conflict: %s", route.Path))
				}
			}
		}

		for _, comp := range candidate.Components {
			for _, taken := range other.Components {
				if comp.ID == taken.ID {
					conflicts = append(conflicts, fmt.Sprintf("Component conflict: %s", comp.ID))
				}
			}
		}
	}

	return conflicts
}
