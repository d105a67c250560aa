package registry

import "sort"

// IsolationManager tracks which modules are logically isolated. Each isolated
// module owns a set that contains only itself. The marker is advisory: it does
// not change how instances are stored or how hooks fire.
//
// IsolationManager is not safe for concurrent use; the Registry serializes
// access to it.
type IsolationManager struct {
	layers map[string]map[string]struct{}
}

// NewIsolationManager creates an empty manager.
func NewIsolationManager() *IsolationManager {
	return &IsolationManager{layers: make(map[string]map[string]struct{})}
}

// Create makes id isolated.
func (m *IsolationManager) Create(id string) {
	m.layers[id] = map[string]struct{}{id: {}}
}

// Remove drops the isolation entry of id.
func (m *IsolationManager) Remove(id string) {
	delete(m.layers, id)
}

// IsIsolated reports whether id has an isolation entry.
func (m *IsolationManager) IsIsolated(id string) bool {
	_, ok := m.layers[id][id]
	return ok
}

// Members returns the module ids in id's isolation set, or nil.
func (m *IsolationManager) Members(id string) []string {
	layer, ok := m.layers[id]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(layer))
	for member := range layer {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}

// Count returns the number of isolation entries.
func (m *IsolationManager) Count() int {
	return len(m.layers)
}
