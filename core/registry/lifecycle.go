package registry

// LifecycleState is the position of a module in its lifecycle.
//
//	Unregistered -> Registered -> InstanceLoaded
//	      ^              |              |
//	      +-- Unregister-+--------------+
//
// Disabled modules stay Registered; Enabled is a flag, not a state.
type LifecycleState int

const (
	StateUnregistered LifecycleState = iota
	StateRegistered
	StateInstanceLoaded
)

func (s LifecycleState) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateInstanceLoaded:
		return "instance_loaded"
	default:
		return "unregistered"
	}
}

// MarshalText encodes the state by name.
func (s LifecycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State returns the lifecycle state of id.
func (r *Registry) State(id string) LifecycleState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.modules[id]; !ok {
		return StateUnregistered
	}
	if _, ok := r.instances[id]; ok {
		return StateInstanceLoaded
	}
	return StateRegistered
}
