package registry

// Stats summarizes the registry for admin screens.
type Stats struct {
	TotalModules    int `json:"totalModules"`
	EnabledModules  int `json:"enabledModules"`
	IsolatedModules int `json:"isolatedModules"`
	TotalRoutes     int `json:"totalRoutes"`
	TotalComponents int `json:"totalComponents"`
	// TotalHooks counts distinct hook names with at least one registration.
	TotalHooks int `json:"totalHooks"`
}

// GetStats returns current registry counts.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statsLocked()
}

func (r *Registry) statsLocked() Stats {
	s := Stats{
		TotalModules:    len(r.modules),
		IsolatedModules: r.isolation.Count(),
		TotalHooks:      len(r.hooks.Names()),
	}
	for _, d := range r.modules {
		if d.Settings.Enabled {
			s.EnabledModules++
		}
		s.TotalRoutes += len(d.Routes)
		s.TotalComponents += len(d.Components)
	}
	return s
}
