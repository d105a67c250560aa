package module

import "maps"

// Descriptor is the static declaration of a module's identity and capabilities.
type Descriptor struct {
	// ID is the unique key of the module (e.g., "finance", "roster").
	ID string `json:"id" yaml:"id" toml:"id"`

	// Name is the human-readable module name.
	Name string `json:"name" yaml:"name" toml:"name"`

	Version     string `json:"version" yaml:"version" toml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty" toml:"author,omitempty"`

	// Dependencies lists module ids this module expects to be present.
	// They are checked on demand, never at registration.
	Dependencies []string `json:"dependencies" yaml:"dependencies,omitempty" toml:"dependencies,omitempty"`

	// Routes must have paths unique across all registered modules.
	Routes []Route `json:"routes" yaml:"routes,omitempty" toml:"routes,omitempty"`

	// Components must have ids unique across all registered modules.
	Components []Component `json:"components" yaml:"components,omitempty" toml:"components,omitempty"`

	// Hooks are declarative only; callbacks are registered on the dispatcher.
	Hooks []Hook `json:"hooks" yaml:"hooks,omitempty" toml:"hooks,omitempty"`

	Permissions Permissions `json:"permissions" yaml:"permissions,omitempty" toml:"permissions,omitempty"`
	Settings    Settings    `json:"settings" yaml:"settings,omitempty" toml:"settings,omitempty"`

	// Data is an opaque bag of module-specific static configuration.
	Data map[string]any `json:"data" yaml:"data,omitempty" toml:"data,omitempty"`
}

// Route is a navigable path contributed by a module.
type Route struct {
	Path        string         `json:"path" yaml:"path" toml:"path"`
	Component   string         `json:"component" yaml:"component" toml:"component"`
	Permissions []string       `json:"permissions" yaml:"permissions,omitempty" toml:"permissions,omitempty"`
	Layout      string         `json:"layout,omitempty" yaml:"layout,omitempty" toml:"layout,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty" toml:"metadata,omitempty"`
}

// ComponentKind classifies a UI component.
type ComponentKind string

const (
	KindPage      ComponentKind = "page"
	KindComponent ComponentKind = "component"
	KindDialog    ComponentKind = "dialog"
	KindForm      ComponentKind = "form"
)

// Valid reports whether k is a known component kind.
func (k ComponentKind) Valid() bool {
	switch k {
	case KindPage, KindComponent, KindDialog, KindForm:
		return true
	}
	return false
}

// Component is a UI unit owned by a module.
type Component struct {
	ID           string        `json:"id" yaml:"id" toml:"id"`
	Name         string        `json:"name" yaml:"name" toml:"name"`
	Kind         ComponentKind `json:"kind" yaml:"kind" toml:"kind"`
	Permissions  []string      `json:"permissions" yaml:"permissions,omitempty" toml:"permissions,omitempty"`
	Dependencies []string      `json:"dependencies" yaml:"dependencies,omitempty" toml:"dependencies,omitempty"`
}

// HookKind is the phase a declared hook runs in.
type HookKind string

const (
	HookBefore HookKind = "before"
	HookAfter  HookKind = "after"
	HookError  HookKind = "error"
)

// Valid reports whether k is a known hook kind.
func (k HookKind) Valid() bool {
	switch k {
	case HookBefore, HookAfter, HookError:
		return true
	}
	return false
}

// Hook declares an extension point a module takes part in.
type Hook struct {
	ID          string   `json:"id" yaml:"id" toml:"id"`
	Name        string   `json:"name" yaml:"name" toml:"name"`
	Kind        HookKind `json:"kind" yaml:"kind" toml:"kind"`
	Permissions []string `json:"permissions" yaml:"permissions,omitempty" toml:"permissions,omitempty"`
}

// Clone returns a deep copy of the descriptor.
// Data and Metadata maps are copied one level deep.
func (d Descriptor) Clone() Descriptor {
	c := d
	c.Dependencies = cloneStrings(d.Dependencies)

	c.Routes = make([]Route, len(d.Routes))
	for i, r := range d.Routes {
		r.Permissions = cloneStrings(r.Permissions)
		r.Metadata = cloneMap(r.Metadata)
		c.Routes[i] = r
	}

	c.Components = make([]Component, len(d.Components))
	for i, comp := range d.Components {
		comp.Permissions = cloneStrings(comp.Permissions)
		comp.Dependencies = cloneStrings(comp.Dependencies)
		c.Components[i] = comp
	}

	c.Hooks = make([]Hook, len(d.Hooks))
	for i, h := range d.Hooks {
		h.Permissions = cloneStrings(h.Permissions)
		c.Hooks[i] = h
	}

	c.Permissions = d.Permissions.Clone()
	c.Data = cloneMap(d.Data)
	return c
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	maps.Copy(out, m)
	return out
}
