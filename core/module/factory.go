package module

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultVersion is assigned to definitions that do not declare a version.
const DefaultVersion = "1.0.0"

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Definition is the input to New. It mirrors Descriptor, except that settings
// are given as a patch over DefaultSettings.
type Definition struct {
	ID           string         `json:"id" yaml:"id" toml:"id"`
	Name         string         `json:"name" yaml:"name" toml:"name"`
	Version      string         `json:"version" yaml:"version" toml:"version"`
	Description  string         `json:"description" yaml:"description" toml:"description"`
	Author       string         `json:"author" yaml:"author" toml:"author"`
	Dependencies []string       `json:"dependencies" yaml:"dependencies" toml:"dependencies"`
	Routes       []Route        `json:"routes" yaml:"routes" toml:"routes"`
	Components   []Component    `json:"components" yaml:"components" toml:"components"`
	Hooks        []Hook         `json:"hooks" yaml:"hooks" toml:"hooks"`
	Permissions  Permissions    `json:"permissions" yaml:"permissions" toml:"permissions"`
	Settings     SettingsPatch  `json:"settings" yaml:"settings" toml:"settings"`
	Data         map[string]any `json:"data" yaml:"data" toml:"data"`
}

// ValidationError lists every problem found in a definition.
type ValidationError struct {
	Module   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid module %q:\n  - %s", e.Module, strings.Join(e.Problems, "\n  - "))
}

// New builds a defaulted, validated descriptor from a definition.
func New(def Definition) (Descriptor, error) {
	d := Descriptor{
		ID:           strings.TrimSpace(def.ID),
		Name:         def.Name,
		Version:      def.Version,
		Description:  def.Description,
		Author:       def.Author,
		Dependencies: def.Dependencies,
		Routes:       def.Routes,
		Components:   def.Components,
		Hooks:        def.Hooks,
		Permissions:  def.Permissions,
		Settings:     DefaultSettings().Apply(def.Settings),
		Data:         def.Data,
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	if d.Version == "" {
		d.Version = DefaultVersion
	}
	if d.Data == nil {
		d.Data = make(map[string]any)
	}

	// Clone normalizes nil slices to empty ones and detaches caller-owned memory.
	d = d.Clone()

	problems := validate(d)
	if d.ID != "" && !idPattern.MatchString(d.ID) {
		problems = append(problems, fmt.Sprintf("id %q must match %s", d.ID, idPattern.String()))
	}
	if len(problems) > 0 {
		return Descriptor{}, &ValidationError{Module: d.ID, Problems: problems}
	}
	return d, nil
}

// MustNew is like New but panics on an invalid definition.
// It is meant for built-in modules whose definitions are fixed at compile time.
func MustNew(def Definition) Descriptor {
	d, err := New(def)
	if err != nil {
		panic(err)
	}
	return d
}

// Validate checks a descriptor for internal consistency. Cross-module
// conflicts are the registry's concern and are not checked here, and neither
// are dependencies: a module listing itself is a cycle that HasCycle reports.
// The id style enforced by New is not required of hand-built descriptors.
func Validate(d Descriptor) error {
	if problems := validate(d); len(problems) > 0 {
		return &ValidationError{Module: d.ID, Problems: problems}
	}
	return nil
}

func validate(d Descriptor) []string {
	var problems []string

	if d.ID == "" {
		problems = append(problems, "id is required")
	}

	for _, dep := range d.Dependencies {
		if dep == "" {
			problems = append(problems, "dependency id cannot be empty")
		}
	}

	paths := make(map[string]bool, len(d.Routes))
	for i, r := range d.Routes {
		if !strings.HasPrefix(r.Path, "/") {
			problems = append(problems, fmt.Sprintf("routes[%d]: path %q must start with /", i, r.Path))
		}
		if paths[r.Path] {
			problems = append(problems, fmt.Sprintf("routes[%d]: duplicate path %q", i, r.Path))
		}
		paths[r.Path] = true
	}

	components := make(map[string]bool, len(d.Components))
	for i, c := range d.Components {
		if c.ID == "" {
			problems = append(problems, fmt.Sprintf("components[%d]: id is required", i))
		}
		if !c.Kind.Valid() {
			problems = append(problems, fmt.Sprintf("components[%d]: unknown kind %q", i, c.Kind))
		}
		if components[c.ID] {
			problems = append(problems, fmt.Sprintf("components[%d]: duplicate id %q", i, c.ID))
		}
		components[c.ID] = true
	}

	for i, h := range d.Hooks {
		if h.Name == "" {
			problems = append(problems, fmt.Sprintf("hooks[%d]: name is required", i))
		}
		if !h.Kind.Valid() {
			problems = append(problems, fmt.Sprintf("hooks[%d]: unknown kind %q", i, h.Kind))
		}
	}

	return problems
}
