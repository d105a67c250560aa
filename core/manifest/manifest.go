// Package manifest loads module descriptors declared in YAML or TOML files.
// Manifest modules are descriptor-only: they declare routes, components and
// permissions but carry no live instance.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/artpar/carehub/core/module"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf returns the manifest format implied by a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	}
	return "", false
}

// Parse decodes a manifest and builds a validated descriptor from it.
func Parse(data []byte, format Format) (module.Descriptor, error) {
	var def module.Definition

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &def); err != nil {
			return module.Descriptor{}, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &def); err != nil {
			return module.Descriptor{}, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return module.Descriptor{}, fmt.Errorf("unsupported manifest format %q", format)
	}

	d, err := module.New(def)
	if err != nil {
		return module.Descriptor{}, fmt.Errorf("validate module %q: %w", def.ID, err)
	}
	return d, nil
}

// ParseFile parses a manifest file, picking the format from its extension.
func ParseFile(path string) (module.Descriptor, error) {
	format, ok := FormatOf(path)
	if !ok {
		return module.Descriptor{}, fmt.Errorf("unsupported manifest file %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return module.Descriptor{}, fmt.Errorf("read file %s: %w", path, err)
	}

	d, err := Parse(data, format)
	if err != nil {
		return module.Descriptor{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ParseDir parses every manifest in dir and its subdirectories, in path order.
// Files with other extensions are skipped.
func ParseDir(dir string) ([]module.Descriptor, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if _, ok := FormatOf(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	sort.Strings(paths)

	descriptors := make([]module.Descriptor, 0, len(paths))
	for _, path := range paths {
		d, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}
