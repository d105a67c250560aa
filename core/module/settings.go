package module

// Settings are the runtime flags of a module.
type Settings struct {
	Enabled    bool `json:"enabled" yaml:"enabled" toml:"enabled"`
	AutoLoad   bool `json:"autoLoad" yaml:"auto_load" toml:"auto_load"`
	Isolated   bool `json:"isolated" yaml:"isolated" toml:"isolated"`
	Versioning bool `json:"versioning" yaml:"versioning" toml:"versioning"`
	Backup     bool `json:"backup" yaml:"backup" toml:"backup"`
}

// DefaultSettings returns the settings a new module starts with.
func DefaultSettings() Settings {
	return Settings{
		Enabled:    true,
		AutoLoad:   true,
		Isolated:   true,
		Versioning: true,
		Backup:     true,
	}
}

// SettingsPatch is a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	Enabled    *bool `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	AutoLoad   *bool `json:"autoLoad,omitempty" yaml:"auto_load,omitempty" toml:"auto_load,omitempty"`
	Isolated   *bool `json:"isolated,omitempty" yaml:"isolated,omitempty" toml:"isolated,omitempty"`
	Versioning *bool `json:"versioning,omitempty" yaml:"versioning,omitempty" toml:"versioning,omitempty"`
	Backup     *bool `json:"backup,omitempty" yaml:"backup,omitempty" toml:"backup,omitempty"`
}

// Apply returns s with every non-nil field of p merged in.
func (s Settings) Apply(p SettingsPatch) Settings {
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	if p.AutoLoad != nil {
		s.AutoLoad = *p.AutoLoad
	}
	if p.Isolated != nil {
		s.Isolated = *p.Isolated
	}
	if p.Versioning != nil {
		s.Versioning = *p.Versioning
	}
	if p.Backup != nil {
		s.Backup = *p.Backup
	}
	return s
}

// IsZero reports whether the patch changes nothing.
func (p SettingsPatch) IsZero() bool {
	return p.Enabled == nil && p.AutoLoad == nil && p.Isolated == nil &&
		p.Versioning == nil && p.Backup == nil
}

// Bool returns a pointer to b, for building patches inline.
func Bool(b bool) *bool {
	return &b
}
