package module

import (
	"errors"
	"strings"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	d, err := New(Definition{ID: "finance"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if d.Name != "finance" {
		t.Errorf("Name = %q, want finance", d.Name)
	}
	if d.Version != DefaultVersion {
		t.Errorf("Version = %q, want %q", d.Version, DefaultVersion)
	}
	if d.Settings != DefaultSettings() {
		t.Errorf("Settings = %+v, want defaults", d.Settings)
	}
	if d.Routes == nil || d.Components == nil || d.Hooks == nil || d.Dependencies == nil {
		t.Error("nil slices should be normalized to empty")
	}
	if d.Data == nil {
		t.Error("Data should be initialized")
	}
}

func TestNew_SettingsPatch(t *testing.T) {
	d, err := New(Definition{
		ID:       "people",
		Settings: SettingsPatch{Isolated: Bool(false), Backup: Bool(false)},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if d.Settings.Isolated {
		t.Error("Isolated should be false")
	}
	if d.Settings.Backup {
		t.Error("Backup should be false")
	}
	if !d.Settings.Enabled || !d.Settings.AutoLoad || !d.Settings.Versioning {
		t.Errorf("untouched settings should keep defaults, got %+v", d.Settings)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		problem string
	}{
		{"empty id", Definition{}, "id is required"},
		{"bad id", Definition{ID: "Finance Module"}, "must match"},
		{"relative path", Definition{ID: "a", Routes: []Route{{Path: "finance"}}}, "must start with /"},
		{"duplicate path", Definition{ID: "a", Routes: []Route{{Path: "/a"}, {Path: "/a"}}}, "duplicate path"},
		{"bad kind", Definition{ID: "a", Components: []Component{{ID: "c", Kind: "widget"}}}, "unknown kind"},
		{"duplicate component", Definition{ID: "a", Components: []Component{
			{ID: "c", Kind: KindPage}, {ID: "c", Kind: KindForm},
		}}, "duplicate id"},
		{"hook without name", Definition{ID: "a", Hooks: []Hook{{ID: "h", Kind: HookAfter}}}, "name is required"},
		{"bad hook kind", Definition{ID: "a", Hooks: []Hook{{Name: "h", Kind: "during"}}}, "unknown kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.def)
			if err == nil {
				t.Fatal("New() should fail")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.problem) {
				t.Errorf("error %q should mention %q", err.Error(), tt.problem)
			}
		})
	}
}

func TestMustNew_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNew should panic on invalid definition")
		}
	}()
	MustNew(Definition{})
}

func TestDescriptor_Clone(t *testing.T) {
	d := MustNew(Definition{
		ID:           "finance",
		Dependencies: []string{"people"},
		Routes:       []Route{{Path: "/finance", Permissions: []string{"admin"}}},
		Permissions:  Permissions{View: []string{"staff"}},
		Data:         map[string]any{"currency": "GBP"},
	})

	c := d.Clone()
	c.Dependencies[0] = "other"
	c.Routes[0].Path = "/changed"
	c.Routes[0].Permissions[0] = "nobody"
	c.Permissions.View[0] = "nobody"
	c.Data["currency"] = "EUR"

	if d.Dependencies[0] != "people" {
		t.Error("Clone shares Dependencies")
	}
	if d.Routes[0].Path != "/finance" || d.Routes[0].Permissions[0] != "admin" {
		t.Error("Clone shares Routes")
	}
	if d.Permissions.View[0] != "staff" {
		t.Error("Clone shares Permissions")
	}
	if d.Data["currency"] != "GBP" {
		t.Error("Clone shares Data")
	}
}

func TestPermissions_Allows(t *testing.T) {
	p := Permissions{
		View:   []string{Wildcard},
		Edit:   []string{"manager"},
		Delete: []string{},
	}

	tests := []struct {
		action Action
		role   string
		want   bool
	}{
		{ActionView, "anyone", true},
		{ActionEdit, "manager", true},
		{ActionEdit, "staff", false},
		{ActionDelete, "manager", false},
		{Action("publish"), "manager", false},
	}

	for _, tt := range tests {
		if got := p.Allows(tt.action, tt.role); got != tt.want {
			t.Errorf("Allows(%s, %s) = %v, want %v", tt.action, tt.role, got, tt.want)
		}
	}
}

func TestSettings_Apply(t *testing.T) {
	s := DefaultSettings()

	if got := s.Apply(SettingsPatch{}); got != s {
		t.Errorf("empty patch changed settings: %+v", got)
	}

	got := s.Apply(SettingsPatch{Enabled: Bool(false)})
	if got.Enabled {
		t.Error("Enabled should be false after patch")
	}
	if !got.Isolated {
		t.Error("Isolated should be untouched")
	}

	if !(SettingsPatch{}).IsZero() {
		t.Error("empty patch should be zero")
	}
	if (SettingsPatch{Backup: Bool(true)}).IsZero() {
		t.Error("non-empty patch should not be zero")
	}
}

func TestNew_SelfDependencyAllowed(t *testing.T) {
	d, err := New(Definition{ID: "a", Dependencies: []string{"a"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(d.Dependencies) != 1 || d.Dependencies[0] != "a" {
		t.Errorf("Dependencies = %v, want [a]", d.Dependencies)
	}
}

func TestValidate_IDStyleNotRequired(t *testing.T) {
	if err := Validate(Descriptor{ID: "Finance"}); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
	if _, err := New(Definition{ID: "Finance"}); err == nil {
		t.Error("New() should still reject ids outside the lowercase style")
	}
}
