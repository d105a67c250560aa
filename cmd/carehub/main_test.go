package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artpar/carehub/adapters/http/admin"
	"github.com/artpar/carehub/core/module"
	"github.com/artpar/carehub/core/registry"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func startServer(t *testing.T) *registry.Registry {
	t.Helper()

	reg := registry.New(registry.WithLogger(zerolog.Nop()))
	for _, def := range []module.Definition{
		{ID: "people", Name: "People", Routes: []module.Route{{Path: "/people", Component: "people-list"}}},
		{ID: "roster", Name: "Roster", Dependencies: []string{"people", "training"}},
	} {
		if err := reg.Register(module.MustNew(def)); err != nil {
			t.Fatalf("Register(%s): %v", def.ID, err)
		}
	}

	r := chi.NewRouter()
	r.Mount("/admin", admin.NewHandler(admin.Deps{Registry: reg, Logger: zerolog.Nop()}).Router())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	serverURL = srv.URL
	return reg
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--server", serverURL))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestModulesList(t *testing.T) {
	startServer(t)

	out, err := run(t, "modules", "list")
	if err != nil {
		t.Fatalf("modules list error: %v", err)
	}
	for _, want := range []string{"ID", "people", "roster", "people,training"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestModulesValidate(t *testing.T) {
	startServer(t)

	out, err := run(t, "modules", "validate", "people")
	if err != nil || !strings.Contains(out, "dependencies OK") {
		t.Errorf("validate people = %q, %v", out, err)
	}

	out, err = run(t, "modules", "validate", "roster")
	if err == nil {
		t.Error("validate roster should fail")
	}
	if !strings.Contains(out, "training") {
		t.Errorf("output should name the missing dependency:\n%s", out)
	}
}

func TestModulesDisable(t *testing.T) {
	reg := startServer(t)

	if _, err := run(t, "modules", "disable", "roster"); err != nil {
		t.Fatalf("disable error: %v", err)
	}
	if d, _ := reg.Get("roster"); d.Settings.Enabled {
		t.Error("roster still enabled")
	}
}

func TestBackupExportRestore(t *testing.T) {
	reg := startServer(t)
	file := filepath.Join(t.TempDir(), "people.json")

	if _, err := run(t, "backup", "export", "people", "-o", file); err != nil {
		t.Fatalf("export error: %v", err)
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}

	reg.UpdateSettings("people", module.SettingsPatch{Enabled: module.Bool(false)})

	out, err := run(t, "backup", "restore", file)
	if err != nil {
		t.Fatalf("restore error: %v", err)
	}
	if !strings.Contains(out, "people restored") {
		t.Errorf("output = %q", out)
	}
	if d, _ := reg.Get("people"); !d.Settings.Enabled {
		t.Error("restore did not bring back enabled")
	}
}

func TestModulesGet_NotFound(t *testing.T) {
	startServer(t)

	if _, err := run(t, "modules", "get", "ghost"); err == nil {
		t.Error("expected error for unknown module")
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.Contains(out, "carehub dev") {
		t.Errorf("output = %q", out)
	}
}
