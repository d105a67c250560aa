package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/artpar/carehub/core/module"
)

// Helper function to create a simple test module
func makeTestModule(id string, routes []string, components []string, deps ...string) module.Descriptor {
	def := module.Definition{ID: id, Dependencies: deps}
	for _, p := range routes {
		def.Routes = append(def.Routes, module.Route{Path: p, Component: id + "-page"})
	}
	for _, c := range components {
		def.Components = append(def.Components, module.Component{ID: c, Name: c, Kind: module.KindPage})
	}
	return module.MustNew(def)
}

type recordingMetrics struct {
	mu           sync.Mutex
	registered   []string
	unregistered []string
	conflicts    map[string]int
	last         Stats
}

func (m *recordingMetrics) ModuleRegistered(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = append(m.registered, id)
}

func (m *recordingMetrics) ModuleUnregistered(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregistered = append(m.unregistered, id)
}

func (m *recordingMetrics) ConflictDetected(id string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts == nil {
		m.conflicts = make(map[string]int)
	}
	m.conflicts[id] += n
}

func (m *recordingMetrics) StatsChanged(s Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = s
}

func TestNew(t *testing.T) {
	r := New()
	if r == nil {
		t.Fatal("New() returned nil")
	}
	if r.modules == nil {
		t.Error("modules map not initialized")
	}
	if r.instances == nil {
		t.Error("instances map not initialized")
	}
	if r.hooks == nil {
		t.Error("hook dispatcher not initialized")
	}
}

func TestRegistry_Register(t *testing.T) {
	r := New()
	mod := makeTestModule("finance", []string{"/finance"}, []string{"finance-page"})

	if err := r.Register(mod); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, ok := r.Get("finance")
	if !ok {
		t.Fatal("Get() should find registered module")
	}
	if got.ID != "finance" {
		t.Errorf("Get().ID = %s, want finance", got.ID)
	}
	if !r.IsIsolated("finance") {
		t.Error("default settings should create an isolation entry")
	}
	if r.State("finance") != StateRegistered {
		t.Errorf("State() = %s, want registered", r.State("finance"))
	}
}

func TestRegistry_Register_EmptyID(t *testing.T) {
	r := New()

	err := r.Register(module.Descriptor{})
	if !errors.Is(err, ErrInvalidModule) {
		t.Fatalf("Register() error = %v, want ErrInvalidModule", err)
	}
	if len(r.GetAll()) != 0 {
		t.Error("invalid module should not be stored")
	}
}

func TestRegistry_Register_DuplicateID(t *testing.T) {
	r := New()
	mod := makeTestModule("finance", []string{"/finance"}, nil)

	if err := r.Register(mod); err != nil {
		t.Fatalf("First Register() error = %v", err)
	}

	err := r.Register(mod)
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("Second Register() error = %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegistry_Register_RouteConflict(t *testing.T) {
	metrics := &recordingMetrics{}
	r := New(WithMetrics(metrics))

	finance := makeTestModule("finance", []string{"/finance"}, []string{"finance-page"})
	roster := makeTestModule("roster", []string{"/finance"}, []string{"roster-page"})

	if err := r.Register(finance); err != nil {
		t.Fatalf("Register(finance) error = %v", err)
	}

	err := r.Register(roster)
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("Register(roster) error = %v, want *ConflictError", err)
	}
	if !strings.Contains(err.Error(), "/finance") {
		t.Errorf("conflict message %q should mention /finance", err.Error())
	}
	if !conflictErr.HasConflicts() || conflictErr.Conflicts[0] != "Route conflict: /finance" {
		t.Errorf("Conflicts = %v", conflictErr.Conflicts)
	}

	all := r.GetAll()
	if len(all) != 1 {
		t.Fatalf("GetAll() length = %d, want 1", len(all))
	}
	if all[0].ID != "finance" || all[0].Routes[0].Path != "/finance" {
		t.Errorf("existing module changed: %+v", all[0])
	}
	if r.IsIsolated("roster") {
		t.Error("rejected module must not get an isolation entry")
	}
	if metrics.conflicts["roster"] != 1 {
		t.Errorf("conflict metric = %v, want roster=1", metrics.conflicts)
	}
}

func TestRegistry_Register_ReportsEveryConflict(t *testing.T) {
	r := New()

	if err := r.Register(makeTestModule("people", []string{"/people", "/staff"}, []string{"people-list"})); err != nil {
		t.Fatal(err)
	}

	err := r.Register(makeTestModule("hr", []string{"/staff", "/people", "/hr"}, []string{"people-list", "hr-page"}))
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("Register() error = %v, want *ConflictError", err)
	}

	want := []string{
		"Route conflict: /staff",
		"Route conflict: /people",
		"Component conflict: people-list",
	}
	if len(conflictErr.Conflicts) != len(want) {
		t.Fatalf("Conflicts = %v, want %v", conflictErr.Conflicts, want)
	}
	for i := range want {
		if conflictErr.Conflicts[i] != want[i] {
			t.Errorf("Conflicts[%d] = %q, want %q", i, conflictErr.Conflicts[i], want[i])
		}
	}
}

func TestRegistry_Register_ComponentConflict(t *testing.T) {
	r := New()

	if err := r.Register(makeTestModule("finance", []string{"/finance"}, []string{"shared-dialog"})); err != nil {
		t.Fatal(err)
	}

	err := r.Register(makeTestModule("roster", []string{"/roster"}, []string{"shared-dialog"}))
	if err == nil || !strings.Contains(err.Error(), "Component conflict: shared-dialog") {
		t.Fatalf("Register() error = %v, want component conflict", err)
	}
}

func TestRegistry_Register_Concurrent(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every module claims the same route; exactly one may win.
			id := "module" + strings.Repeat("x", i%5) + string(rune('a'+i%26))
			if err := r.Register(makeTestModule(id, []string{"/shared"}, nil)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("successful registrations = %d, want 1", succeeded)
	}
	if n := len(r.GetAll()); n != 1 {
		t.Errorf("GetAll() length = %d, want 1", n)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	metrics := &recordingMetrics{}
	r := New(WithMetrics(metrics))

	if err := r.Register(makeTestModule("finance", []string{"/finance"}, nil)); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(makeTestModule("roster", []string{"/roster"}, nil)); err != nil {
		t.Fatal(err)
	}
	if err := r.LoadInstance("finance", &struct{ Balance int }{10}); err != nil {
		t.Fatal(err)
	}

	r.RegisterHook("afterSave", "finance", func(ctx context.Context, args ...any) (any, error) {
		return "finance", nil
	})
	r.RegisterHook("afterSave", "roster", func(ctx context.Context, args ...any) (any, error) {
		return "roster", nil
	})
	r.RegisterHook("afterSave", "", func(ctx context.Context, args ...any) (any, error) {
		return "global", nil
	})

	r.Unregister("finance")

	if _, ok := r.Get("finance"); ok {
		t.Error("Get() should not find unregistered module")
	}
	if _, ok := r.GetInstance("finance"); ok {
		t.Error("GetInstance() should be empty after unregister")
	}
	if r.IsIsolated("finance") {
		t.Error("isolation entry should be removed")
	}
	if r.State("finance") != StateUnregistered {
		t.Errorf("State() = %s, want unregistered", r.State("finance"))
	}

	results := r.CallHook(context.Background(), "afterSave")
	if len(results) != 2 || results[0] != "roster" || results[1] != "global" {
		t.Errorf("CallHook() = %v, want [roster global]", results)
	}

	if len(metrics.unregistered) != 1 || metrics.unregistered[0] != "finance" {
		t.Errorf("unregistered metric = %v", metrics.unregistered)
	}
	if metrics.last.TotalModules != 1 {
		t.Errorf("last stats TotalModules = %d, want 1", metrics.last.TotalModules)
	}
}

func TestRegistry_Unregister_NotFound(t *testing.T) {
	r := New()
	r.RegisterHook("x", "", func(ctx context.Context, args ...any) (any, error) { return 1, nil })

	r.Unregister("nonexistent")

	if len(r.CallHook(context.Background(), "x")) != 1 {
		t.Error("unregistering unknown module must not touch hooks")
	}
}

func TestRegistry_Unregister_FreesRoutes(t *testing.T) {
	r := New()

	if err := r.Register(makeTestModule("finance", []string{"/finance"}, []string{"ledger"})); err != nil {
		t.Fatal(err)
	}
	r.Unregister("finance")

	if err := r.Register(makeTestModule("billing", []string{"/finance"}, []string{"ledger"})); err != nil {
		t.Errorf("Register() after unregister error = %v", err)
	}
}

func TestRegistry_Get_NotFound(t *testing.T) {
	r := New()

	if _, ok := r.Get("nonexistent"); ok {
		t.Error("Get() should return false for non-existent module")
	}
	if _, ok := r.GetInstance("nonexistent"); ok {
		t.Error("GetInstance() should return false for non-existent module")
	}
}

func TestRegistry_Get_ReturnsCopy(t *testing.T) {
	r := New()
	if err := r.Register(makeTestModule("finance", []string{"/finance"}, nil)); err != nil {
		t.Fatal(err)
	}

	d, _ := r.Get("finance")
	d.Routes[0].Path = "/mutated"
	d.Settings.Enabled = false

	again, _ := r.Get("finance")
	if again.Routes[0].Path != "/finance" || !again.Settings.Enabled {
		t.Error("Get() must not expose registry state")
	}
}

func TestRegistry_GetAll_Sorted(t *testing.T) {
	r := New()
	for _, id := range []string{"roster", "finance", "people"} {
		if err := r.Register(makeTestModule(id, nil, nil)); err != nil {
			t.Fatalf("Register(%s) error = %v", id, err)
		}
	}

	all := r.GetAll()
	if len(all) != 3 {
		t.Fatalf("GetAll() returned %d modules, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Error("GetAll() should be sorted by id")
		}
	}
}

func TestRegistry_GetEnabledAndIsolated(t *testing.T) {
	r := New()

	a := makeTestModule("a", nil, nil)
	b := makeTestModule("b", nil, nil)
	b.Settings.Enabled = false
	c := makeTestModule("c", nil, nil)
	c.Settings.Isolated = false

	for _, d := range []module.Descriptor{a, b, c} {
		if err := r.Register(d); err != nil {
			t.Fatal(err)
		}
	}

	enabled := r.GetEnabled()
	if len(enabled) != 2 || enabled[0].ID != "a" || enabled[1].ID != "c" {
		t.Errorf("GetEnabled() = %v, want [a c]", ids(enabled))
	}

	isolated := r.GetIsolated()
	if len(isolated) != 2 || isolated[0].ID != "a" || isolated[1].ID != "b" {
		t.Errorf("GetIsolated() = %v, want [a b]", ids(isolated))
	}

	// Disabled modules remain registered and queryable.
	if _, ok := r.Get("b"); !ok {
		t.Error("disabled module should still be registered")
	}
}

func ids(ds []module.Descriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.ID
	}
	return out
}

func TestRegistry_LoadInstance(t *testing.T) {
	r := New()
	if err := r.Register(makeTestModule("finance", nil, nil)); err != nil {
		t.Fatal(err)
	}

	ledger := &struct{ Entries []int }{}
	if err := r.LoadInstance("finance", ledger); err != nil {
		t.Fatalf("LoadInstance() error = %v", err)
	}

	got, ok := r.GetInstance("finance")
	if !ok || got != ledger {
		t.Error("GetInstance() should return the loaded instance")
	}
	if r.State("finance") != StateInstanceLoaded {
		t.Errorf("State() = %s, want instance_loaded", r.State("finance"))
	}
}

func TestRegistry_LoadInstance_RequiresDescriptor(t *testing.T) {
	r := New()

	err := r.LoadInstance("ghost", struct{}{})
	if !errors.Is(err, ErrNotRegistered) {
		t.Errorf("LoadInstance() error = %v, want ErrNotRegistered", err)
	}
	if err := r.LoadInstance("ghost", nil); !errors.Is(err, ErrNilInstance) {
		t.Errorf("LoadInstance(nil) error = %v, want ErrNilInstance", err)
	}
}

func TestRegistry_UpdateSettings(t *testing.T) {
	r := New()
	if err := r.Register(makeTestModule("finance", nil, nil)); err != nil {
		t.Fatal(err)
	}

	if !r.UpdateSettings("finance", module.SettingsPatch{Enabled: module.Bool(false)}) {
		t.Fatal("UpdateSettings() should return true for known module")
	}

	d, _ := r.Get("finance")
	if d.Settings.Enabled {
		t.Error("Enabled should be false")
	}
	if !d.Settings.Isolated || !d.Settings.Backup {
		t.Error("unpatched settings should be kept")
	}

	if r.UpdateSettings("unknown", module.SettingsPatch{Enabled: module.Bool(true)}) {
		t.Error("UpdateSettings() should return false for unknown module")
	}
}

func TestRegistry_UpdateSettings_Isolation(t *testing.T) {
	r := New()
	if err := r.Register(makeTestModule("finance", nil, nil)); err != nil {
		t.Fatal(err)
	}

	r.UpdateSettings("finance", module.SettingsPatch{Isolated: module.Bool(false)})
	if r.IsIsolated("finance") {
		t.Error("isolation entry should be removed when Isolated is cleared")
	}
	if r.GetStats().IsolatedModules != 0 {
		t.Error("IsolatedModules should be 0")
	}

	r.UpdateSettings("finance", module.SettingsPatch{Isolated: module.Bool(true)})
	if !r.IsIsolated("finance") {
		t.Error("isolation entry should be created when Isolated is set")
	}
}

func TestRegistry_CheckPermission(t *testing.T) {
	r := New()
	d := makeTestModule("finance", nil, nil)
	d.Permissions = module.Permissions{
		View: []string{module.Wildcard},
		Edit: []string{"manager", "admin"},
	}
	if err := r.Register(d); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id     string
		action module.Action
		role   string
		want   bool
	}{
		{"finance", module.ActionView, "carer", true},
		{"finance", module.ActionEdit, "manager", true},
		{"finance", module.ActionEdit, "carer", false},
		{"finance", module.ActionDelete, "admin", false},
		{"unknown", module.ActionView, "admin", false},
	}

	for _, tt := range tests {
		if got := r.CheckPermission(tt.id, tt.action, tt.role); got != tt.want {
			t.Errorf("CheckPermission(%s, %s, %s) = %v, want %v", tt.id, tt.action, tt.role, got, tt.want)
		}
	}
}

func TestRegistry_GetStats(t *testing.T) {
	r := New()

	x := makeTestModule("x", []string{"/x", "/x/detail"}, []string{"x1", "x2", "x3"})
	y := makeTestModule("y", []string{"/y"}, []string{"y1"})
	y.Settings.Isolated = false

	if err := r.Register(x); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(y); err != nil {
		t.Fatal(err)
	}

	r.RegisterHook("afterSave", "x", func(ctx context.Context, args ...any) (any, error) { return nil, nil })
	r.RegisterHook("afterSave", "y", func(ctx context.Context, args ...any) (any, error) { return nil, nil })
	r.RegisterHook("beforeDelete", "", func(ctx context.Context, args ...any) (any, error) { return nil, nil })

	stats := r.GetStats()
	want := Stats{
		TotalModules:    2,
		EnabledModules:  2,
		IsolatedModules: 1,
		TotalRoutes:     3,
		TotalComponents: 4,
		TotalHooks:      2,
	}
	if stats != want {
		t.Errorf("GetStats() = %+v, want %+v", stats, want)
	}
}

func TestRegistry_RoutesAndComponents(t *testing.T) {
	r := New()
	if err := r.Register(makeTestModule("roster", []string{"/roster"}, []string{"roster-page"})); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(makeTestModule("finance", []string{"/finance", "/finance/invoices"}, []string{"finance-page"})); err != nil {
		t.Fatal(err)
	}

	routes := r.Routes()
	if len(routes) != 3 {
		t.Fatalf("Routes() length = %d, want 3", len(routes))
	}
	if routes[0].Route.Path != "/finance" || routes[0].Module != "finance" {
		t.Errorf("routes[0] = %+v", routes[0])
	}
	if routes[2].Route.Path != "/roster" || routes[2].Module != "roster" {
		t.Errorf("routes[2] = %+v", routes[2])
	}

	components := r.Components()
	if len(components) != 2 || components[0].Component.ID != "finance-page" {
		t.Errorf("Components() = %+v", components)
	}
}

func TestRegistry_UnregisterHook(t *testing.T) {
	r := New()
	h := r.RegisterHook("x", "", func(ctx context.Context, args ...any) (any, error) { return 1, nil })

	if !r.UnregisterHook("x", h) {
		t.Fatal("UnregisterHook() should succeed")
	}
	if got := r.CallHook(context.Background(), "x"); len(got) != 0 {
		t.Errorf("CallHook() = %v, want empty", got)
	}
}

func TestRegistry_CallHook_Scenario(t *testing.T) {
	r := New()
	r.RegisterHook("afterSave", "finance", func(ctx context.Context, args ...any) (any, error) {
		return nil, errors.New("ledger locked")
	})
	r.RegisterHook("afterSave", "roster", func(ctx context.Context, args ...any) (any, error) {
		return "ok", nil
	})

	results := r.CallHook(context.Background(), "afterSave")
	if len(results) != 2 || results[0] != nil || results[1] != "ok" {
		t.Errorf("CallHook() = %v, want [<nil> ok]", results)
	}
}

func TestLifecycleState_String(t *testing.T) {
	tests := map[LifecycleState]string{
		StateUnregistered:   "unregistered",
		StateRegistered:     "registered",
		StateInstanceLoaded: "instance_loaded",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("String() = %s, want %s", s.String(), want)
		}
		text, _ := s.MarshalText()
		if string(text) != want {
			t.Errorf("MarshalText() = %s, want %s", text, want)
		}
	}
}

func TestRegistry_Register_AnyNonEmptyID(t *testing.T) {
	r := New()

	if err := r.Register(module.Descriptor{ID: "Finance"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, ok := r.Get("Finance"); !ok {
		t.Error("Get(Finance) should find the module")
	}
	if err := r.Register(module.Descriptor{ID: "Finance"}); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("second Register() error = %v, want ErrAlreadyRegistered", err)
	}
}
