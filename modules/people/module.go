package people

import (
	"context"
	"fmt"

	"github.com/artpar/carehub/core/hooks"
	"github.com/artpar/carehub/core/module"
	"github.com/artpar/carehub/core/registry"
	"github.com/rs/zerolog"
)

// ModuleID is the registry id of the people module.
const ModuleID = "people"

// Roles are the staff roles the directory accepts.
var Roles = []string{"carer", "nurse", "manager", "admin"}

// Module wires the staff directory into a registry.
type Module struct {
	directory *Directory
	logger    zerolog.Logger
}

// New creates the people module with an empty directory.
func New(logger zerolog.Logger) *Module {
	return &Module{
		directory: NewDirectory(Roles),
		logger:    logger.With().Str("module", ModuleID).Logger(),
	}
}

// Directory returns the live instance.
func (m *Module) Directory() *Directory {
	return m.directory
}

// Descriptor returns the people module descriptor.
func (m *Module) Descriptor() module.Descriptor {
	return module.MustNew(module.Definition{
		ID:          ModuleID,
		Name:        "People",
		Description: "Staff directory",
		Author:      "carehub",
		Routes: []module.Route{
			{Path: "/people", Component: "people-list", Permissions: []string{"manager", "admin"}},
			{Path: "/people/:id", Component: "people-detail", Permissions: []string{"manager", "admin"}},
		},
		Components: []module.Component{
			{ID: "people-list", Name: "Staff list", Kind: module.KindPage},
			{ID: "people-detail", Name: "Staff member", Kind: module.KindPage, Dependencies: []string{"people-form"}},
			{ID: "people-form", Name: "Staff form", Kind: module.KindForm},
		},
		Hooks: []module.Hook{
			{ID: "people-after-save", Name: hooks.AfterSave, Kind: module.HookAfter},
			{ID: "people-after-delete", Name: hooks.AfterDelete, Kind: module.HookAfter},
		},
		Permissions: module.Permissions{
			View:   []string{module.Wildcard},
			Create: []string{"manager", "admin"},
			Edit:   []string{"manager", "admin"},
			Delete: []string{"admin"},
			Admin:  []string{"admin"},
		},
		Data: map[string]any{"roles": append([]string(nil), Roles...)},
	})
}

// Register adds the module and its directory to reg. Directory changes are
// announced through reg's hooks from then on.
func (m *Module) Register(reg *registry.Registry) error {
	if err := reg.Register(m.Descriptor()); err != nil {
		return fmt.Errorf("register %s: %w", ModuleID, err)
	}
	if err := reg.LoadInstance(ModuleID, m.directory); err != nil {
		reg.Unregister(ModuleID)
		return fmt.Errorf("load %s instance: %w", ModuleID, err)
	}

	m.directory.SetNotifier(func(ctx context.Context, hook string, e hooks.Event) {
		results := reg.CallHook(ctx, hook, e)
		m.logger.Debug().
			Str("hook", hook).
			Str("record", e.RecordID).
			Int("callbacks", len(results)).
			Msg("directory change announced")
	})

	m.logger.Info().Int("people", m.directory.Count()).Msg("people module registered")
	return nil
}

// Unregister removes the module from reg and stops announcing changes.
func (m *Module) Unregister(reg *registry.Registry) {
	m.directory.SetNotifier(nil)
	reg.Unregister(ModuleID)
}
