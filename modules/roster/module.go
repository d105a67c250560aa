package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/artpar/carehub/core/hooks"
	"github.com/artpar/carehub/core/module"
	"github.com/artpar/carehub/core/registry"
	"github.com/artpar/carehub/modules/people"
	"github.com/rs/zerolog"
)

// ModuleID is the registry id of the roster module.
const ModuleID = "roster"

// Module wires the roster into a registry.
type Module struct {
	roster *Roster
	logger zerolog.Logger
	now    func() time.Time
}

// New creates the roster module with an empty roster.
func New(logger zerolog.Logger) *Module {
	return &Module{
		roster: NewRoster(nil),
		logger: logger.With().Str("module", ModuleID).Logger(),
		now:    time.Now,
	}
}

// Roster returns the live instance.
func (m *Module) Roster() *Roster {
	return m.roster
}

// Descriptor returns the roster module descriptor.
func (m *Module) Descriptor() module.Descriptor {
	return module.MustNew(module.Definition{
		ID:           ModuleID,
		Name:         "Roster",
		Description:  "Shift planning for care staff",
		Author:       "carehub",
		Dependencies: []string{people.ModuleID},
		Routes: []module.Route{
			{Path: "/roster", Component: "roster-calendar", Layout: "wide"},
			{Path: "/roster/shifts", Component: "roster-shifts"},
		},
		Components: []module.Component{
			{ID: "roster-calendar", Name: "Roster calendar", Kind: module.KindPage},
			{ID: "roster-shifts", Name: "Shifts", Kind: module.KindPage},
			{ID: "roster-assign", Name: "Assign shift", Kind: module.KindDialog, Dependencies: []string{"people-list"}},
		},
		Hooks: []module.Hook{
			{ID: "roster-after-save", Name: hooks.AfterSave, Kind: module.HookAfter},
			{ID: "roster-after-delete", Name: hooks.AfterDelete, Kind: module.HookAfter},
		},
		Permissions: module.Permissions{
			View:   []string{"carer", "nurse", "manager", "admin"},
			Create: []string{"manager", "admin"},
			Edit:   []string{"manager", "admin"},
			Delete: []string{"manager", "admin"},
			Admin:  []string{"admin"},
		},
	})
}

// Register adds the module to reg, binds the roster to the people directory
// when one is loaded, and subscribes to directory changes.
func (m *Module) Register(reg *registry.Registry) error {
	if err := reg.Register(m.Descriptor()); err != nil {
		return fmt.Errorf("register %s: %w", ModuleID, err)
	}

	if inst, ok := reg.GetInstance(people.ModuleID); ok {
		if staff, ok := inst.(Staff); ok {
			m.roster.SetStaff(staff)
		}
	} else {
		m.logger.Warn().
			Strs("missing", reg.MissingDependencies(ModuleID)).
			Msg("people directory not loaded, person ids will not be checked")
	}

	if err := reg.LoadInstance(ModuleID, m.roster); err != nil {
		reg.Unregister(ModuleID)
		return fmt.Errorf("load %s instance: %w", ModuleID, err)
	}

	reg.RegisterHook(hooks.AfterSave, ModuleID, m.afterSave)
	reg.RegisterHook(hooks.AfterDelete, ModuleID, m.afterDelete)
	return nil
}

// Unregister removes the module, its instance and its hooks from reg.
func (m *Module) Unregister(reg *registry.Registry) {
	reg.Unregister(ModuleID)
}

// afterSave cancels upcoming shifts of people who are deactivated.
func (m *Module) afterSave(ctx context.Context, args ...any) (any, error) {
	e, ok := hooks.EventFrom(args)
	if !ok || e.Module != people.ModuleID {
		return nil, nil
	}
	p, ok := e.Record.(people.Person)
	if !ok || p.Active {
		return nil, nil
	}

	today := m.now().UTC().Format(dateLayout)
	n := m.roster.DropPerson(p.ID, today)
	if n > 0 {
		m.logger.Info().Str("person", p.ID).Int("shifts", n).Msg("cancelled shifts of inactive person")
	}
	return n, nil
}

// afterDelete removes every shift of people removed from the directory.
func (m *Module) afterDelete(ctx context.Context, args ...any) (any, error) {
	e, ok := hooks.EventFrom(args)
	if !ok || e.Module != people.ModuleID {
		return nil, nil
	}

	n := m.roster.DropPerson(e.RecordID, "")
	if n > 0 {
		m.logger.Info().Str("person", e.RecordID).Int("shifts", n).Msg("removed shifts of deleted person")
	}
	return n, nil
}
