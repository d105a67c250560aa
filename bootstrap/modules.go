package bootstrap

import (
	"context"
	"fmt"
	"sort"

	"github.com/artpar/carehub/config"
	"github.com/artpar/carehub/core/manifest"
	"github.com/artpar/carehub/modules"
)

// loadModules registers the configured built-in modules followed by every
// manifest module. A manifest module that clashes with a registered one is
// skipped with a warning; an unreadable manifest directory fails startup.
func (a *App) loadModules(cfg *config.Config) error {
	known := make(map[string]bool)
	for _, m := range modules.Builtin(a.Logger) {
		id := m.Descriptor().ID
		known[id] = true
		if !cfg.Modules.BuiltinEnabled(id) {
			a.Logger.Debug().Str("module", id).Msg("built-in module disabled by config")
			continue
		}
		if err := m.Register(a.Registry); err != nil {
			return err
		}
		a.modules = append(a.modules, m)
	}

	for _, id := range cfg.Modules.Builtin {
		if !known[id] {
			a.Logger.Warn().Str("module", id).Msg("unknown built-in module in config")
		}
	}

	if dir := cfg.Modules.ManifestDir; dir != "" {
		descriptors, err := manifest.ParseDir(dir)
		if err != nil {
			return fmt.Errorf("manifests: %w", err)
		}
		loaded := 0
		for _, d := range descriptors {
			if err := a.Registry.Register(d); err != nil {
				a.Logger.Warn().Err(err).Str("module", d.ID).Msg("manifest module rejected")
				continue
			}
			loaded++
		}
		a.Logger.Info().Str("dir", dir).Int("count", loaded).Msg("manifest modules loaded")
	}

	for _, d := range a.Registry.GetAll() {
		if missing := a.Registry.MissingDependencies(d.ID); len(missing) > 0 {
			a.Logger.Warn().
				Str("module", d.ID).
				Strs("missing", missing).
				Msg("module has unmet dependencies")
		}
		if a.Registry.HasCycle(d.ID) {
			a.Logger.Warn().Str("module", d.ID).Msg("module is part of a dependency cycle")
		}
	}

	a.Logger.Info().Int("count", len(a.Registry.GetAll())).Msg("modules registered")
	return nil
}

// applyOverrides merges configured settings overrides into registered modules.
func (a *App) applyOverrides(overrides map[string]config.ModuleOverride) {
	ids := make([]string, 0, len(overrides))
	for id := range overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		patch := overrides[id].Patch()
		if patch.IsZero() {
			continue
		}
		if !a.Registry.UpdateSettings(id, patch) {
			a.Logger.Warn().Str("module", id).Msg("override for unregistered module ignored")
			continue
		}
		a.Logger.Info().Str("module", id).Msg("module settings override applied")
	}
}

// saveBackups writes a backup of every module whose backup setting is on.
func (a *App) saveBackups(ctx context.Context) {
	if a.Backups == nil {
		return
	}

	saved := 0
	for _, d := range a.Registry.GetAll() {
		if !d.Settings.Backup {
			continue
		}
		b, err := a.Registry.ExportData(d.ID)
		if err != nil {
			a.Logger.Error().Err(err).Str("module", d.ID).Msg("backup export failed")
			continue
		}
		if _, err := a.Backups.Save(ctx, b); err != nil {
			a.Logger.Error().Err(err).Str("module", d.ID).Msg("backup save failed")
			continue
		}
		saved++
	}
	a.Logger.Info().Int("count", saved).Msg("module backups saved")
}
