// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/ and core/.
package ports

import (
	"context"

	"github.com/artpar/carehub/core/module"
	"github.com/artpar/carehub/core/registry"
)

// -----------------------------------------------------------------------------
// Module Ports
// -----------------------------------------------------------------------------

// ModuleRegistry is the registry surface consumed by admin screens.
// Implemented by *registry.Registry.
type ModuleRegistry interface {
	Get(id string) (module.Descriptor, bool)
	GetAll() []module.Descriptor
	GetEnabled() []module.Descriptor
	GetIsolated() []module.Descriptor
	GetStats() registry.Stats
	State(id string) registry.LifecycleState
	Routes() []registry.RouteEntry
	Components() []registry.ComponentEntry
	CheckPermission(id string, action module.Action, role string) bool

	Unregister(id string)
	UpdateSettings(id string, patch module.SettingsPatch) bool

	MissingDependencies(id string) []string
	HasCycle(id string) bool
	ValidateDependencies(id string) error

	ExportData(id string) (registry.Backup, error)
	RestoreData(id string, b registry.Backup) error

	CallHook(ctx context.Context, name string, args ...any) []any
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// BackupStore keeps module backups outside the process.
type BackupStore interface {
	// Save stores a backup and returns the name it can be loaded by.
	Save(ctx context.Context, b registry.Backup) (string, error)

	// Load reads a backup by name.
	Load(ctx context.Context, name string) (registry.Backup, error)

	// List returns stored backup names, newest first.
	List(ctx context.Context) ([]string, error)
}

var _ ModuleRegistry = (*registry.Registry)(nil)
