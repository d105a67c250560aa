// Package modules lists the built-in feature modules.
package modules

import (
	"github.com/artpar/carehub/core/module"
	"github.com/artpar/carehub/core/registry"
	"github.com/artpar/carehub/modules/finance"
	"github.com/artpar/carehub/modules/people"
	"github.com/artpar/carehub/modules/roster"
	"github.com/rs/zerolog"
)

// Module is a built-in feature module.
type Module interface {
	Descriptor() module.Descriptor
	Register(reg *registry.Registry) error
	Unregister(reg *registry.Registry)
}

var (
	_ Module = (*people.Module)(nil)
	_ Module = (*roster.Module)(nil)
	_ Module = (*finance.Module)(nil)
)

// Builtin returns fresh instances of every built-in module, in an order in
// which each module's dependencies come first.
func Builtin(logger zerolog.Logger) []Module {
	return []Module{
		people.New(logger),
		roster.New(logger),
		finance.New(logger),
	}
}

// IDs returns the ids of the built-in modules.
func IDs() []string {
	return []string{people.ModuleID, roster.ModuleID, finance.ModuleID}
}
