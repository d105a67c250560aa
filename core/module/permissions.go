package module

import "slices"

// Wildcard is the role that grants an action to every role.
const Wildcard = "*"

// Action names a permission bucket.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionAdmin  Action = "admin"
)

// Permissions holds the roles allowed to perform each action on a module.
type Permissions struct {
	View   []string `json:"view" yaml:"view,omitempty" toml:"view,omitempty"`
	Create []string `json:"create" yaml:"create,omitempty" toml:"create,omitempty"`
	Edit   []string `json:"edit" yaml:"edit,omitempty" toml:"edit,omitempty"`
	Delete []string `json:"delete" yaml:"delete,omitempty" toml:"delete,omitempty"`
	Admin  []string `json:"admin" yaml:"admin,omitempty" toml:"admin,omitempty"`
}

// Roles returns the role list for an action, or nil for an unknown action.
func (p Permissions) Roles(action Action) []string {
	switch action {
	case ActionView:
		return p.View
	case ActionCreate:
		return p.Create
	case ActionEdit:
		return p.Edit
	case ActionDelete:
		return p.Delete
	case ActionAdmin:
		return p.Admin
	}
	return nil
}

// Allows reports whether role may perform action.
func (p Permissions) Allows(action Action, role string) bool {
	roles := p.Roles(action)
	return slices.Contains(roles, role) || slices.Contains(roles, Wildcard)
}

// Clone returns a deep copy of the permission buckets.
func (p Permissions) Clone() Permissions {
	return Permissions{
		View:   cloneStrings(p.View),
		Create: cloneStrings(p.Create),
		Edit:   cloneStrings(p.Edit),
		Delete: cloneStrings(p.Delete),
		Admin:  cloneStrings(p.Admin),
	}
}
