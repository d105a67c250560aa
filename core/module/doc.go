/*
Package module defines the descriptor of a pluggable feature module.

A descriptor is the static declaration of a module: its identity, the routes and
UI components it contributes, the hooks it declares, the roles allowed to act on
it, and its runtime settings. Descriptors are built through New, which applies
defaults and validates the definition before the registry ever sees it.

# Manifest Example

A descriptor can be declared in YAML:

	id: roster
	name: Roster
	version: 1.2.0
	dependencies: [people]
	routes:
	  - { path: /roster, component: roster-page, permissions: [staff, manager] }
	components:
	  - { id: roster-page, name: Roster, kind: page }
	  - { id: shift-dialog, name: Shift, kind: dialog }
	hooks:
	  - { id: roster-after-save, name: afterSave, kind: after }
	permissions:
	  view: ["*"]
	  edit: [manager]
	settings:
	  isolated: false

# Settings

Every settings flag defaults to true. Partial updates use SettingsPatch, whose
nil fields leave the current value untouched.

# Permissions

Permissions hold one role list per action (view, create, edit, delete, admin).
The role "*" grants the action to every role.
*/
package module
