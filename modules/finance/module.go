package finance

import (
	"context"
	"fmt"

	"github.com/artpar/carehub/core/hooks"
	"github.com/artpar/carehub/core/module"
	"github.com/artpar/carehub/core/registry"
	"github.com/rs/zerolog"
)

// ModuleID is the registry id of the finance module.
const ModuleID = "finance"

// DefaultCategories are the ledger categories the module starts with.
var DefaultCategories = map[Kind][]string{
	Income:  {"fees", "grants", "donations", "other"},
	Expense: {"wages", "supplies", "rent", "utilities", "training", "other"},
}

// Summary is returned by the finance afterSave callback.
type Summary struct {
	Balance   int64 `json:"balance"`
	Overdrawn bool  `json:"overdrawn"`
}

// Module wires the ledger into a registry.
type Module struct {
	ledger   *Ledger
	currency string
	logger   zerolog.Logger
}

// New creates the finance module with an empty ledger.
func New(logger zerolog.Logger) *Module {
	return &Module{
		ledger:   NewLedger(DefaultCategories),
		currency: "GBP",
		logger:   logger.With().Str("module", ModuleID).Logger(),
	}
}

// Ledger returns the live instance.
func (m *Module) Ledger() *Ledger {
	return m.ledger
}

// Descriptor returns the finance module descriptor. The categories and
// currency are published in Data for the finance screens.
func (m *Module) Descriptor() module.Descriptor {
	categories := make(map[string]any, len(DefaultCategories))
	for kind, names := range DefaultCategories {
		categories[string(kind)] = append([]string(nil), names...)
	}

	return module.MustNew(module.Definition{
		ID:          ModuleID,
		Name:        "Finance",
		Description: "Income and expense ledger",
		Author:      "carehub",
		Routes: []module.Route{
			{Path: "/finance", Component: "finance-dashboard", Permissions: []string{"manager", "admin"}},
			{Path: "/finance/invoices", Component: "finance-invoices", Permissions: []string{"manager", "admin"}},
			{Path: "/finance/reports", Component: "finance-reports", Permissions: []string{"admin"}},
		},
		Components: []module.Component{
			{ID: "finance-dashboard", Name: "Finance", Kind: module.KindPage},
			{ID: "finance-invoices", Name: "Invoices", Kind: module.KindPage},
			{ID: "finance-reports", Name: "Reports", Kind: module.KindPage},
			{ID: "finance-transaction-form", Name: "Transaction", Kind: module.KindForm},
		},
		Hooks: []module.Hook{
			{ID: "finance-after-save", Name: hooks.AfterSave, Kind: module.HookAfter, Permissions: []string{"manager", "admin"}},
		},
		Permissions: module.Permissions{
			View:   []string{"manager", "admin"},
			Create: []string{"manager", "admin"},
			Edit:   []string{"admin"},
			Delete: []string{"admin"},
			Admin:  []string{"admin"},
		},
		Data: map[string]any{
			"categories": categories,
			"currency":   m.currency,
		},
	})
}

// Register adds the module and its ledger to reg.
func (m *Module) Register(reg *registry.Registry) error {
	if err := reg.Register(m.Descriptor()); err != nil {
		return fmt.Errorf("register %s: %w", ModuleID, err)
	}
	if err := reg.LoadInstance(ModuleID, m.ledger); err != nil {
		reg.Unregister(ModuleID)
		return fmt.Errorf("load %s instance: %w", ModuleID, err)
	}

	m.ledger.SetNotifier(func(ctx context.Context, hook string, e hooks.Event) {
		reg.CallHook(ctx, hook, e)
	})
	reg.RegisterHook(hooks.AfterSave, ModuleID, m.afterSave)
	return nil
}

// Unregister removes the module, its instance and its hooks from reg.
func (m *Module) Unregister(reg *registry.Registry) {
	m.ledger.SetNotifier(nil)
	reg.Unregister(ModuleID)
}

// afterSave reports the balance after a ledger change and warns when the
// ledger goes overdrawn.
func (m *Module) afterSave(ctx context.Context, args ...any) (any, error) {
	e, ok := hooks.EventFrom(args)
	if !ok || e.Module != ModuleID {
		return nil, nil
	}

	s := Summary{Balance: m.ledger.Balance()}
	s.Overdrawn = s.Balance < 0
	if s.Overdrawn {
		m.logger.Warn().
			Int64("balance", s.Balance).
			Str("transaction", e.RecordID).
			Msg("ledger overdrawn")
	}
	return s, nil
}
