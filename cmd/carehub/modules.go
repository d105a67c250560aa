package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/artpar/carehub/core/module"
	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Inspect and manage registered modules",
	Long: `Inspect and manage the modules registered on a running server.

Examples:
  carehub modules list
  carehub modules get roster
  carehub modules stats
  carehub modules validate roster
  carehub modules disable finance`,
}

var modulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all modules",
	RunE:  runModulesList,
}

var modulesGetCmd = &cobra.Command{
	Use:   "get <module-id>",
	Short: "Get module details",
	Args:  cobra.ExactArgs(1),
	RunE:  runModulesGet,
}

var modulesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show registry statistics",
	RunE:  runModulesStats,
}

var modulesValidateCmd = &cobra.Command{
	Use:   "validate <module-id>",
	Short: "Check a module's dependencies",
	Args:  cobra.ExactArgs(1),
	RunE:  runModulesValidate,
}

var modulesEnableCmd = &cobra.Command{
	Use:   "enable <module-id>",
	Short: "Enable a module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], true)
	},
}

var modulesDisableCmd = &cobra.Command{
	Use:   "disable <module-id>",
	Short: "Disable a module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(modulesCmd)

	modulesCmd.AddCommand(modulesListCmd)
	modulesCmd.AddCommand(modulesGetCmd)
	modulesCmd.AddCommand(modulesStatsCmd)
	modulesCmd.AddCommand(modulesValidateCmd)
	modulesCmd.AddCommand(modulesEnableCmd)
	modulesCmd.AddCommand(modulesDisableCmd)
}

func runModulesList(cmd *cobra.Command, args []string) error {
	mods, err := adminClient().ListModules(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list modules: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(mods) == 0 {
		fmt.Fprintln(out, "No modules registered.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVERSION\tSTATE\tENABLED\tDEPENDENCIES")
	fmt.Fprintln(w, "--\t----\t-------\t-----\t-------\t------------")

	for _, m := range mods {
		deps := "-"
		if len(m.Dependencies) > 0 {
			deps = strings.Join(m.Dependencies, ",")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Name, m.Version, m.State, yesNo(m.Settings.Enabled), deps)
	}
	return w.Flush()
}

func runModulesGet(cmd *cobra.Command, args []string) error {
	m, err := adminClient().GetModule(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get module: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %s\n", m.ID)
	fmt.Fprintf(out, "Name:        %s\n", m.Name)
	fmt.Fprintf(out, "Version:     %s\n", m.Version)
	if m.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", m.Description)
	}
	fmt.Fprintf(out, "State:       %s\n", m.State)
	fmt.Fprintf(out, "Enabled:     %s\n", yesNo(m.Settings.Enabled))
	fmt.Fprintf(out, "Isolated:    %s\n", yesNo(m.Settings.Isolated))

	if len(m.Routes) > 0 {
		fmt.Fprintln(out, "\nRoutes:")
		for _, r := range m.Routes {
			fmt.Fprintf(out, "  %s -> %s\n", r.Path, r.Component)
		}
	}
	if len(m.Components) > 0 {
		fmt.Fprintln(out, "\nComponents:")
		for _, c := range m.Components {
			fmt.Fprintf(out, "  %s (%s)\n", c.ID, c.Kind)
		}
	}
	return nil
}

func runModulesStats(cmd *cobra.Command, args []string) error {
	s, err := adminClient().Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Modules:    %d (%d enabled, %d isolated)\n", s.TotalModules, s.EnabledModules, s.IsolatedModules)
	fmt.Fprintf(out, "Routes:     %d\n", s.TotalRoutes)
	fmt.Fprintf(out, "Components: %d\n", s.TotalComponents)
	fmt.Fprintf(out, "Hooks:      %d\n", s.TotalHooks)
	return nil
}

func runModulesValidate(cmd *cobra.Command, args []string) error {
	v, err := adminClient().Validate(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to validate module: %w", err)
	}

	out := cmd.OutOrStdout()
	if v.Valid {
		fmt.Fprintf(out, "Module %s: dependencies OK\n", v.Module)
		return nil
	}

	fmt.Fprintf(out, "Module %s: dependency problems\n", v.Module)
	for _, e := range v.Errors {
		fmt.Fprintf(out, "  - %s\n", e)
	}
	return fmt.Errorf("module %s has invalid dependencies", v.Module)
}

func setEnabled(cmd *cobra.Command, id string, enabled bool) error {
	s, err := adminClient().UpdateSettings(context.Background(), id, module.SettingsPatch{Enabled: module.Bool(enabled)})
	if err != nil {
		return fmt.Errorf("failed to update module: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Module %s enabled: %s\n", id, yesNo(s.Enabled))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
