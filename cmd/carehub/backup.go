package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/artpar/carehub/adapters/backup"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export and restore module backups",
	Long: `Export and restore module backups through a running server.

Examples:
  carehub backup export people -o people.json
  carehub backup restore people.json
  carehub backup restore backups/people-20260101T090000Z.json --module people`,
}

var backupExportCmd = &cobra.Command{
	Use:   "export <module-id>",
	Short: "Export a module backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupExport,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore a module from a backup file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupRestore,
}

var (
	backupOutput string
	backupModule string
)

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupRestoreCmd)

	backupExportCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "write to file instead of stdout")
	backupRestoreCmd.Flags().StringVar(&backupModule, "module", "", "module id to restore into (default: id in the backup)")
}

func runBackupExport(cmd *cobra.Command, args []string) error {
	b, err := adminClient().Export(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to export module: %w", err)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	data = append(data, '\n')

	if backupOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	if err := os.WriteFile(backupOutput, data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backup of %s written to %s\n", args[0], backupOutput)
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	b, err := backup.ReadFile(args[0])
	if err != nil {
		return err
	}

	id := backupModule
	if id == "" {
		id = b.Descriptor.ID
	}
	if id == "" {
		return fmt.Errorf("backup has no module id, use --module")
	}

	m, err := adminClient().Restore(context.Background(), id, b)
	if err != nil {
		return fmt.Errorf("failed to restore module: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Module %s restored (state: %s)\n", m.ID, m.State)
	return nil
}
