package main

import (
	"fmt"

	"github.com/artpar/carehub/bootstrap"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin server",
	Long: `Start the carehub admin server.

The server will:
  - Load configuration from carehub.yaml (or --config)
  - Or load configuration from CAREHUB_* environment variables
  - Register the built-in modules and any manifest modules
  - Serve the admin API under /admin, health probes and metrics

Environment variables:
  CAREHUB_SERVER_PORT          - Server port (default: 8080)
  CAREHUB_LOG_LEVEL            - Log level: debug, info, warn, error
  CAREHUB_BACKUP_DIR           - Backup directory (default: backups)
  CAREHUB_MODULES_BUILTIN      - Comma separated built-in modules
  CAREHUB_MODULES_MANIFEST_DIR - Directory of module manifests

Examples:
  carehub serve
  carehub serve --config /etc/carehub/config.yaml
  carehub serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Watch:      hotReload,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	return app.Run()
}
