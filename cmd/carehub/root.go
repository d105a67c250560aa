package main

import (
	"fmt"
	"os"
	"time"

	"github.com/artpar/carehub/adapters/remote"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	serverURL string
	apiKey    string
	timeout   time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "carehub",
	Short: "Module registry and admin server for care management",
	Long: `carehub hosts the feature modules of a care-management admin app
(staff directory, shift roster, finance) behind a single registry.

Quick start:
  carehub serve                  # Start the admin server

Management (talks to a running server):
  carehub modules list           # List registered modules
  carehub modules validate <id>  # Check a module's dependencies
  carehub backup export <id>     # Download a module backup`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultURL := os.Getenv("CAREHUB_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "carehub.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "carehub server URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("CAREHUB_API_KEY"), "bearer token sent to the server")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
}

func adminClient() *remote.AdminClient {
	client := remote.NewClient(remote.ClientConfig{
		BaseURL: serverURL,
		APIKey:  apiKey,
		Timeout: timeout,
	})
	return remote.NewAdminClient(client, "/admin")
}
