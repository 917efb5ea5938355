/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/scalarfield/pkg/config"
)

// upCmd represents the up command
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bootstrap and start the sfield server",
	Long: `Create a configuration with a generated API key if none exists, then
start the REST API server. This is the quickest way to get sfield running.

Examples:
  sfield up
  sfield up --data-dir ./mydata --print-key`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := getApp(cmd)
		printKey, _ := cmd.Flags().GetBool("print-key")

		cfg, created, err := ensureConfig(app.configPath, app.config)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if created {
			fmt.Fprintf(out, "Configuration created at %s\n", app.configPath)
			if printKey {
				fmt.Fprintf(out, "API key: %s\n", cfg.Security.APIKey)
			}
		}
		fmt.Fprintf(out, "Starting sfield server on %s:%d (data: %s)\n", cfg.Bind, cfg.Port, cfg.DataDir)

		return runServer(cmd, cfg, app.log)
	},
}

func init() {
	rootCmd.AddCommand(upCmd)
	upCmd.Flags().Bool("print-key", false, "Print the generated API key")
}

// ensureConfig returns current when it already has an API key, otherwise it
// bootstraps a config file at path keeping current's data directory.
func ensureConfig(path string, current *config.Config) (*config.Config, bool, error) {
	if config.ConfigExists(path) && current.Validate() == nil {
		return current, false, nil
	}
	if config.ConfigExists(path) {
		return nil, false, fmt.Errorf("config at %s is not usable: %w", path, current.Validate())
	}

	cfg, err := config.BootstrapConfig(path, current.DataDir)
	if err != nil {
		return nil, false, err
	}
	cfg.Logging = current.Logging
	return cfg, true, nil
}
