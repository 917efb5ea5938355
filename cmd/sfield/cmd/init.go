/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/scalarfield/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a bootstrap config with a generated API key",
	Long: `Write a configuration file with default settings and a freshly
generated API key for the REST server.

Examples:
  sfield init
  sfield init --config ./sfield.yaml --data-dir /var/lib/sfield`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := getApp(cmd)
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := initConfig(app.configPath, app.config.DataDir, force)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Wrote config to %s\n", app.configPath)
		fmt.Fprintf(out, "Data directory: %s\n", cfg.DataDir)
		fmt.Fprintf(out, "API key: %s\n", cfg.Security.APIKey)
		fmt.Fprintf(out, "\nStart the server with:\n  sfield serve --config %s\n", app.configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

// initConfig bootstraps a config at path unless one exists and force is unset
func initConfig(path, dataDir string, force bool) (*config.Config, error) {
	if config.ConfigExists(path) && !force {
		return nil, fmt.Errorf("config already exists at %s, use --force to overwrite", path)
	}
	return config.BootstrapConfig(path, dataDir)
}
