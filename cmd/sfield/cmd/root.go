/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/scalarfield/pkg/config"
	"github.com/ssargent/scalarfield/pkg/fieldstore"
	"github.com/ssargent/scalarfield/pkg/logger"
)

// appContext carries the resolved configuration to subcommands
type appContext struct {
	config     *config.Config
	configPath string
	log        logger.Logger
}

type appContextKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sfield",
	Short: "sfield - scalar field container tools",
	Long: `sfield reads, writes and stores 2-D float32 scalar fields in the SF01
container format, converts them to and from OpenEXR, and serves them over a
REST API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, resolvedPath, err := loadSettings(configPath)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("data-dir") {
			cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
		}

		app := &appContext{
			config:     cfg,
			configPath: resolvedPath,
			log:        logger.FromConfig(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format),
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = logger.WithContext(ctx, app.log)
		cmd.SetContext(context.WithValue(ctx, appContextKey{}, app))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/sfield/config.yaml)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "./data", "Data directory for the field store")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

// loadSettings loads the config at path. An explicit path must exist; the
// default path falls back to built-in defaults when absent.
func loadSettings(path string) (*config.Config, string, error) {
	explicit := path != ""
	if !explicit {
		path = config.GetDefaultConfigPath()
	}

	if !config.ConfigExists(path) {
		if explicit {
			return nil, path, fmt.Errorf("config file does not exist: %s", path)
		}
		return config.DefaultConfig(), path, nil
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func getApp(cmd *cobra.Command) *appContext {
	if app, ok := cmd.Context().Value(appContextKey{}).(*appContext); ok {
		return app
	}
	return &appContext{config: config.DefaultConfig(), log: logger.Default()}
}

// openStore opens the field repository under the configured data directory
func openStore(cfg *config.Config) (*fieldstore.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return fieldstore.Open(fieldstore.Config{Dir: cfg.StoreDir(), Sync: true})
}
