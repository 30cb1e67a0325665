package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bookbyline/pkg/config"
	"bookbyline/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage bookbyline configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (BOOKBYLINE_*, also read from .env)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd writes the defaults to a new config file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the current settings",
	Long: `Create a configuration file from the effective settings.

The file is written to .bookbyline.yaml in the current directory unless
a different path is given with --config. Existing files are not overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd prints the effective configuration
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

The passphrase is never printed.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".bookbyline.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := appConfig.Save(configPath); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration written")
	ui.PrintInfo("Path", configPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := yaml.Marshal(appConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if appConfig.Credentials.Passphrase != "" {
		ui.PrintInfo("Passphrase", "set via "+config.EnvPrefix+"PASSPHRASE")
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
