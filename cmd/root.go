// Package cmd wires the nutrilog command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nutrilog/nutrilog/cmd/config"
	"github.com/nutrilog/nutrilog/cmd/file"
	"github.com/nutrilog/nutrilog/cmd/records"
	"github.com/nutrilog/nutrilog/cmd/serve"
	"github.com/nutrilog/nutrilog/internal/buildinfo"
	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/logger"
)

// RootCommand creates and returns the root command. settings is populated
// from the config file, environment and flags before any subcommand runs.
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "nutrilog",
		Short:        "Nutrition CSV ingest service",
		Version:      build.String(),
		SilenceUsage: true,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		serve.Command(settings, build),
		file.Command(settings),
		records.Command(settings),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(settings, configFile)
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return logger.Global().Close()
	}

	return rootCmd
}

// initialize loads settings and installs the central logger.
func initialize(settings *conf.Settings, configFile string) error {
	if configFile != "" {
		conf.SetConfigFile(configFile)
	}

	loaded, err := conf.Load()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	*settings = *loaded

	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	centralLogger, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}
	logger.SetGlobal(centralLogger)

	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")

	bindings := map[string]string{
		"debug":                 "debug",
		"logging.default_level": "log-level",
		"logging.console.level": "log-level",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
