package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"conference-central/config"
	"conference-central/logging"
)

var (
	version = "dev"
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:           "conference-central",
	Short:         "Conference management backend",
	Long:          `Conference management API: conferences, sessions, registration and wishlists.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("store", "",
		"store driver: memory, mongo or postgres")
	rootCmd.PersistentFlags().String("log-level", "",
		"log level: debug, info, warn or error")

	_ = v.BindPFlag("store.driver", rootCmd.PersistentFlags().Lookup("store"))
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd, addUserCmd, announceCmd)
}

// loadConfig reads the configuration and builds the process logger.
func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(ver string) {
	version = ver
	rootCmd.Version = ver
}
