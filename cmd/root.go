// Package cmd implements the panda CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pandaai/panda/internal/config"
)

const version = "0.1.0"
const logo = "🐼"

var (
	configPath string
	envFiles   []string
	verbose    bool
	logJSON    bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "panda",
	Short: logo + " panda — Panda AI study assistant",
	Long:  logo + " panda — chat with Panda AI from the terminal, Telegram, Slack or the browser",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging(verbose, logJSON)
	},
	SilenceUsage: true,
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.panda/config.json)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load (default .env.local, .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON lines")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(channelsCmd)
}

// loadConfig reads the config file, overlays .env files and the process
// environment, and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := loadConfigUnchecked()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigUnchecked() (*config.Config, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.ConfigPath()
}
