package main

import (
	"github.com/spf13/cobra"

	"github.com/gogotex/gogotex/backend/docservice/internal/config"
	"github.com/gogotex/gogotex/backend/docservice/pkg/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:          "document",
	Short:        "Document service with version history and restore",
	SilenceUsage: true,
}

// Run executes CLI.
func Run() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// loadConfig reads configuration and applies the log level, the flag winning over LOG_LEVEL.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger.Init(cfg.LogLevel)
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error (default from LOG_LEVEL)")
}
