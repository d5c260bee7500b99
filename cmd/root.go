package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/codekg/internal/config"
)

// Version is reported by the MCP server and the version flag
var Version = "dev"

var (
	configPath string
	dbPath     string
	logLevel   string
)

// RegisterCommands adds the global flags and all subcommands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "graph database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(depsCmd())
	rootCmd.AddCommand(impactCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(watchCmd())
}

// loadConfig reads the configuration and applies the global flags on top of it
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if dbPath != "" {
		cfg.DB = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}
