// Package cli wires the backtester's cobra commands.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/internal/logging"
	"github.com/rustyeddy/backtester/journal"
	"github.com/spf13/cobra"
)

// RootConfig holds the persistent flags every subcommand shares.
type RootConfig struct {
	ConfigPath string
	DBPath     string
	LogLevel   string

	cmd *cobra.Command
}

// Config loads --config, or the defaults when no file was given, and
// applies the --db and --log-level overrides.
func (rc *RootConfig) Config() (*config.Config, error) {
	cfg := config.Default()
	if rc.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(rc.ConfigPath); err != nil {
			return nil, err
		}
	}
	if rc.changed("db") {
		cfg.Journal.Type = "sqlite"
		cfg.Journal.DBPath = rc.DBPath
	}
	if rc.changed("log-level") {
		cfg.Log.Level = rc.LogLevel
	}
	return cfg, nil
}

// Logger returns the console logger for cfg's level.
func (rc *RootConfig) Logger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Log.Level)
}

// OpenSQLite opens the journal database the commands read from.
func (rc *RootConfig) OpenSQLite(cfg *config.Config) (*journal.SQLite, error) {
	if cfg.Journal.Type != "sqlite" {
		return nil, fmt.Errorf("journal type %q cannot be queried; use a sqlite journal", cfg.Journal.Type)
	}
	return journal.NewSQLite(cfg.Journal.DBPath)
}

func (rc *RootConfig) changed(flag string) bool {
	return rc.cmd != nil && rc.cmd.PersistentFlags().Changed(flag)
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:           "backtester",
		Short:         "Backtester: daily portfolio simulation and analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rc.cmd = cmd

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.DBPath, "db", "./backtester.sqlite", "SQLite journal database")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")

	// Subcommands
	cmd.AddCommand(
		newConfigCmd(rc),
		newRunCmd(rc),
		newRunsCmd(rc),
		newReportCmd(rc),
		newExportCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "backtester (dev)")
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
