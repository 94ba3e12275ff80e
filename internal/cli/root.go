// Package cli wires the Harbordesk commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/harborops/harbordesk/internal/config"
	"github.com/harborops/harbordesk/internal/logging"
	"github.com/harborops/harbordesk/internal/version"
)

var (
	cfgFile      string
	logLevelFlag string

	loadedConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "harbordesk",
	Short:         "Terminal console for the marketplace inbox",
	Long:          "Harbordesk is a terminal console for the marketplace conversation inbox: threads, timelines, presence and calls.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// No subcommand launches the console, the primary surface.
		return runConsole()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/harbordesk/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level override (debug, info, warn, error)")
}

// Execute runs the command tree.
func Execute() error {
	rootCmd.Version = version.Version
	return rootCmd.Execute()
}

// GetConfig returns the loaded configuration, nil before initApp ran.
func GetConfig() *config.Config {
	return loadedConfig
}

func initApp() error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	loadedConfig = cfg

	return initLogging(cfg)
}

// initLogging configures the global logger. The TUI owns the terminal,
// so interactive runs log to a file under the data dir; non-interactive
// stderr gets json.
func initLogging(cfg *config.Config) error {
	logCfg := logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		File:         cfg.Logging.File,
		EnableCaller: cfg.Logging.EnableCaller,
	}
	if logCfg.File == "" {
		if hasTTY() {
			logCfg.File = fmt.Sprintf("%s/harbordesk.log", cfg.Global.DataDir)
		} else {
			logCfg.Format = "json"
		}
	}
	return logging.Init(logCfg)
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
