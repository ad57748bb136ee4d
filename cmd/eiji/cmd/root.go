package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/eiji/internal/app"
	"github.com/corey/eiji/internal/logging"
)

var (
	configPath  string
	dataDirFlag string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "eiji",
	Short: "Offline substring search over English-Japanese dictionaries",
	Long: "Builds n-gram indexes over the configured dictionary corpora and answers\n" +
		"substring queries interactively. Missing indexes are rebuilt on startup.",
	Args: cobra.NoArgs,
	RunE: runShell,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default ./"+app.DefaultConfigFile+" when present)")
	pf.StringVar(&dataDirFlag, "data-dir", "", "Directory holding dictionary sources (overrides config)")
	pf.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(watchCmd)
}

// loadConfig reads --config, or eiji.yaml in the working directory, or the
// built-in defaults, then applies --data-dir.
func loadConfig() (*app.Config, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat(app.DefaultConfigFile); err == nil {
			path = app.DefaultConfigFile
		}
	}
	cfg, err := app.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	return cfg, nil
}

// openApp loads the configuration and opens the app. With prepare set it
// also rebuilds missing indexes and opens every available dictionary.
func openApp(cmd *cobra.Command, prepare bool) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cmd.ErrOrStderr(), logLevel)

	a, err := app.New(cfg, logger)
	if err != nil {
		if isDBLockError(err) {
			return nil, fmt.Errorf("cannot open: %s", diagnoseDBLock(cfg.DataDir))
		}
		return nil, err
	}
	if !prepare {
		return a, nil
	}

	if err := a.Prepare(cmd.Context()); err != nil {
		a.Close()
		return nil, explainIndexError(err)
	}
	if !anyAvailable(a) {
		a.Close()
		return nil, errors.New("no dictionary available: place a source file in " + cfg.DataDir +
			" or point eiji.yaml at one")
	}
	return a, nil
}

func anyAvailable(a *app.App) bool {
	for _, d := range a.Dictionaries() {
		if d.Available() {
			return true
		}
	}
	return false
}
