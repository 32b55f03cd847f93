package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/emberdb/ember/engine"
	"github.com/emberdb/ember/internal/logger"
)

var (
	// Global flags
	engineDir  string
	configPath string
	verbose    bool
	quiet      bool
	jsonOut    bool
)

var rootCmd = &cobra.Command{
	Use:   "emberctl",
	Short: "Inspect and maintain ember engine directories",
	Long: `emberctl operates on an ember engine directory: it runs explicit
checkpoints, verifies and salvages object data files, drops objects, and
reports engine statistics. Operations that need exclusive access to an
object's file fail with a distinct busy status when the engine cannot grant
it safely; run a checkpoint and retry.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&engineDir, "dir", "d", ".", "Engine directory")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Engine config file (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var busy busyExit
		if errors.As(err, &busy) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// openEngine opens the engine named by the global flags. CLI invocations
// are one-shot, so the automatic checkpoint timer is disabled.
func openEngine() (*engine.Engine, error) {
	opts := engine.DefaultOptions()
	if configPath != "" {
		var err error
		opts, err = loadConfig(configPath)
		if err != nil {
			return nil, err
		}
	}
	opts.CheckpointWait = -1
	opts.Logger = logger.New(logger.Options{
		Enabled: verbose && !quiet,
		Level:   slog.LevelDebug,
	})
	return engine.Open(engineDir, opts)
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
