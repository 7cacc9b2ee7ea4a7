// Package cmd wires the tradego CLI.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logPretty  bool
)

var rootCmd = &cobra.Command{
	Use:           "tradego",
	Short:         "Short-horizon trading engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "human-readable console logs")

	rootCmd.AddCommand(runCmd, reportCmd, tradesCmd, versionCmd)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level: %w", err)
	}

	var log zerolog.Logger
	if logPretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger(), nil
}
