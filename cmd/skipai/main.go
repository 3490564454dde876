// skipai is the native companion for the AI-overview suppression
// extension: it runs the native-messaging host endpoint, drives the
// suppression engine against a live page for development, and reads the
// shared statistics and diagnostic buffers.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"skipai/internal/logging"
)

var (
	// Global flags.
	verbose    bool
	configPath string
	workspace  string

	// Logger.
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "skipai",
	Short: "skipai - AI-overview suppression host and dev tooling",
	Long: `skipai is the native side of the AI-overview suppression extension.

It terminates the browser's native-messaging channel, reconciles the
extension's suppression statistics across page reloads, and owns the
shared store the companion app reads. The watch command attaches the
suppression engine to a live browser page for selector development.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if workspace == "" {
			workspace, _ = os.Getwd()
		}
		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("file logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default .skipai/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&workspace, "workspace", "", "workspace directory (default cwd)")

	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(logsCmd)
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return ".skipai/config.yaml"
}

func main() {
	start := time.Now()
	err := rootCmd.Execute()
	if logger != nil {
		logger.Debug("exiting", zap.Duration("uptime", time.Since(start)))
	}
	if err != nil {
		os.Exit(1)
	}
}
