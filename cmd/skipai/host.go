package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skipai/internal/config"
	"skipai/internal/host"
	"skipai/internal/logging"
	"skipai/internal/storage"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Run the native-messaging host on stdin/stdout",
	Long: `Run the native-messaging host endpoint.

The browser launches this command and speaks the length-prefixed JSON
framing over stdin/stdout. The host serves one connection and exits when
the browser closes the stream. Diagnostics go to the category log files,
never to stdout.`,
	RunE: runHost,
}

func runHost(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Mirror host-side warnings into the shared extension-logs buffer so
	// the companion app can surface them.
	logging.RegisterSink(storage.NewExtensionLogSink(store, "host"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := host.New(store, cfg.Channel.DefaultDisplayMode())
	logging.Host("host serving channel=%s", cfg.Channel)
	logger.Info("native host serving", zap.String("channel", string(cfg.Channel)))

	if err := h.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		logging.HostError("serve failed: %v", err)
		return fmt.Errorf("host serve: %w", err)
	}
	logging.Host("host stream closed, exiting")
	return nil
}
