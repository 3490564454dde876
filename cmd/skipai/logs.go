package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"skipai/internal/config"
	"skipai/internal/storage"
)

var logsTrace bool

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Dump the shared extension-logs buffer",
	Long: `Dump the bounded diagnostic buffers from the shared store.

By default prints the extension-logs buffer (warnings and errors the
extension contexts persisted, newest first). With --trace prints the
handler debug trace: the last inbound native message types.`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVar(&logsTrace, "trace", false, "print the handler debug trace instead")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if logsTrace {
		var trace []storage.TraceEntry
		found, err := store.GetJSON(storage.KeyHandlerDebug, &trace)
		if err != nil {
			return fmt.Errorf("failed to read debug trace: %w", err)
		}
		if !found || len(trace) == 0 {
			fmt.Println("debug trace is empty")
			return nil
		}
		for _, t := range trace {
			fmt.Printf("%s  %s\n", t.Timestamp.Format(time.RFC3339), t.Type)
		}
		return nil
	}

	var entries []storage.LogEntry
	found, err := store.GetJSON(storage.KeyExtensionLogs, &entries)
	if err != nil {
		return fmt.Errorf("failed to read logs: %w", err)
	}
	if !found || len(entries) == 0 {
		fmt.Println("log buffer is empty")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %-5s %-10s %s\n", e.Timestamp.Format(time.RFC3339), e.Level, e.Source, e.Message)
	}
	return nil
}
