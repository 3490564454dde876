package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"skipai/internal/config"
	"skipai/internal/host"
	"skipai/internal/storage"
)

var statsReset bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show or reset the suppression statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsReset, "reset", false, "zero all counters")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if statsReset {
		h := host.New(store, cfg.Channel.DefaultDisplayMode())
		if err := h.ResetStats(); err != nil {
			return fmt.Errorf("failed to reset stats: %w", err)
		}
		fmt.Println("statistics reset")
		return nil
	}

	var stats storage.ExtensionStats
	found, err := store.GetJSON(storage.KeyStats, &stats)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}
	if !found {
		fmt.Println("no statistics recorded yet")
		return nil
	}

	fmt.Printf("Elements hidden:    %d total, %d this session\n", stats.TotalHidden, stats.LastSessionHidden)
	fmt.Printf("Duplicates skipped: %d total, %d this session\n", stats.TotalDupes, stats.LastSessionDupes)
	if !stats.Timestamp.IsZero() {
		fmt.Printf("Last report:        %s\n", stats.Timestamp.Format(time.RFC3339))
	}

	if mode, found, err := store.GetString(storage.KeyDisplayMode); err == nil && found {
		fmt.Printf("Display mode:       %s\n", mode)
	}
	var lastActive time.Time
	if found, err := store.GetJSON(storage.KeyLastActive, &lastActive); err == nil && found {
		fmt.Printf("Last active:        %s\n", lastActive.Format(time.RFC3339))
	}
	return nil
}
