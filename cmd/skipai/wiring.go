package main

import (
	"fmt"

	"go.uber.org/zap"

	"skipai/internal/config"
	"skipai/internal/storage"
	"skipai/internal/suppress"
)

// openStore opens the shared store the config names. An empty database
// path selects the in-memory store.
func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.DatabasePath == "" {
		logger.Debug("using in-memory store")
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	logger.Debug("store open", zap.String("path", cfg.Storage.DatabasePath))
	return store, nil
}

// engineOptions maps the suppression config onto engine options.
func engineOptions(cfg *config.Config) suppress.Options {
	return suppress.Options{
		ContainerSelector:   cfg.Suppression.ContainerSelector,
		HeadingSelector:     cfg.Suppression.HeadingSelector,
		BoundaryAttrs:       cfg.Suppression.BoundaryAttrs,
		MaxAscend:           cfg.Suppression.MaxAscend,
		RelatedSelector:     cfg.Suppression.RelatedSelector,
		RelatedAscendLevels: cfg.Suppression.RelatedAscendLevels,
		InlineCardTag:       cfg.Suppression.InlineCardTag,
		TabSelector:         cfg.Suppression.TabSelector,
		ScanInterval:        cfg.Suppression.ScanInterval(),
		DevBuild:            cfg.Channel.Dev(),
	}
}
