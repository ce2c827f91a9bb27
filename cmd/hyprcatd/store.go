package main

import (
	"fmt"

	"github.com/hyprcat/hyprcat/internal/config"
	"github.com/hyprcat/hyprcat/internal/store"
)

// openStore constructs the resource store backend cfg selects.
func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageFile:
		return store.NewFile(cfg.StorageDir)
	case config.StoragePostgres:
		return store.NewPostgres(cfg.DatabaseDSN)
	case config.StorageMemory, "":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("hyprcatd: unrecognized storage backend %q", cfg.StorageBackend)
	}
}
