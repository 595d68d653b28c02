package pagekeeper

import (
	"context"
	"fmt"

	"github.com/hazyhaar/offsite/pagekeeper/internal/store"
)

// Store is the string-keyed backend snapshots are written to.
type Store = store.Store

// Storage errors.
var (
	ErrNotFound      = store.ErrNotFound
	ErrQuotaExceeded = store.ErrQuotaExceeded
)

// OpenStore opens the backend named by cfg.Backend.
func OpenStore(ctx context.Context, cfg StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return store.NewMemory(cfg.QuotaBytes), nil
	case "bolt":
		return store.OpenBolt(ctx, cfg.Path)
	case "sqlite":
		return store.OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("pagekeeper: unknown storage backend %q", cfg.Backend)
	}
}

// NewMemoryStore returns an unbounded in-process store.
func NewMemoryStore() Store { return store.NewMemory(0) }

func layoutFromConfig(cfg StorageConfig) store.Layout {
	return store.Layout{
		Primary:       cfg.PrimaryKey,
		Backup:        cfg.BackupKey,
		HistoryPrefix: cfg.HistoryPrefix,
		Retention:     cfg.Retention,
	}
}
