// Package store persists the last observed snapshot, either as a JSON file
// or as a row in a libsql database.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/namelens/domainwatch/internal/config"
	"github.com/namelens/domainwatch/internal/core"
)

// ErrNoSnapshot is returned by Latest when nothing has been stored yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotStore holds the single previous snapshot for one domain.
type SnapshotStore interface {
	// Load returns the stored snapshot; ok is false when there is none.
	Load(ctx context.Context) (snap *core.Snapshot, ok bool, err error)
	// Save replaces the stored snapshot atomically.
	Save(ctx context.Context, snap *core.Snapshot) error
	Clear(ctx context.Context) error
	// Location describes where snapshots live, for logs and status output.
	Location() string
	Close() error
}

// OpenSnapshotStore opens the store selected by cfg.Store.Driver for
// cfg.Domain.
func OpenSnapshotStore(ctx context.Context, cfg *config.Config) (SnapshotStore, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch driver {
	case "", driverFile:
		if strings.TrimSpace(cfg.HistoryFile) == "" {
			return nil, errors.New("history_file is required for the file store")
		}
		return &FileStore{Path: cfg.HistoryFile}, nil
	case driverLibsql:
		db, err := Open(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &DBSnapshotStore{Store: db, Domain: cfg.Domain}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

// Latest loads the stored snapshot, returning ErrNoSnapshot when absent.
func Latest(ctx context.Context, s SnapshotStore) (*core.Snapshot, error) {
	snap, ok, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}
