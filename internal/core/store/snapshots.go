package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/namelens/domainwatch/internal/core"
)

// LoadSnapshot returns the stored snapshot for domain. ok is false when no
// row exists.
func (s *Store) LoadSnapshot(ctx context.Context, domain string) (*core.Snapshot, time.Time, bool, error) {
	if s == nil || s.DB == nil {
		return nil, time.Time{}, false, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key, err := domainKey(domain)
	if err != nil {
		return nil, time.Time{}, false, err
	}

	var (
		payload string
		savedAt int64
	)
	row := s.DB.QueryRowContext(ctx, `SELECT snapshot_json, saved_at FROM snapshots WHERE domain = ?`, key)
	if err := row.Scan(&payload, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, fmt.Errorf("fetch snapshot: %w", err)
	}

	snap := core.NewSnapshot()
	if err := json.Unmarshal([]byte(payload), snap); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("decode snapshot: %w", err)
	}

	return snap, time.Unix(savedAt, 0).UTC(), true, nil
}

// SaveSnapshot replaces the stored snapshot for domain in one upsert.
func (s *Store) SaveSnapshot(ctx context.Context, domain string, snap *core.Snapshot) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if snap == nil {
		return errors.New("snapshot is required")
	}

	key, err := domainKey(domain)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	isError := 0
	if snap.IsError() {
		isError = 1
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO snapshots (domain, snapshot_json, saved_at, is_error)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			snapshot_json = excluded.snapshot_json,
			saved_at = excluded.saved_at,
			is_error = excluded.is_error
	`, key, string(payload), time.Now().UTC().Unix(), isError)
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}

	return nil
}

// DeleteSnapshot removes the stored snapshot for domain.
func (s *Store) DeleteSnapshot(ctx context.Context, domain string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	key, err := domainKey(domain)
	if err != nil {
		return err
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM snapshots WHERE domain = ?`, key); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func domainKey(domain string) (string, error) {
	key := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if key == "" {
		return "", errors.New("snapshot domain is required")
	}
	return key, nil
}

// DBSnapshotStore adapts Store to SnapshotStore for a single domain.
type DBSnapshotStore struct {
	Store  *Store
	Domain string
}

// Load implements SnapshotStore.
func (d *DBSnapshotStore) Load(ctx context.Context) (*core.Snapshot, bool, error) {
	snap, _, ok, err := d.Store.LoadSnapshot(ctx, d.Domain)
	return snap, ok, err
}

// Save implements SnapshotStore.
func (d *DBSnapshotStore) Save(ctx context.Context, snap *core.Snapshot) error {
	return d.Store.SaveSnapshot(ctx, d.Domain, snap)
}

// Clear implements SnapshotStore.
func (d *DBSnapshotStore) Clear(ctx context.Context) error {
	return d.Store.DeleteSnapshot(ctx, d.Domain)
}

// Location implements SnapshotStore.
func (d *DBSnapshotStore) Location() string {
	return d.Store.Driver() + ":snapshots/" + d.Domain
}

// Close implements SnapshotStore.
func (d *DBSnapshotStore) Close() error {
	return d.Store.Close()
}
