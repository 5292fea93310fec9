package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/namelens/domainwatch/internal/core"
)

// FileStore keeps the last snapshot as an indented JSON object in one file.
// Writes go to a temp file in the same directory and are renamed into place.
type FileStore struct {
	Path string
}

// Load implements SnapshotStore. A missing file means no previous snapshot.
func (f *FileStore) Load(ctx context.Context) (*core.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read history file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}

	snap := core.NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, false, fmt.Errorf("decode history file %s: %w", f.Path, err)
	}
	return snap, true, nil
}

// Save implements SnapshotStore.
func (f *FileStore) Save(ctx context.Context, snap *core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return errors.New("snapshot is required")
	}
	if strings.TrimSpace(f.Path) == "" {
		return errors.New("history file path is required")
	}

	compact, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return fmt.Errorf("indent snapshot: %w", err)
	}
	out.WriteByte('\n')

	if err := mkdirFor(f.Path); err != nil {
		return err
	}

	dir := filepath.Dir(filepath.Clean(f.Path))
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(out.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write history file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close history file: %w", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

// Clear implements SnapshotStore.
func (f *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove history file: %w", err)
	}
	return nil
}

// Location implements SnapshotStore.
func (f *FileStore) Location() string {
	return f.Path
}

// Close implements SnapshotStore.
func (f *FileStore) Close() error {
	return nil
}
