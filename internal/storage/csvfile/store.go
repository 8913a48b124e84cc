// Package csvfile persists the ledger as a single CSV file on local disk.
package csvfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"spendlog/internal/core"
	"spendlog/internal/ledger"
	"spendlog/internal/tabular"
)

// Store reads and writes a ledger file. It assumes a single writer.
type Store struct {
	path string
}

var _ ledger.Store = (*Store)(nil)

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the ledger file location.
func (s *Store) Path() string {
	return s.path
}

// Load implements ledger.Store.
func (s *Store) Load(ctx context.Context) (ledger.Ledger, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ledger.Ledger{}, fmt.Errorf("open %s: %w", s.path, core.ErrNotFound)
	}
	if err != nil {
		return ledger.Ledger{}, &core.StorageIOError{Op: "open", Path: s.path, Err: err}
	}
	defer f.Close()

	txs, err := tabular.Decode(f)
	if err != nil {
		return ledger.Ledger{}, fmt.Errorf("load %s: %w", s.path, err)
	}

	slog.DebugContext(ctx, "Ledger loaded from CSV", "path", s.path, "count", len(txs))
	return ledger.New(txs...), nil
}

// Save implements ledger.Store. The new contents become visible in one
// rename, so a concurrent reader sees either the old or the new file.
func (s *Store) Save(ctx context.Context, l ledger.Ledger) error {
	var buf bytes.Buffer
	if err := tabular.Encode(&buf, l.Transactions()); err != nil {
		return &core.StorageIOError{Op: "encode", Path: s.path, Err: err}
	}
	if err := WriteFileAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Ledger saved to CSV", "path", s.path, "count", l.Len())
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it
// and renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.StorageIOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &core.StorageIOError{Op: "create temp", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &core.StorageIOError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &core.StorageIOError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &core.StorageIOError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return &core.StorageIOError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &core.StorageIOError{Op: "rename", Path: path, Err: err}
	}
	committed = true
	return nil
}
