// Package storage persists the ledger in a SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"spendlog/internal/core"
	"spendlog/internal/ledger"
	"spendlog/internal/tabular"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	dbPath string

	mu sync.Mutex
	// fresh is true until the first Save when the database file did not
	// exist at open time, so Load can report a first run.
	fresh bool
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	_, statErr := os.Stat(dbPath)
	fresh := errors.Is(statErr, fs.ErrNotExist)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Ledger schema ready", "path", dbPath, "schema_version", version, "fresh", fresh)

	return &SQLiteRepository{db: db, dbPath: dbPath, fresh: fresh}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements ledger.Store. Rows come back in insertion order.
func (r *SQLiteRepository) Load(ctx context.Context) (ledger.Ledger, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, amount, category, description FROM transactions ORDER BY position`)
	if err != nil {
		return ledger.Ledger{}, &core.StorageIOError{Op: "query", Path: r.dbPath, Err: err}
	}
	defer rows.Close()

	var txs []core.Transaction
	for row := 1; rows.Next(); row++ {
		var date, amount, category, description string
		if err := rows.Scan(&date, &amount, &category, &description); err != nil {
			return ledger.Ledger{}, &core.StorageIOError{Op: "scan", Path: r.dbPath, Err: err}
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return ledger.Ledger{}, &core.MalformedStoreError{Row: row, Column: tabular.ColumnDate, Value: date, Err: err}
		}
		a, err := core.ParseAmount(amount)
		if err != nil {
			return ledger.Ledger{}, &core.MalformedStoreError{Row: row, Column: tabular.ColumnAmount, Value: amount, Err: err}
		}
		txs = append(txs, core.Transaction{Date: d, Amount: a, Category: category, Description: description})
	}
	if err := rows.Err(); err != nil {
		return ledger.Ledger{}, &core.StorageIOError{Op: "query", Path: r.dbPath, Err: err}
	}

	r.mu.Lock()
	fresh := r.fresh
	r.mu.Unlock()
	if fresh && len(txs) == 0 {
		return ledger.Ledger{}, fmt.Errorf("load %s: %w", r.dbPath, core.ErrNotFound)
	}

	slog.DebugContext(ctx, "Ledger loaded from SQLite", "path", r.dbPath, "count", len(txs))
	return ledger.New(txs...), nil
}

// Save implements ledger.Store by replacing every row inside a single
// transaction.
func (r *SQLiteRepository) Save(ctx context.Context, l ledger.Ledger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StorageIOError{Op: "begin", Path: r.dbPath, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return &core.StorageIOError{Op: "delete", Path: r.dbPath, Err: err}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (position, date, amount, category, description) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return &core.StorageIOError{Op: "prepare", Path: r.dbPath, Err: err}
	}
	defer stmt.Close()

	for i, t := range l.Transactions() {
		if _, err := stmt.ExecContext(ctx, i+1, t.Date.String(), core.FormatAmount(t.Amount), t.Category, t.Description); err != nil {
			return &core.StorageIOError{Op: "insert", Path: r.dbPath, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &core.StorageIOError{Op: "commit", Path: r.dbPath, Err: err}
	}

	r.mu.Lock()
	r.fresh = false
	r.mu.Unlock()

	slog.InfoContext(ctx, "Ledger saved to SQLite", "path", r.dbPath, "count", l.Len())
	return nil
}
