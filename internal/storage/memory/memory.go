// Package memory is a volatile ledger.Store for tests and demo runs.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"spendlog/internal/core"
	"spendlog/internal/ledger"
	"spendlog/internal/tabular"
)

type Store struct {
	mu    sync.Mutex
	saved bool
	txs   []core.Transaction
	saves int
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// NewSeeded returns a store that already holds txs, as if saved before.
func NewSeeded(txs ...core.Transaction) *Store {
	return &Store{saved: true, txs: append([]core.Transaction(nil), txs...)}
}

// NewFromFile seeds the store from a ledger file. A missing file yields an
// empty, never-saved store.
func NewFromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, &core.StorageIOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	txs, err := tabular.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return NewSeeded(txs...), nil
}

// Load returns core.ErrNotFound until the first Save.
func (s *Store) Load(_ context.Context) (ledger.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return ledger.Ledger{}, core.ErrNotFound
	}
	return ledger.New(s.txs...), nil
}

func (s *Store) Save(_ context.Context, l ledger.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = l.Transactions()
	s.saved = true
	s.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Dump renders the stored ledger in file format.
func (s *Store) Dump() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	_ = tabular.Encode(&b, s.txs)
	return b.String()
}
