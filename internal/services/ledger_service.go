package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"spendlog/internal/core"
	"spendlog/internal/ledger"
)

// Notifier is told about ledger mutations after they are persisted.
type Notifier interface {
	PublishTransactionAppended(ctx context.Context, version int64, count int) error
	PublishLedgerReset(ctx context.Context, version int64) error
}

// LedgerService owns the session ledger. Mutations are serialised and
// persisted before the in-memory ledger is replaced, so a failed save
// leaves memory and storage consistent.
type LedgerService struct {
	store    ledger.Store
	notifier Notifier

	mu      sync.RWMutex
	current ledger.Ledger
	version int64
}

// NewLedgerService creates the service. notifier may be nil.
func NewLedgerService(store ledger.Store, notifier Notifier) *LedgerService {
	return &LedgerService{
		store:    store,
		notifier: notifier,
	}
}

// Load reads the ledger from storage. A missing store is a first run: the
// ledger starts empty and an empty store is written.
func (s *LedgerService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, core.ErrNotFound):
		slog.InfoContext(ctx, "No ledger found, starting empty")
		l = ledger.Ledger{}
		if err := s.store.Save(ctx, l); err != nil {
			return fmt.Errorf("create ledger: %w", err)
		}
	case err != nil:
		return fmt.Errorf("load ledger: %w", err)
	}

	s.current = l
	s.version++
	slog.InfoContext(ctx, "Ledger loaded", "count", l.Len(), "version", s.version)
	return nil
}

// Snapshot returns the current immutable ledger and its version.
func (s *LedgerService) Snapshot() (ledger.Ledger, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.version
}

// Version increases with every successful load or mutation.
func (s *LedgerService) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Append validates input, persists the extended ledger and only then makes
// it current. Validation failures return a *core.ValidationError and touch
// neither memory nor storage.
func (s *LedgerService) Append(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	tx, err := core.NewTransaction(in)
	if err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	next, err := s.current.Append(tx)
	if err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	if err := s.store.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("save ledger: %w", err)
	}
	s.current = next
	s.version++
	version, count := s.version, next.Len()
	s.mu.Unlock()

	slog.DebugContext(ctx, "Transaction persisted",
		"date", tx.Date.String(),
		"amount", core.FormatAmount(tx.Amount),
		"category", tx.Category,
		"version", version)

	if s.notifier != nil {
		if err := s.notifier.PublishTransactionAppended(ctx, version, count); err != nil {
			// The ledger is already persisted.
			slog.ErrorContext(ctx, "Failed to publish append event", "version", version, "error", err)
		}
	}
	return tx, nil
}

// Reset irreversibly replaces the ledger with an empty one.
func (s *LedgerService) Reset(ctx context.Context) error {
	s.mu.Lock()
	empty := ledger.Ledger{}
	if err := s.store.Save(ctx, empty); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("reset ledger: %w", err)
	}
	s.current = empty
	s.version++
	version := s.version
	s.mu.Unlock()

	slog.InfoContext(ctx, "Ledger reset", "version", version)

	if s.notifier != nil {
		if err := s.notifier.PublishLedgerReset(ctx, version); err != nil {
			slog.ErrorContext(ctx, "Failed to publish reset event", "version", version, "error", err)
		}
	}
	return nil
}

// Close releases the store and notifier when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.notifier.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("notifier: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
