// Package ledger holds the ordered collection of transactions and the port
// used to persist it.
package ledger

import (
	"context"

	"spendlog/internal/core"
)

// Ledger is an immutable, insertion-ordered snapshot of transactions.
// Duplicate rows are legal. The zero value is an empty ledger.
type Ledger struct {
	txs []core.Transaction
}

// Store persists whole ledgers.
type Store interface {
	// Load returns the persisted ledger. When nothing has been persisted yet
	// it returns an empty ledger and an error matching core.ErrNotFound.
	Load(ctx context.Context) (Ledger, error)
	// Save atomically replaces the persisted ledger.
	Save(ctx context.Context, l Ledger) error
}

// New builds a ledger from transactions, copying the slice.
func New(txs ...core.Transaction) Ledger {
	if len(txs) == 0 {
		return Ledger{}
	}
	own := make([]core.Transaction, len(txs))
	copy(own, txs)
	return Ledger{txs: own}
}

// Len returns the number of transactions.
func (l Ledger) Len() int {
	return len(l.txs)
}

// IsEmpty reports whether the ledger holds no transactions.
func (l Ledger) IsEmpty() bool {
	return len(l.txs) == 0
}

// At returns the i-th transaction in insertion order.
func (l Ledger) At(i int) core.Transaction {
	return l.txs[i]
}

// Transactions returns a copy of all transactions in insertion order.
func (l Ledger) Transactions() []core.Transaction {
	out := make([]core.Transaction, len(l.txs))
	copy(out, l.txs)
	return out
}

// View returns the full ledger as a read-only view.
func (l Ledger) View() core.View {
	return core.View(l.Transactions())
}

// Append validates t and returns a new ledger with t at the end. The
// receiver is never modified.
func (l Ledger) Append(t core.Transaction) (Ledger, error) {
	if err := t.Validate(); err != nil {
		return l, err
	}
	next := make([]core.Transaction, len(l.txs), len(l.txs)+1)
	copy(next, l.txs)
	return Ledger{txs: append(next, t)}, nil
}
