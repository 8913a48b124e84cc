package backend

import (
	"context"

	"spendlog/internal/ledger"
	"spendlog/internal/services"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult holds the ledger service wired to its store and notifier.
type BackendResult struct {
	Ledger *services.LedgerService
	Store  ledger.Store
	// Cleanup may be nil.
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateStore(config Config) (ledger.Store, error)
}

type Config struct {
	Type BackendType

	// csv
	LedgerPath string

	// sqlite
	SQLiteDBPath string

	// memory; empty means start with no transactions
	MemorySeedFile string

	// Optional event publishing for every backend.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
