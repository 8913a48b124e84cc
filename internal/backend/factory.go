package backend

import (
	"context"
	"fmt"
	"log/slog"

	"spendlog/internal/amqp"
	"spendlog/internal/ledger"
	"spendlog/internal/services"
	"spendlog/internal/storage"
	"spendlog/internal/storage/csvfile"
	"spendlog/internal/storage/memory"
)

type DefaultFactory struct {
	logger *slog.Logger
	// dial is swapped in tests.
	dial func(url, exchange, queue string) (*amqp.Client, error)
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		dial:   amqp.NewClient,
	}
}

// CreateBackend opens the configured store, attaches the optional AMQP
// notifier and loads the ledger. A store that cannot be loaded is fatal.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.CreateStore(config)
	if err != nil {
		return nil, err
	}

	svc := services.NewLedgerService(store, f.createNotifier(config))
	if err := svc.Load(ctx); err != nil {
		svc.Close()
		return nil, err
	}

	l, version := svc.Snapshot()
	f.logger.Info("Ledger ready",
		"backend", config.Type,
		"transactions", l.Len(),
		"version", version)

	return &BackendResult{
		Ledger:  svc,
		Store:   store,
		Cleanup: svc.Close,
	}, nil
}

// CreateStore opens the configured store without loading it.
func (f *DefaultFactory) CreateStore(config Config) (ledger.Store, error) {
	switch config.Type {
	case CSVBackend:
		f.logger.Info("Initialized csv backend", "path", config.LedgerPath)
		return csvfile.New(config.LedgerPath), nil

	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil

	case MemoryBackend:
		if config.MemorySeedFile == "" {
			f.logger.Info("Initialized memory backend")
			return memory.New(), nil
		}
		store, err := memory.NewFromFile(config.MemorySeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
		f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile)
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// createNotifier returns nil when AMQP is disabled or unreachable; the
// ledger works without events.
func (f *DefaultFactory) createNotifier(config Config) services.Notifier {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
