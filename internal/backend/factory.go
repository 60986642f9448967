package backend

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/api"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/source"
	"fintrack/internal/source/memory"
	"fintrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentSource),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		src source.Source
		err error
	)
	switch config.Type {
	case APIBackend:
		src = f.createAPISource(config)
	case MemoryBackend:
		src, err = f.createMemorySource(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	// Snapshot store (optional)
	var store services.SnapshotStore
	if config.SQLiteDBPath != "" {
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		f.logger.InfoContext(ctx, "Initialized snapshot store", "db_path", config.SQLiteDBPath)
	}

	// AMQP client (optional)
	var (
		amqpClient *amqp.Client
		publisher  services.RefreshPublisher
	)
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without refresh messages", log.FieldError, err)
			amqpClient = nil
		} else {
			publisher = amqpClient
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewTransactionService(src, store, publisher, f.logger)

	f.logger.InfoContext(ctx, "Initialized backend",
		"backend", config.Type,
		"store_enabled", store != nil,
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Source:  src,
		Service: svc,
		AMQP:    amqpClient,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) createAPISource(config Config) source.Source {
	opts := []api.Option{api.WithLogger(f.logger)}
	if config.APITimeout > 0 {
		opts = append(opts, api.WithTimeout(config.APITimeout))
	}
	f.logger.Info("Initialized API backend", "base_url", config.APIBaseURL)
	return api.NewClient(config.APIBaseURL, api.NewSession(config.APIToken), opts...)
}

func (f *DefaultFactory) createMemorySource(config Config) (source.Source, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
	return store, nil
}

var (
	_ source.Source = (*api.Client)(nil)
	_ source.Source = (*memory.Store)(nil)
)
