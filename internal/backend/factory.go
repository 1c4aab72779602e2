package backend

import (
	"context"
	"errors"
	"fmt"

	"expensedesk/internal/amqp"
	"expensedesk/internal/auth"
	applog "expensedesk/internal/log"
	"expensedesk/internal/remote/httpapi"
	"expensedesk/internal/remote/memory"
	"expensedesk/internal/storage"
)

// offlineToken stands in for a bearer token on backends that never
// authenticate. It is opaque so it never expires.
const offlineToken = "offline"

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case HTTPBackend:
		res, err = f.createHTTPBackend(config)
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachPublisher(res, config)
	return res, nil
}

func (f *DefaultFactory) createHTTPBackend(config Config) (*BackendResult, error) {
	tokens := auth.NewTokenStore(config.APIToken)
	client, err := httpapi.New(httpapi.Options{
		BaseURL: config.APIBaseURL,
		Timeout: config.RequestTimeout,
		Tokens:  tokens,
		Logger:  f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize HTTP client: %w", err)
	}

	f.logger.Info("Initialized HTTP backend", "base_url", config.APIBaseURL)

	return &BackendResult{
		Remote: client,
		Tokens: tokens,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(ctx, config.SQLiteDBPath, config.LocalUser, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		applog.FieldUser, config.LocalUser.Username)

	return &BackendResult{
		Remote:  repo,
		Tokens:  auth.NewTokenStore(offlineToken),
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	svc := memory.NewFromFiles(dataDir, config.LocalUser)

	f.logger.Info("Initialized memory backend",
		"data_directory", dataDir,
		applog.FieldUser, config.LocalUser.Username)

	return &BackendResult{
		Remote: svc,
		Tokens: auth.NewTokenStore(offlineToken),
	}, nil
}

// attachPublisher connects to the broker when one is configured. A broker
// that cannot be reached leaves the backend without status events.
func (f *DefaultFactory) attachPublisher(res *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without status events", applog.FieldError, err)
		return
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	res.Publisher = client
	res.Cleanup = chainCleanup(res.Cleanup, client.Close)
}

func chainCleanup(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
