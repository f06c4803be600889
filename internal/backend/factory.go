package backend

import (
	"context"
	"fmt"

	"evergreen/internal/log"
	"evergreen/internal/services"
	"evergreen/internal/session"
	"evergreen/internal/storage"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case RedisBackend:
		return f.createRedisBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createRedisBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewRedisRepository(config.RedisAddr, config.RedisPassword, config.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis repository: %w", err)
	}
	f.logger.Info("Initialized Redis backend", "addr", config.RedisAddr, "db", config.RedisDB)
	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

// memoryBackend combines the in-process session store and activity log.
type memoryBackend struct {
	*session.MemoryStore
	*services.MemoryActivityLog
}

func (memoryBackend) Ping(ctx context.Context) error { return nil }

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Info("Initialized memory backend")
	return &BackendResult{
		Backend: memoryBackend{
			MemoryStore:       session.NewMemoryStore(),
			MemoryActivityLog: services.NewMemoryActivityLog(50),
		},
	}, nil
}
