package backend

import (
	"context"

	"evergreen/internal/services"
	"evergreen/internal/session"
)

// Backend is the persistence the web front end needs: session records and
// the activity feed.
type Backend interface {
	session.Store
	services.ActivityLog
	Ping(ctx context.Context) error
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// SQLite
	SQLiteDBPath string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RedisBackend:
		return true
	default:
		return false
	}
}

// Shared reports whether several processes see the same records. The
// activity worker refuses to run against a non-shared backend.
func (bt BackendType) Shared() bool {
	return bt == SQLiteBackend || bt == RedisBackend
}
