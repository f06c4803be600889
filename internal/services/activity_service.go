package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"evergreen/internal/amqp"
	"evergreen/internal/core"
	"evergreen/internal/log"
)

// ActivityLog persists the per-user activity feed.
type ActivityLog interface {
	AppendActivity(ctx context.Context, a core.Activity) error
	RecentActivity(ctx context.Context, email string, limit int) ([]core.Activity, error)
}

// Publisher hands activity to the broker for asynchronous persistence.
type Publisher interface {
	PublishActivity(ctx context.Context, msg *amqp.ActivityMessage) error
}

// ActivityService records dashboard actions. With a publisher the event goes
// through AMQP and the worker writes it; without one, or when publishing
// fails, it is written straight to the log.
type ActivityService struct {
	log       ActivityLog
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time
}

func NewActivityService(activityLog ActivityLog, publisher Publisher, logger *log.Logger) *ActivityService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ActivityService{
		log:       activityLog,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentActivity),
		now:       time.Now,
	}
}

// Record never fails the calling request; problems are logged.
func (s *ActivityService) Record(ctx context.Context, email string, kind core.ActivityKind, detail string) {
	if s == nil || email == "" {
		return
	}
	a := core.Activity{UserEmail: email, Kind: kind, Detail: detail, OccurredAt: s.now()}

	if s.publisher != nil {
		err := s.publisher.PublishActivity(ctx, amqp.NewActivityMessage(a))
		if err == nil {
			return
		}
		s.logger.WarnContext(ctx, "Failed to publish activity, writing directly",
			log.FieldActivityKind, kind, log.FieldError, err)
	}

	if err := s.log.AppendActivity(ctx, a); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record activity",
			log.FieldActivityKind, kind, log.FieldError, err)
	}
}

// Recent returns up to limit entries for email, newest first.
func (s *ActivityService) Recent(ctx context.Context, email string, limit int) ([]core.Activity, error) {
	items, err := s.log.RecentActivity(ctx, email, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return items, nil
}

// MemoryActivityLog is the in-process ActivityLog used with the memory
// session backend.
type MemoryActivityLog struct {
	mu      sync.RWMutex
	entries map[string][]core.Activity
	keep    int
	nextID  int64
}

func NewMemoryActivityLog(keep int) *MemoryActivityLog {
	if keep < 1 {
		keep = 50
	}
	return &MemoryActivityLog{entries: make(map[string][]core.Activity), keep: keep}
}

func (m *MemoryActivityLog) AppendActivity(ctx context.Context, a core.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	list := append([]core.Activity{a}, m.entries[a.UserEmail]...)
	if len(list) > m.keep {
		list = list[:m.keep]
	}
	m.entries[a.UserEmail] = list
	return nil
}

func (m *MemoryActivityLog) RecentActivity(ctx context.Context, email string, limit int) ([]core.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.entries[email]
	if limit < len(list) {
		list = list[:limit]
	}
	out := make([]core.Activity, len(list))
	copy(out, list)
	return out, nil
}
