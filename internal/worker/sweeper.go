package worker

import (
	"context"
	"time"

	"evergreen/internal/log"
)

// SessionPurger drops session records past their expiry.
type SessionPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// ActivityPruner drops activity entries older than a cutoff. Only the sqlite
// backend needs it; redis trims its lists on write.
type ActivityPruner interface {
	PruneActivity(ctx context.Context, before time.Time) (int, error)
}

// DefaultActivityRetention is how long activity entries are kept.
const DefaultActivityRetention = 90 * 24 * time.Hour

// Sweeper removes expired sessions and, when supported, old activity.
type Sweeper struct {
	sessions  SessionPurger
	activity  ActivityPruner
	retention time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    *log.Logger
}

// NewSweeper builds a sweeper for store. Activity pruning is enabled when
// store also implements ActivityPruner.
func NewSweeper(store SessionPurger, retention time.Duration, logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.Discard()
	}
	if retention <= 0 {
		retention = DefaultActivityRetention
	}
	s := &Sweeper{
		sessions:  store,
		retention: retention,
		timeout:   time.Minute,
		now:       time.Now,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
	if p, ok := store.(ActivityPruner); ok {
		s.activity = p
	}
	return s
}

// Sweep runs one pass. Failures are logged; the next scheduled pass retries.
func (s *Sweeper) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	start := time.Now()
	purged, err := s.sessions.PurgeExpired(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Session sweep failed",
			log.FieldOperation, log.OpSweep,
			log.FieldError, err)
	} else if purged > 0 {
		s.logger.InfoContext(ctx, "Expired sessions removed",
			log.FieldOperation, log.OpSweep,
			"count", purged,
			log.FieldDuration, time.Since(start).Milliseconds())
	}

	if s.activity == nil {
		return
	}
	pruned, err := s.activity.PruneActivity(ctx, now.Add(-s.retention))
	if err != nil {
		s.logger.ErrorContext(ctx, "Activity prune failed",
			log.FieldOperation, log.OpSweep,
			log.FieldError, err)
		return
	}
	if pruned > 0 {
		s.logger.InfoContext(ctx, "Old activity removed", "count", pruned)
	}
}
