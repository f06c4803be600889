package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"evergreen/internal/core"
	"evergreen/internal/session"
)

const (
	redisKeyPrefix = "evergreen:"
	// activityKeep bounds the per-user activity list.
	activityKeep = 50
)

// RedisRepository stores sessions as JSON strings with a native TTL and the
// activity feed as a capped list per user.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository connects and pings the server.
func NewRedisRepository(addr, password string, db int) (*RedisRepository, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisRepository{client: rdb}, nil
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func sessionKey(id string) string {
	return redisKeyPrefix + "session:" + id
}

func activityKey(email string) string {
	return redisKeyPrefix + "activity:" + email
}

// sessionTTL is the remaining lifetime of s; zero means already expired.
func sessionTTL(s *session.Session, now time.Time) time.Duration {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	ttl := s.ExpiresAt.Sub(now)
	if ttl < time.Second {
		return 0
	}
	return ttl
}

func (r *RedisRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisRepository) Save(ctx context.Context, s *session.Session) error {
	ttl := sessionTTL(s, time.Now())
	if ttl == 0 {
		return r.Delete(ctx, s.ID)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op: Redis expires session keys on its own.
func (r *RedisRepository) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

type redisActivity struct {
	Kind       core.ActivityKind `json:"kind"`
	Detail     string            `json:"detail"`
	OccurredAt int64             `json:"occurred_at"`
}

func (r *RedisRepository) AppendActivity(ctx context.Context, a core.Activity) error {
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now()
	}
	data, err := json.Marshal(redisActivity{Kind: a.Kind, Detail: a.Detail, OccurredAt: a.OccurredAt.Unix()})
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	key := activityKey(a.UserEmail)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, activityKeep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func (r *RedisRepository) RecentActivity(ctx context.Context, email string, limit int) ([]core.Activity, error) {
	if limit <= 0 {
		return nil, nil
	}
	items, err := r.client.LRange(ctx, activityKey(email), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return decodeActivity(email, items), nil
}

// decodeActivity skips entries that fail to decode.
func decodeActivity(email string, items []string) []core.Activity {
	out := make([]core.Activity, 0, len(items))
	for _, raw := range items {
		var ra redisActivity
		if err := json.Unmarshal([]byte(raw), &ra); err != nil {
			continue
		}
		out = append(out, core.Activity{
			UserEmail:  email,
			Kind:       ra.Kind,
			Detail:     ra.Detail,
			OccurredAt: time.Unix(ra.OccurredAt, 0),
		})
	}
	return out
}
