package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plan-assist-core/server/internal/agent/model"
	errx "github.com/plan-assist-core/server/internal/core/error"
	logx "github.com/plan-assist-core/server/pkg/logger"
)

const (
	followUpKeyPrefix = "followup:"
	scanBatch         = 100
)

// RedisFollowUpRepository stores one JSON-encoded PendingFollowUp per session
// key. Keys also carry a TTL so abandoned sessions disappear even without a
// cleanup sweep.
type RedisFollowUpRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisFollowUpRepository(rdb redis.Cmdable, ttl time.Duration) *RedisFollowUpRepository {
	return &RedisFollowUpRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisFollowUpRepository) followUpKey(sessionID string) string {
	return followUpKeyPrefix + sessionID
}

func (r *RedisFollowUpRepository) Save(ctx context.Context, sessionID string, pending model.PendingFollowUp) error {
	b, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending follow-up: %w", err)
	}
	key := r.followUpKey(sessionID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save follow-up to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisFollowUpRepository) Get(ctx context.Context, sessionID string) (*model.PendingFollowUp, error) {
	return r.read(ctx, r.rdb.Get(ctx, r.followUpKey(sessionID)))
}

// Take uses GETDEL so two concurrent turns cannot both consume the same
// follow-up.
func (r *RedisFollowUpRepository) Take(ctx context.Context, sessionID string) (*model.PendingFollowUp, error) {
	return r.read(ctx, r.rdb.GetDel(ctx, r.followUpKey(sessionID)))
}

func (r *RedisFollowUpRepository) read(_ context.Context, cmd *redis.StringCmd) (*model.PendingFollowUp, error) {
	b, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Msg("failed to read follow-up from redis")
		return nil, errx.WrapRedis(err)
	}
	var p model.PendingFollowUp
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("unmarshal pending follow-up: %w", err)
	}
	return &p, nil
}

func (r *RedisFollowUpRepository) Delete(ctx context.Context, sessionID string) error {
	key := r.followUpKey(sessionID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete follow-up from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisFollowUpRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	err := r.scan(ctx, func(key string) error {
		p, err := r.read(ctx, r.rdb.Get(ctx, key))
		if err != nil {
			logx.Warn().Err(err).Str("key", key).Msg("skipping unreadable follow-up")
			return nil
		}
		if p == nil || !p.CreatedAt.Before(cutoff) {
			return nil
		}
		if err := r.rdb.Del(ctx, key).Err(); err != nil {
			return errx.WrapRedis(err)
		}
		removed++
		return nil
	})
	return removed, err
}

func (r *RedisFollowUpRepository) Count(ctx context.Context) (int, error) {
	n := 0
	err := r.scan(ctx, func(string) error {
		n++
		return nil
	})
	return n, err
}

func (r *RedisFollowUpRepository) scan(ctx context.Context, fn func(key string) error) error {
	// SCAN may return a key more than once
	seen := make(map[string]struct{})
	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, followUpKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			logx.Error().Err(err).Msg("failed to scan follow-up keys")
			return errx.WrapRedis(err)
		}
		for _, k := range keys {
			if _, dup := seen[k]; dup || !strings.HasPrefix(k, followUpKeyPrefix) {
				continue
			}
			seen[k] = struct{}{}
			if err := fn(k); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

var _ model.FollowUpRepository = (*RedisFollowUpRepository)(nil)
