package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const defaultRetryInterval = 25 * time.Millisecond

var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

var refreshScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('PEXPIRE', KEYS[1], ARGV[2])
	end
	return 0
`)

// RedisLocker holds keys across processes with SET NX PX. The TTL bounds how
// long a crashed holder can block others; a live holder refreshes it every
// third of the TTL until unlock, so slow sales calls keep the key.
type RedisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis locker requires a client")
	}
	if ttl <= 0 {
		return nil, errors.New("redis locker requires a positive ttl")
	}
	return &RedisLocker{client: client, ttl: ttl, retryInterval: defaultRetryInterval}, nil
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}

	refreshCtx, stopRefresh := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.refresh(refreshCtx, key, token)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopRefresh()
			<-done
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("lock_key", key).Msg("Failed to release booking lock")
			}
		})
	}, nil
}

// refresh extends key's TTL while this holder still owns it. It stops when
// ctx ends or the key was lost to expiry.
func (r *RedisLocker) refresh(ctx context.Context, key, token string) {
	ticker := time.NewTicker(max(r.ttl/3, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		held, err := refreshScript.Run(ctx, r.client, []string{key}, token, r.ttl.Milliseconds()).Int()
		if err != nil {
			if ctx.Err() == nil {
				log.Ctx(ctx).Warn().Err(err).Str("lock_key", key).Msg("Failed to refresh booking lock")
			}
			continue
		}
		if held == 0 {
			log.Ctx(ctx).Error().Str("lock_key", key).Msg("Booking lock expired while held")
			return
		}
	}
}
