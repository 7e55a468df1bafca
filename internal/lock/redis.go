package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/theatre-ticketing/internal/model"
)

// releaseScript deletes the lock only when it still carries our token, so a
// holder whose TTL expired cannot release a lock taken over by someone else.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisLocker implements Locker with SET key token NX PX ttl.  Every key is
// an independent Redis entry so different seats never contend.
type RedisLocker struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	token  func() string
}

// RedisOptions configures a RedisLocker.  Zero values fall back to
// defaults: prefix "lock", TTL 5s, wait 2s, retry every 25ms.
type RedisOptions struct {
	Prefix string
	TTL    time.Duration
	Wait   time.Duration
	Retry  time.Duration
}

// NewRedisLocker panics on a nil client.
func NewRedisLocker(rdb redis.Cmdable, opts RedisOptions) *RedisLocker {
	if rdb == nil {
		panic("lock: nil redis client")
	}
	if opts.Prefix == "" {
		opts.Prefix = "lock"
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Second
	}
	if opts.Wait <= 0 {
		opts.Wait = 2 * time.Second
	}
	if opts.Retry <= 0 {
		opts.Retry = 25 * time.Millisecond
	}
	return &RedisLocker{
		rdb:    rdb,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		wait:   opts.Wait,
		retry:  opts.Retry,
		token:  uuid.NewString,
	}
}

// Acquire polls SET NX until it wins or the wait elapses.  Redis errors
// are reported as transient.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	rkey := l.prefix + ":" + key
	token := l.token()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, rkey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redis lock %s: %w: %w", rkey, model.ErrTransient, err)
		}
		if ok {
			return func() {
				// the request context may already be cancelled; release anyway.
				rctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, l.rdb, []string{rkey}, token).Err()
			}, nil
		}
		if !time.Now().Add(l.retry).Before(deadline) {
			return nil, fmt.Errorf("redis lock %s: %w", rkey, model.ErrLockTimeout)
		}
		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("redis lock %s: %w: %w", rkey, model.ErrTransient, ctx.Err())
		case <-t.C:
		}
	}
}
