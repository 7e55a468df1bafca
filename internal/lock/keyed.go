// Package lock provides per-key mutual exclusion with bounded waiting.
// Keyed serialises goroutines of one process; RedisLocker serialises
// processes sharing a Redis server.  Both scope exclusion to a single key
// so that unrelated keys never wait on each other.
package lock

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/iliyamo/theatre-ticketing/internal/model"
)

// Locker acquires an exclusive lock on key.  The returned release function
// must be called exactly once.  Implementations give up after their
// configured wait and return an error matching model.ErrLockTimeout.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Nop is a Locker that never blocks.  It is used when the storage layer
// already enforces uniqueness on its own (a unique index).
type Nop struct{}

// Acquire returns immediately.
func (Nop) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

const keyedShards = 64

type keyEntry struct {
	sem  chan struct{}
	refs int
}

type keyedShard struct {
	mu      sync.Mutex
	entries map[string]*keyEntry
}

// Keyed is an in-process lock table holding one semaphore per live key.
// Entries are created on first use and dropped when the last waiter
// leaves, so memory stays proportional to the number of contended keys.
// The shard mutexes guard only the table bookkeeping, never the wait.
type Keyed struct {
	wait   time.Duration
	shards [keyedShards]keyedShard
}

// NewKeyed returns a lock table whose Acquire gives up after wait.  A
// non-positive wait means "wait until ctx is done".
func NewKeyed(wait time.Duration) *Keyed {
	k := &Keyed{wait: wait}
	for i := range k.shards {
		k.shards[i].entries = make(map[string]*keyEntry)
	}
	return k
}

func (k *Keyed) shard(key string) *keyedShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &k.shards[h.Sum32()%keyedShards]
}

func (k *Keyed) ref(key string) (*keyedShard, *keyEntry) {
	s := k.shard(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &keyEntry{sem: make(chan struct{}, 1)}
		s.entries[key] = e
	}
	e.refs++
	s.mu.Unlock()
	return s, e
}

func (k *Keyed) unref(s *keyedShard, key string, e *keyEntry) {
	s.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(s.entries, key)
	}
	s.mu.Unlock()
}

// Acquire blocks until key is free, the wait elapses or ctx is done.
func (k *Keyed) Acquire(ctx context.Context, key string) (func(), error) {
	s, e := k.ref(key)
	release := func() {
		<-e.sem
		k.unref(s, key, e)
	}

	select {
	case e.sem <- struct{}{}:
		return release, nil
	default:
	}

	var timeout <-chan time.Time
	if k.wait > 0 {
		t := time.NewTimer(k.wait)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case e.sem <- struct{}{}:
		return release, nil
	case <-timeout:
		k.unref(s, key, e)
		return nil, fmt.Errorf("key %s: %w", key, model.ErrLockTimeout)
	case <-ctx.Done():
		k.unref(s, key, e)
		return nil, fmt.Errorf("key %s: %w: %w", key, model.ErrTransient, ctx.Err())
	}
}

// Len reports how many keys currently have holders or waiters.
func (k *Keyed) Len() int {
	n := 0
	for i := range k.shards {
		s := &k.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
