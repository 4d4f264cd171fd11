// Package distlock keeps two watcher processes from running the same cycle.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/seatwatch/internal/pkg/logger"
)

// ErrNotHeld is returned when extending or releasing a lock this instance no
// longer owns.
var ErrNotHeld = errors.New("distlock: lock not held")

// DistLock is the interface for distributed locking. An instance is used by
// one goroutine at a time.
type DistLock interface {
	// Acquire tries to take the lock without blocking.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock up if this instance still owns it.
	Release(ctx context.Context) error
}

// NewLock picks Redis when a client is given, then Postgres advisory locks,
// and finally a process-local lock when neither backend is configured.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	switch {
	case redisClient != nil:
		return NewRedisLock(redisClient, key, ttl)
	case db != nil:
		return NewPGAdvisoryLock(db, key)
	default:
		return &LocalLock{}
	}
}

// Extender is implemented by locks that expire on their own and must be
// refreshed while held.
type Extender interface {
	Extend(ctx context.Context, ttl time.Duration) error
	TTL() time.Duration
}

// WithLock runs fn while holding lock. ran is false when another holder has
// the lock. Locks that implement Extender are refreshed every third of their
// TTL until fn returns; if the lock is lost, fn's context is cancelled.
// Release uses a detached context so a cancelled cycle still frees the lock.
func WithLock(ctx context.Context, lock DistLock, fn func(ctx context.Context) error) (ran bool, err error) {
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rerr := lock.Release(rctx); rerr != nil && err == nil {
			err = fmt.Errorf("releasing lock: %w", rerr)
		}
	}()

	fctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if e, ok := lock.(Extender); ok && e.TTL() > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keepAlive(fctx, e, cancel)
		}()
	}
	err = fn(fctx)
	cancel()
	wg.Wait()
	return true, err
}

func keepAlive(ctx context.Context, e Extender, lost context.CancelFunc) {
	ticker := time.NewTicker(e.TTL() / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := e.Extend(ctx, e.TTL())
			switch {
			case err == nil:
			case errors.Is(err, ErrNotHeld):
				logger.Warn("distlock: lock lost while held, cancelling", "error", err)
				lost()
				return
			case ctx.Err() != nil:
				return
			default:
				logger.Warn("distlock: extend failed", "error", err)
			}
		}
	}
}

// PGAdvisoryLock implements DistLock with pg_try_advisory_lock. Advisory
// locks belong to a session, so the connection that acquired the lock is
// pinned until Release.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock derives a stable lock ID from key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to take the advisory lock on a dedicated connection.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	if l.conn != nil {
		return false, errors.New("distlock: advisory lock already acquired by this instance")
	}
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("advisory lock connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("advisory lock %d: %w", l.lockID, err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release unlocks and returns the pinned connection to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return ErrNotHeld
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()

	var released bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID).Scan(&released); err != nil {
		return fmt.Errorf("advisory unlock %d: %w", l.lockID, err)
	}
	if !released {
		return ErrNotHeld
	}
	return nil
}

// LocalLock is an in-process DistLock for single-instance development runs.
type LocalLock struct {
	mu   sync.Mutex
	held bool
}

// Acquire takes the lock if it is free.
func (l *LocalLock) Acquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

// Release frees the lock.
func (l *LocalLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return ErrNotHeld
	}
	l.held = false
	return nil
}
