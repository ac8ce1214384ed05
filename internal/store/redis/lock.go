package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/lbsync/internal/logger"
)

const (
	// DefaultLockTTL bounds how long a crashed holder keeps others waiting
	DefaultLockTTL = 2 * time.Minute

	lockPollInterval = 100 * time.Millisecond
	lockPollMax      = 2 * time.Second
	releaseTimeout   = 2 * time.Second
	minRenewInterval = 50 * time.Millisecond
)

// ErrLockHeld means another holder owns the lock
var ErrLockHeld = errors.New("lock held by another replica")

// releaseScript deletes the key only when it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry back only while the key carries our token
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Lock is a single-key distributed mutex (SET NX PX + compare-and-delete).
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger logger.Logger
}

// NewLock creates a lock on key
func NewLock(client *redis.Client, key string, ttl time.Duration, log logger.Logger) *Lock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Lock{client: client, key: key, ttl: ttl, logger: log}
}

// TryAcquire takes the lock if it is free and returns its token
func (l *Lock) TryAcquire(ctx context.Context) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return "", ErrLockHeld
	}
	return token, nil
}

// Acquire waits until the lock is taken or ctx is done
func (l *Lock) Acquire(ctx context.Context) (func(), error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = lockPollInterval
	b.MaxInterval = lockPollMax
	b.MaxElapsedTime = 0

	var token string
	err := backoff.Retry(func() error {
		t, err := l.TryAcquire(ctx)
		if err != nil {
			if errors.Is(err, ErrLockHeld) {
				return err
			}
			return backoff.Permanent(err)
		}
		token = t
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, err
	}

	l.logger.Debug("lock acquired", logger.String("key", l.key))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.keepAlive(token, stop)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			l.release(token)
		})
	}, nil
}

// renewInterval leaves two renewals per TTL before the key can expire.
func renewInterval(ttl time.Duration) time.Duration {
	return max(ttl/3, minRenewInterval)
}

// keepAlive extends the TTL while the holder runs, so a pass longer than
// the TTL is not overlapped by another replica. It stops on release or
// once the lock is lost.
func (l *Lock) keepAlive(token string, stop <-chan struct{}) {
	ticker := time.NewTicker(renewInterval(l.ttl))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ok, err := l.extend(token)
			if err != nil {
				l.logger.Warn("failed to extend lock", logger.String("key", l.key), logger.Error(err))
				continue
			}
			if !ok {
				l.logger.Error("lock lost while held", logger.String("key", l.key), logger.Duration("ttl", l.ttl))
				return
			}
		}
	}
}

func (l *Lock) extend(token string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	n, err := extendScript.Run(ctx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// release uses its own context: the pass context may already be done.
func (l *Lock) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
	switch {
	case err != nil:
		l.logger.Warn("failed to release lock", logger.String("key", l.key), logger.Error(err))
	case n == 0:
		l.logger.Warn("lock expired before release", logger.String("key", l.key), logger.Duration("ttl", l.ttl))
	default:
		l.logger.Debug("lock released", logger.String("key", l.key))
	}
}
