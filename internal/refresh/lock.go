package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// ErrTenantBusy is returned when a refresh of the same tenant is already running.
var ErrTenantBusy = errors.New("tenant refresh already in progress")

// TenantLocker grants exclusive refresh rights for one tenant. Lock never
// blocks: it returns ErrTenantBusy when the tenant is held elsewhere.
type TenantLocker interface {
	Lock(ctx context.Context, tenantID string) (unlock func(), err error)
}

// LocalLocker serializes refreshes within one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Lock(_ context.Context, tenantID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[tenantID]; ok {
		return nil, ErrTenantBusy
	}
	l.held[tenantID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, tenantID)
			l.mu.Unlock()
		})
	}, nil
}

// RedisLocker holds a redis lock per tenant so refreshes serialize across
// instances. Redis being unreachable is not fatal: the refresh proceeds and
// the database advisory lock keeps it safe.
type RedisLocker struct {
	client *redislock.Client
	local  *LocalLocker
	ttl    time.Duration
	logger logrus.FieldLogger
}

func NewRedisLocker(client *redislock.Client, ttl time.Duration, logger logrus.FieldLogger) *RedisLocker {
	return &RedisLocker{client: client, local: NewLocalLocker(), ttl: ttl, logger: logger}
}

func (l *RedisLocker) Lock(ctx context.Context, tenantID string) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("lock:refresh:%s", tenantID)
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		unlockLocal()
		return nil, ErrTenantBusy
	} else if err != nil {
		l.logger.WithFields(logrus.Fields{
			"module": "refresh",
			"tenant": tenantID,
		}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
		return unlockLocal, nil
	}

	return func() {
		// The refresh may have been cancelled; release must still reach redis.
		if releaseErr := lock.Release(context.Background()); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
			l.logger.WithFields(logrus.Fields{
				"module": "refresh",
				"tenant": tenantID,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
		unlockLocal()
	}, nil
}
