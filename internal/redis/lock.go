package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired means another writer holds the vendor-day key. Callers
// fail fast and let the client retry; nothing is queued.
var ErrLockNotAcquired = errors.New("vendor day lock not acquired")

// Locker serialises writers on one vendor's bookings for one calendar date.
//
// The lock lives for at most the configured TTL. fn receives a context that is
// cancelled when the TTL runs out, so a transaction still open at that point
// fails on its next statement and rolls back rather than committing after the
// key may have passed to another writer. The Postgres advisory lock taken
// inside that transaction remains the authoritative guard; the Redis key only
// sheds contending writers before they reach the database.
//
// Writes spanning several dates take one lock per date, nested in ascending
// date order.
type Locker interface {
	WithVendorDayLock(ctx context.Context, vendorID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error
}

type redisVendorDayLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisVendorDayLocker returns a SETNX-based Locker. ttl bounds both the key
// lifetime and the time fn may run.
func NewRedisVendorDayLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisVendorDayLocker{
		client: client,
		ttl:    ttl,
	}
}

// LockKey is the Redis key guarding vendorID's bookings on day.
func LockKey(vendorID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("lock:vendor:%s:%s", vendorID.String(), day.Format(time.DateOnly))
}

func (l *redisVendorDayLocker) WithVendorDayLock(ctx context.Context, vendorID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	key := LockKey(vendorID, day)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire vendor day lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	// Release even when ctx is already done; the token check keeps an
	// expired lock that was re-acquired by someone else intact.
	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	held, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(held)
}

// unlockScript deletes key only while it still carries our token.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisVendorDayLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release vendor day lock: %w", err)
	}
	return nil
}
