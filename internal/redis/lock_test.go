package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockKeyIsPerVendorAndDate(t *testing.T) {
	vendor := uuid.MustParse("7f1c5a8e-0d7e-4c1b-9a55-3f0f3b6c2d11")
	day := time.Date(2026, 5, 2, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, "lock:vendor:7f1c5a8e-0d7e-4c1b-9a55-3f0f3b6c2d11:2026-05-02", LockKey(vendor, day))
	assert.NotEqual(t, LockKey(vendor, day), LockKey(vendor, day.AddDate(0, 0, 1)))
	assert.NotEqual(t, LockKey(vendor, day), LockKey(uuid.New(), day))
}

func TestWithVendorDayLock_UnreachableRedisSkipsFn(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisVendorDayLocker(client, time.Second)
	called := false
	err := locker.WithVendorDayLock(context.Background(), uuid.New(), time.Now(), func(context.Context) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLockNotAcquired))
	assert.Contains(t, err.Error(), "acquire vendor day lock")
	assert.False(t, called)
}
