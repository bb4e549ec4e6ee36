package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	lockDB  = 0
	queueDB = 1

	ioTimeout = 2 * time.Second
)

// Options addresses the Redis instance shared by vendor-day locks and the task queue.
type Options struct {
	Addr     string
	Username string
	Password string
}

// NewRedisClient connects the lock client and fails fast when Redis is unreachable.
func NewRedisClient(ctx context.Context, opt Options) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opt.Addr,
		Username:     opt.Username,
		Password:     opt.Password,
		DB:           lockDB,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
		PoolSize:     20,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}
	return rdb, nil
}

// AsynqOpt keeps queue keys on their own DB so lock scans never see them.
func AsynqOpt(opt Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:         opt.Addr,
		Username:     opt.Username,
		Password:     opt.Password,
		DB:           queueDB,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}
}
