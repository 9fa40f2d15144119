package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/FrankyKyaw/instapay/internal/config"
	"github.com/FrankyKyaw/instapay/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	settleLockPrefix = "settle_lock:"  // 结算锁key前缀
	taskStatusPrefix = "task_status:"  // 任务状态缓存key前缀
	settleLockTTL    = 1 * time.Minute // 结算锁过期时间
	taskStatusTTL    = 30 * time.Minute
)

// Client Redis客户端封装：结算锁与任务状态缓存
type Client struct {
	rdb *redis.Client
}

func Init(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connected: %s", cfg.Addr)
	return &Client{rdb: rdb}, nil
}

// TryLockSettlement 尝试获取任务结算锁（SetNX），返回是否获取成功
func (c *Client) TryLockSettlement(ctx context.Context, taskId int64) bool {
	key := fmt.Sprintf("%s%d", settleLockPrefix, taskId)
	ok, err := c.rdb.SetNX(ctx, key, "1", settleLockTTL).Result()
	if err != nil {
		// Redis不可用时放行，由数据库条件更新兜底
		logger.Warn("Redis SetNX failed for task %d: %v", taskId, err)
		return true
	}
	return ok
}

// UnlockSettlement 释放任务结算锁
func (c *Client) UnlockSettlement(ctx context.Context, taskId int64) {
	key := fmt.Sprintf("%s%d", settleLockPrefix, taskId)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		logger.Warn("Failed to release settlement lock for task %d: %v", taskId, err)
	}
}

// CacheTaskStatus 缓存任务状态
func (c *Client) CacheTaskStatus(ctx context.Context, taskId int64, status string) {
	key := fmt.Sprintf("%s%d", taskStatusPrefix, taskId)
	if err := c.rdb.Set(ctx, key, status, taskStatusTTL).Err(); err != nil {
		logger.Warn("Failed to cache status for task %d: %v", taskId, err)
	}
}

// GetCachedTaskStatus 获取缓存的任务状态，第二个返回值表示是否命中
func (c *Client) GetCachedTaskStatus(ctx context.Context, taskId int64) (string, bool) {
	key := fmt.Sprintf("%s%d", taskStatusPrefix, taskId)
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		logger.Warn("Failed to get cached status for task %d: %v", taskId, err)
		return "", false
	}
	return val, true
}

// Close 关闭连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
