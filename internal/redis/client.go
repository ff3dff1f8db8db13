package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"wisefido-vitals/internal/config"

	"github.com/go-redis/redis/v8"
)

// Client Redis 客户端类型别名
type Client = redis.Client

// NewRedisClient 创建 Redis 客户端
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping 测试 Redis 连接
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}

// PublishJSONToStream 以 {data, timestamp} 形式发布 JSON 消息到 Redis Streams
func PublishJSONToStream(ctx context.Context, client *redis.Client, stream string, data interface{}) (string, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal stream message: %w", err)
	}

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"data":      string(jsonBytes),
			"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to stream %s: %w", stream, err)
	}
	return id, nil
}

// ReadStreamJSON 按顺序读取 stream 中全部消息的 data 字段
func ReadStreamJSON(ctx context.Context, client *redis.Client, stream string) ([]string, error) {
	msgs, err := client.XRange(ctx, stream, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream %s: %w", stream, err)
	}
	out := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if v, ok := msg.Values["data"].(string); ok {
			out = append(out, v)
		}
	}
	return out, nil
}
