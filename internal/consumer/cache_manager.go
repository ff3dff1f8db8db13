package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wisefido-vitals/internal/config"
	"wisefido-vitals/internal/models"
	rediscommon "wisefido-vitals/internal/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// MaxCachedAlarms 每个患者缓存的最近报警条数
const MaxCachedAlarms = 20

// ErrRealtimeNotFound 实时数据不存在或已过期
var ErrRealtimeNotFound = errors.New("realtime data not found")

// CacheManager Redis 缓存管理器（实时快照 + 最近报警 + 报警事件流）
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (c *CacheManager) realtimeKey(patientID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Vitals.Cache.RealtimeKeyPrefix,
		patientID,
		c.config.Vitals.Cache.RealtimeSuffix,
	)
}

func (c *CacheManager) alarmKey(patientID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Vitals.Cache.AlarmKeyPrefix,
		patientID,
		c.config.Vitals.Cache.AlarmSuffix,
	)
}

// SetRealtimeData 写入患者实时快照
func (c *CacheManager) SetRealtimeData(ctx context.Context, data *models.RealtimeData) error {
	if data == nil || data.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime data: %w", err)
	}

	key := c.realtimeKey(data.PatientID)
	ttl := time.Duration(c.config.Vitals.Cache.RealtimeTTL) * time.Second
	if err := c.redisClient.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set realtime cache: %w", err)
	}
	return nil
}

// GetRealtimeData 读取患者实时快照
func (c *CacheManager) GetRealtimeData(ctx context.Context, patientID string) (*models.RealtimeData, error) {
	val, err := c.redisClient.Get(ctx, c.realtimeKey(patientID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w for patient: %s", ErrRealtimeNotFound, patientID)
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var data models.RealtimeData
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal realtime data: %w", err)
	}
	return &data, nil
}

// UpdateAlarmCache 把报警事件插入患者最近报警列表，并发布到报警事件流。
// LPUSH + LTRIM + EXPIRE 在同一个 MULTI 中执行，并发写入同一患者不会丢失事件。
func (c *CacheManager) UpdateAlarmCache(ctx context.Context, event *models.AlarmEvent) error {
	if event == nil || event.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alarm data: %w", err)
	}

	key := c.alarmKey(event.PatientID)
	ttl := time.Duration(c.config.Vitals.Cache.AlarmTTL) * time.Second
	var pushed *redis.IntCmd
	_, err = c.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pushed = pipe.LPush(ctx, key, jsonData)
		pipe.LTrim(ctx, key, 0, MaxCachedAlarms-1)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update alarm cache: %w", err)
	}

	if stream := c.config.Vitals.Cache.AlarmStream; stream != "" {
		if _, err := rediscommon.PublishJSONToStream(ctx, c.redisClient, stream, event); err != nil {
			return fmt.Errorf("failed to publish alarm event: %w", err)
		}
	}

	count := pushed.Val()
	if count > MaxCachedAlarms {
		count = MaxCachedAlarms
	}
	c.logger.Debug("Updated alarm cache",
		zap.String("patient_id", event.PatientID),
		zap.String("key", key),
		zap.Int64("alarm_count", count),
	)
	return nil
}

// GetAlarmCache 读取患者最近报警（新的在前）
func (c *CacheManager) GetAlarmCache(ctx context.Context, patientID string) ([]models.AlarmEvent, error) {
	return c.rangeAlarms(ctx, patientID, -1)
}

// RecentAlarms 从缓存读取最近 limit 条报警（无数据库时使用），limit <= 0 返回全部
func (c *CacheManager) RecentAlarms(ctx context.Context, patientID string, limit int) ([]models.AlarmEvent, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	return c.rangeAlarms(ctx, patientID, stop)
}

func (c *CacheManager) rangeAlarms(ctx context.Context, patientID string, stop int64) ([]models.AlarmEvent, error) {
	vals, err := c.redisClient.LRange(ctx, c.alarmKey(patientID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get alarm cache: %w", err)
	}

	alarms := make([]models.AlarmEvent, 0, len(vals))
	for _, val := range vals {
		var alarm models.AlarmEvent
		if err := json.Unmarshal([]byte(val), &alarm); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alarm cache: %w", err)
		}
		alarms = append(alarms, alarm)
	}
	return alarms, nil
}
