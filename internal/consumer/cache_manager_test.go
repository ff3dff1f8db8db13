package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"wisefido-vitals/internal/config"
	"wisefido-vitals/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client, *CacheManager) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cfg := &config.Config{}
	cfg.Vitals.Cache.RealtimeKeyPrefix = "vital-focus:patient:"
	cfg.Vitals.Cache.RealtimeSuffix = ":realtime"
	cfg.Vitals.Cache.RealtimeTTL = 60
	cfg.Vitals.Cache.AlarmKeyPrefix = "vital-focus:patient:"
	cfg.Vitals.Cache.AlarmSuffix = ":alarms"
	cfg.Vitals.Cache.AlarmTTL = 30
	cfg.Vitals.Cache.AlarmStream = "vitals:alarm:stream"

	cacheManager := NewCacheManager(cfg, redisClient, zap.NewNop())
	return mr, redisClient, cacheManager
}

func newAlarm(patientID, level string) *models.AlarmEvent {
	return &models.AlarmEvent{
		EventID:     uuid.New().String(),
		PatientID:   patientID,
		EventType:   models.EventTypeVitalSignAlert,
		Category:    models.CategoryClinical,
		AlarmLevel:  level,
		AlarmStatus: models.AlarmStatusActive,
		TriggeredAt: time.Now(),
		TriggerData: "{}",
		Metadata:    "{}",
	}
}

func TestCacheManager_RealtimeData_RoundTrip(t *testing.T) {
	mr, _, cacheManager := setupTestRedis(t)
	ctx := context.Background()

	sample := models.VitalSample{Timestamp: time.Now(), HeartRate: 72, SpO2: 97, BloodPressure: 120, Temperature: 36.6}
	err := cacheManager.SetRealtimeData(ctx, &models.RealtimeData{
		PatientID: "P001",
		Latest:    &sample,
		Level:     models.AlertYellow,
		Samples:   12,
		Timestamp: sample.Timestamp.Unix(),
	})
	require.NoError(t, err)

	key := "vital-focus:patient:P001:realtime"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 60*time.Second, mr.TTL(key))

	// 级别以名称写入
	raw, err := mr.Get(key)
	require.NoError(t, err)
	assert.Contains(t, raw, `"level":"YELLOW"`)

	data, err := cacheManager.GetRealtimeData(ctx, "P001")
	require.NoError(t, err)
	assert.Equal(t, models.AlertYellow, data.Level)
	assert.Equal(t, 12, data.Samples)
	require.NotNil(t, data.Latest)
	assert.Equal(t, 72, data.Latest.HeartRate)
}

func TestCacheManager_GetRealtimeData_NotFound(t *testing.T) {
	_, _, cacheManager := setupTestRedis(t)

	_, err := cacheManager.GetRealtimeData(context.Background(), "missing")

	assert.True(t, errors.Is(err, ErrRealtimeNotFound))
}

func TestCacheManager_SetRealtimeData_RequiresPatient(t *testing.T) {
	_, _, cacheManager := setupTestRedis(t)

	assert.Error(t, cacheManager.SetRealtimeData(context.Background(), &models.RealtimeData{}))
	assert.Error(t, cacheManager.SetRealtimeData(context.Background(), nil))
}

func TestCacheManager_UpdateAlarmCache(t *testing.T) {
	mr, redisClient, cacheManager := setupTestRedis(t)
	ctx := context.Background()

	first := newAlarm("P001", "YELLOW")
	second := newAlarm("P001", "RED")
	require.NoError(t, cacheManager.UpdateAlarmCache(ctx, first))
	require.NoError(t, cacheManager.UpdateAlarmCache(ctx, second))

	alarms, err := cacheManager.GetAlarmCache(ctx, "P001")
	require.NoError(t, err)
	require.Len(t, alarms, 2)
	assert.Equal(t, second.EventID, alarms[0].EventID)
	assert.Equal(t, first.EventID, alarms[1].EventID)
	assert.Equal(t, 30*time.Second, mr.TTL("vital-focus:patient:P001:alarms"))

	// 报警事件流
	msgs, err := redisClient.XRange(ctx, "vitals:alarm:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	var streamed models.AlarmEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &streamed))
	assert.Equal(t, first.EventID, streamed.EventID)
}

func TestCacheManager_UpdateAlarmCache_Trims(t *testing.T) {
	_, _, cacheManager := setupTestRedis(t)
	ctx := context.Background()

	var last *models.AlarmEvent
	for i := 0; i < MaxCachedAlarms+5; i++ {
		last = newAlarm("P002", "RED")
		require.NoError(t, cacheManager.UpdateAlarmCache(ctx, last))
	}

	alarms, err := cacheManager.GetAlarmCache(ctx, "P002")
	require.NoError(t, err)
	assert.Len(t, alarms, MaxCachedAlarms)
	assert.Equal(t, last.EventID, alarms[0].EventID)
}

func TestCacheManager_UpdateAlarmCache_Concurrent(t *testing.T) {
	mr, _, cacheManager := setupTestRedis(t)
	ctx := context.Background()

	const n = 15
	ids := make(map[string]bool, n)
	events := make([]*models.AlarmEvent, n)
	for i := range events {
		events[i] = newAlarm("P004", "RED")
		ids[events[i].EventID] = true
	}

	var wg sync.WaitGroup
	for _, event := range events {
		wg.Add(1)
		go func(event *models.AlarmEvent) {
			defer wg.Done()
			assert.NoError(t, cacheManager.UpdateAlarmCache(ctx, event))
		}(event)
	}
	wg.Wait()

	alarms, err := cacheManager.GetAlarmCache(ctx, "P004")
	require.NoError(t, err)
	require.Len(t, alarms, n)
	for _, alarm := range alarms {
		assert.True(t, ids[alarm.EventID], alarm.EventID)
		delete(ids, alarm.EventID)
	}
	assert.Empty(t, ids)
	assert.Equal(t, 30*time.Second, mr.TTL("vital-focus:patient:P004:alarms"))
}

func TestCacheManager_GetAlarmCache_Empty(t *testing.T) {
	_, _, cacheManager := setupTestRedis(t)

	alarms, err := cacheManager.GetAlarmCache(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, alarms)
}

func TestCacheManager_RecentAlarms(t *testing.T) {
	_, _, cacheManager := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, cacheManager.UpdateAlarmCache(ctx, newAlarm("P003", "YELLOW")))
	}

	alarms, err := cacheManager.RecentAlarms(ctx, "P003", 2)
	require.NoError(t, err)
	assert.Len(t, alarms, 2)

	alarms, err = cacheManager.RecentAlarms(ctx, "P003", 0)
	require.NoError(t, err)
	assert.Len(t, alarms, 3)
}
