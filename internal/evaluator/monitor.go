// Package evaluator 生命体征报警评估
package evaluator

import (
	"context"
	"fmt"
	"time"

	"wisefido-vitals/internal/models"
	"wisefido-vitals/internal/registry"

	"go.uber.org/zap"
)

// AlarmEventStore 报警事件持久化（repository.AlarmEventsRepository 实现）
type AlarmEventStore interface {
	CreateAlarmEvent(ctx context.Context, event *models.AlarmEvent) error
}

// RealtimeCache 实时数据与报警缓存（consumer.CacheManager 实现）
type RealtimeCache interface {
	SetRealtimeData(ctx context.Context, data *models.RealtimeData) error
	UpdateAlarmCache(ctx context.Context, event *models.AlarmEvent) error
}

// Broadcaster 实时推送（ws.Hub 实现）
type Broadcaster interface {
	Broadcast(patientID string, msg *models.LiveMessage)
}

// Sinks 评估结果下游，均可为空
type Sinks struct {
	Events AlarmEventStore
	Cache  RealtimeCache
	Live   Broadcaster
}

// Observation 单次采样的评估结果
type Observation struct {
	PatientID     string             `json:"patient_id"`
	Sample        models.VitalSample `json:"sample"`
	Level         models.AlertLevel  `json:"level"`
	PreviousLevel models.AlertLevel  `json:"previous_level"`
	Changed       bool               `json:"changed"`
	Event         *models.AlarmEvent `json:"event,omitempty"`
}

// Monitor 采样 -> 存储 -> 评估 -> 下游
type Monitor struct {
	registry *registry.PatientRegistry
	policy   Policy
	sinks    Sinks
	logger   *zap.Logger
}

// NewMonitor 创建评估器
func NewMonitor(reg *registry.PatientRegistry, policy Policy, sinks Sinks, logger *zap.Logger) *Monitor {
	return &Monitor{
		registry: reg,
		policy:   policy,
		sinks:    sinks,
		logger:   logger,
	}
}

// Policy 当前报警策略
func (m *Monitor) Policy() Policy {
	return m.policy
}

// Registry 患者登记表
func (m *Monitor) Registry() *registry.PatientRegistry {
	return m.registry
}

// Observe 处理一条采样：追加、评估，级别变化时生成报警事件
// 只有患者不存在时返回错误；下游失败只记录日志。
func (m *Monitor) Observe(ctx context.Context, patientID string, sample models.VitalSample, source string) (*Observation, error) {
	record, err := m.registry.Get(patientID)
	if err != nil {
		return nil, err
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}

	window, seq := record.Observe(sample)
	// 评估在快照上进行，不持有患者锁
	level := m.policy.Classify(window)
	prev, changed := record.CommitLevel(seq, level)

	obs := &Observation{
		PatientID:     patientID,
		Sample:        sample,
		Level:         level,
		PreviousLevel: prev,
		Changed:       changed,
	}

	if changed {
		event, err := m.buildEvent(patientID, prev, level, sample, source)
		if err != nil {
			m.logger.Error("Failed to build alarm event",
				zap.String("patient_id", patientID),
				zap.Error(err),
			)
		} else {
			obs.Event = event
			m.dispatchAlarm(ctx, event)
		}
	}

	m.publishRealtime(ctx, record.SampleCount(), obs)
	return obs, nil
}

func (m *Monitor) buildEvent(patientID string, prev, level models.AlertLevel, sample models.VitalSample, source string) (*models.AlarmEvent, error) {
	thresholds := m.policy.ThresholdsFor(level)
	if thresholds == nil {
		// 恢复事件记录恢复前的阈值
		thresholds = m.policy.ThresholdsFor(prev)
	}
	triggerData := BuildTriggerData(sample, m.policy.WindowSize, thresholds, source)

	event, err := NewAlarmEventBuilder(patientID).BuildTransitionEvent(prev, level, triggerData, map[string]interface{}{
		"trigger_source": source,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build transition event: %w", err)
	}
	return event, nil
}

func (m *Monitor) dispatchAlarm(ctx context.Context, event *models.AlarmEvent) {
	m.logger.Info("Alert level changed",
		zap.String("patient_id", event.PatientID),
		zap.String("previous_level", event.PreviousLevel),
		zap.String("alarm_level", event.AlarmLevel),
		zap.String("event_id", event.EventID),
	)

	if m.sinks.Events != nil {
		if err := m.sinks.Events.CreateAlarmEvent(ctx, event); err != nil {
			m.logger.Error("Failed to create alarm event",
				zap.String("event_id", event.EventID),
				zap.Error(err),
			)
		}
	}
	if m.sinks.Cache != nil {
		if err := m.sinks.Cache.UpdateAlarmCache(ctx, event); err != nil {
			m.logger.Error("Failed to update alarm cache",
				zap.String("patient_id", event.PatientID),
				zap.Error(err),
			)
		}
	}
	if m.sinks.Live != nil {
		m.sinks.Live.Broadcast(event.PatientID, &models.LiveMessage{
			Event:     models.LiveEventAlarm,
			PatientID: event.PatientID,
			Level:     models.ParseAlertLevel(event.AlarmLevel),
			Alarm:     event,
		})
	}
}

func (m *Monitor) publishRealtime(ctx context.Context, samples int, obs *Observation) {
	if m.sinks.Cache != nil {
		sample := obs.Sample
		data := &models.RealtimeData{
			PatientID: obs.PatientID,
			Latest:    &sample,
			Level:     obs.Level,
			Samples:   samples,
			Timestamp: sample.Timestamp.Unix(),
		}
		if err := m.sinks.Cache.SetRealtimeData(ctx, data); err != nil {
			m.logger.Debug("Failed to set realtime data",
				zap.String("patient_id", obs.PatientID),
				zap.Error(err),
			)
		}
	}
	if m.sinks.Live != nil {
		sample := obs.Sample
		m.sinks.Live.Broadcast(obs.PatientID, &models.LiveMessage{
			Event:     models.LiveEventSample,
			PatientID: obs.PatientID,
			Sample:    &sample,
			Level:     obs.Level,
		})
	}
}
