package evaluator

import (
	"encoding/json"
	"fmt"
	"time"

	"wisefido-vitals/internal/models"

	"github.com/google/uuid"
)

// AlarmEventBuilder 报警事件构建器
type AlarmEventBuilder struct {
	patientID string
	now       func() time.Time
}

// NewAlarmEventBuilder 创建报警事件构建器
func NewAlarmEventBuilder(patientID string) *AlarmEventBuilder {
	return &AlarmEventBuilder{
		patientID: patientID,
		now:       time.Now,
	}
}

// BuildTransitionEvent 构建级别变化事件
// 回到 GREEN 时状态为 resolved，其余为 active。
func (b *AlarmEventBuilder) BuildTransitionEvent(
	prev, level models.AlertLevel,
	triggerData *models.TriggerData,
	metadata map[string]interface{},
) (*models.AlarmEvent, error) {
	now := b.now()

	// 序列化 trigger_data
	triggerDataJSON, err := json.Marshal(triggerData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	// 序列化 metadata
	metadataJSON := "{}"
	if metadata != nil {
		metadataBytes, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON = string(metadataBytes)
	}

	status := models.AlarmStatusActive
	if level == models.AlertGreen {
		status = models.AlarmStatusResolved
	}

	return &models.AlarmEvent{
		EventID:       uuid.New().String(),
		PatientID:     b.patientID,
		EventType:     models.EventTypeVitalSignAlert,
		Category:      models.CategoryClinical,
		AlarmLevel:    level.String(),
		PreviousLevel: prev.String(),
		AlarmStatus:   status,
		TriggeredAt:   now,
		TriggerData:   string(triggerDataJSON),
		Metadata:      metadataJSON,
		CreatedAt:     now,
	}, nil
}

// BuildTriggerData 根据最新采样构建触发数据
func BuildTriggerData(sample models.VitalSample, windowSize int, thresholds *Thresholds, source string) *models.TriggerData {
	td := &models.TriggerData{
		HeartRate:     sample.HeartRate,
		SpO2:          sample.SpO2,
		BloodPressure: sample.BloodPressure,
		Temperature:   sample.Temperature,
		SampledAt:     sample.Timestamp,
		WindowSize:    windowSize,
		Source:        source,
	}
	if thresholds != nil {
		td.Threshold = thresholds.ToThresholdData()
	}
	return td
}
