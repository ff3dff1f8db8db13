package models

import (
	"time"
)

// AlarmEvent 报警事件（对应 vital_alarm_events 表）
type AlarmEvent struct {
	EventID       string    `json:"event_id" db:"event_id"`
	PatientID     string    `json:"patient_id" db:"patient_id"`
	EventType     string    `json:"event_type" db:"event_type"`
	Category      string    `json:"category" db:"category"`             // clinical
	AlarmLevel    string    `json:"alarm_level" db:"alarm_level"`       // GREEN, YELLOW, RED
	PreviousLevel string    `json:"previous_level" db:"previous_level"` // 变化前级别
	AlarmStatus   string    `json:"alarm_status" db:"alarm_status"`     // active, resolved
	TriggeredAt   time.Time `json:"triggered_at" db:"triggered_at"`
	TriggerData   string    `json:"trigger_data" db:"trigger_data"` // JSONB
	Metadata      string    `json:"metadata" db:"metadata"`         // JSONB
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

const (
	EventTypeVitalSignAlert = "VitalSignAlert"
	CategoryClinical        = "clinical"
	AlarmStatusActive       = "active"
	AlarmStatusResolved     = "resolved"
)

// TriggerData 触发数据快照（JSONB 结构）
type TriggerData struct {
	HeartRate     int            `json:"heart_rate"`
	SpO2          int            `json:"spo2"`
	BloodPressure int            `json:"blood_pressure"`
	Temperature   float64        `json:"temperature"`
	SampledAt     time.Time      `json:"sampled_at"`
	WindowSize    int            `json:"window_size"`
	Threshold     *ThresholdData `json:"threshold,omitempty"`
	Source        string         `json:"source"` // http, mqtt, simulator
}

// ThresholdData 触发时使用的阈值
type ThresholdData struct {
	HeartRateAbove     int     `json:"heart_rate_above"`
	SpO2Below          int     `json:"spo2_below"`
	BloodPressureAbove int     `json:"blood_pressure_above"`
	TemperatureAbove   float64 `json:"temperature_above"`
}

// RealtimeData 患者实时快照（写入 Redis，供前端读取）
type RealtimeData struct {
	PatientID string       `json:"patient_id"`
	Latest    *VitalSample `json:"latest,omitempty"`
	Level     AlertLevel   `json:"level"`
	Samples   int          `json:"samples"`
	Timestamp int64        `json:"timestamp"`
}
