package models

const (
	LiveEventSample = "sample"
	LiveEventAlarm  = "alarm"
)

// LiveMessage WebSocket 推送消息
type LiveMessage struct {
	Event     string       `json:"event"`
	PatientID string       `json:"patient_id"`
	Sample    *VitalSample `json:"sample,omitempty"`
	Level     AlertLevel   `json:"level"`
	Alarm     *AlarmEvent  `json:"alarm,omitempty"`
}
