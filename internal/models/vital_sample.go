package models

import "time"

// VitalSample 单次生命体征采样（不可变值类型）
type VitalSample struct {
	Timestamp     time.Time `json:"timestamp"`
	HeartRate     int       `json:"heart_rate"`     // 心率（次/分）
	SpO2          int       `json:"spo2"`           // 血氧饱和度（%）
	BloodPressure int       `json:"blood_pressure"` // 单值血压（收缩压口径）
	Temperature   float64   `json:"temperature"`    // 体温（°C）
}

// AlertLevel 报警级别，按严重程度全序：GREEN < YELLOW < RED
type AlertLevel int

const (
	AlertGreen AlertLevel = iota
	AlertYellow
	AlertRed
)

// String 返回级别名称
func (l AlertLevel) String() string {
	switch l {
	case AlertYellow:
		return "YELLOW"
	case AlertRed:
		return "RED"
	default:
		return "GREEN"
	}
}

// MarshalText 以名称序列化（JSON 中输出 "GREEN"/"YELLOW"/"RED"）
func (l AlertLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText 解析级别名称，未知名称按 GREEN 处理
func (l *AlertLevel) UnmarshalText(b []byte) error {
	*l = ParseAlertLevel(string(b))
	return nil
}

// ParseAlertLevel 解析级别名称
func ParseAlertLevel(s string) AlertLevel {
	switch s {
	case "RED":
		return AlertRed
	case "YELLOW":
		return AlertYellow
	default:
		return AlertGreen
	}
}

// MinuteAverage 每分钟平均值
type MinuteAverage struct {
	Minute        time.Time `json:"minute"`
	Samples       int       `json:"samples"`
	HeartRate     float64   `json:"heart_rate"`
	SpO2          float64   `json:"spo2"`
	BloodPressure float64   `json:"blood_pressure"`
	Temperature   float64   `json:"temperature"`
}
