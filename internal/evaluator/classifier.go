package evaluator

import (
	"wisefido-vitals/internal/models"
)

// MinWindowSamples 判定所需的最少采样数
const MinWindowSamples = 7

// Thresholds 单个级别的阈值，全部为严格比较
// 样本只要命中任意一项即视为异常。
type Thresholds struct {
	HeartRateAbove     int     // HR > HeartRateAbove
	SpO2Below          int     // SpO2 < SpO2Below
	BloodPressureAbove int     // BP > BloodPressureAbove
	TemperatureAbove   float64 // Temp > TemperatureAbove
}

// Abnormal 样本是否命中任意阈值
func (t Thresholds) Abnormal(s models.VitalSample) bool {
	return s.HeartRate > t.HeartRateAbove ||
		s.SpO2 < t.SpO2Below ||
		s.BloodPressure > t.BloodPressureAbove ||
		s.Temperature > t.TemperatureAbove
}

// ToThresholdData 转为触发数据中的阈值快照
func (t Thresholds) ToThresholdData() *models.ThresholdData {
	return &models.ThresholdData{
		HeartRateAbove:     t.HeartRateAbove,
		SpO2Below:          t.SpO2Below,
		BloodPressureAbove: t.BloodPressureAbove,
		TemperatureAbove:   t.TemperatureAbove,
	}
}

// Policy 报警策略
type Policy struct {
	WindowSize int // 评估窗口（取最近 N 条）
	Red        Thresholds
	Yellow     Thresholds
}

// DefaultPolicy 默认策略
var DefaultPolicy = Policy{
	WindowSize: MinWindowSamples,
	Red: Thresholds{
		HeartRateAbove:     110,
		SpO2Below:          90,
		BloodPressureAbove: 140,
		TemperatureAbove:   38,
	},
	Yellow: Thresholds{
		HeartRateAbove:     100,
		SpO2Below:          94,
		BloodPressureAbove: 130,
		TemperatureAbove:   37.5,
	},
}

// Classify 使用默认策略评估最近窗口
func Classify(window []models.VitalSample) models.AlertLevel {
	return DefaultPolicy.Classify(window)
}

// Classify 评估窗口的报警级别（纯函数）
// 最近 WindowSize 条中每一条都异常才升级，单个尖峰不会触发报警。
func (p Policy) Classify(window []models.VitalSample) models.AlertLevel {
	size := p.WindowSize
	if size <= 0 {
		size = MinWindowSamples
	}
	if len(window) < size {
		return models.AlertGreen
	}

	last := window[len(window)-size:]
	if allAbnormal(last, p.Red) {
		return models.AlertRed
	}
	if allAbnormal(last, p.Yellow) {
		return models.AlertYellow
	}
	return models.AlertGreen
}

// ThresholdsFor 返回级别对应的阈值，GREEN 返回 nil
func (p Policy) ThresholdsFor(level models.AlertLevel) *Thresholds {
	switch level {
	case models.AlertRed:
		return &p.Red
	case models.AlertYellow:
		return &p.Yellow
	}
	return nil
}

func allAbnormal(samples []models.VitalSample, t Thresholds) bool {
	for _, s := range samples {
		if !t.Abnormal(s) {
			return false
		}
	}
	return true
}
