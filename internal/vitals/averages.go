package vitals

import (
	"math"
	"sort"
	"time"

	"wisefido-vitals/internal/models"
)

// DefaultAverageMinutes 默认返回的分钟数
const DefaultAverageMinutes = 10

// MinuteAverages 按分钟（向下取整）分组计算各项均值，保留两位小数
// 返回按时间升序的最新 limit 个分钟；limit <= 0 时返回全部。
func MinuteAverages(samples []models.VitalSample, limit int) []models.MinuteAverage {
	type acc struct {
		n                  int
		hr, spo2, bp, temp float64
	}

	buckets := make(map[time.Time]*acc)
	for _, s := range samples {
		minute := s.Timestamp.Truncate(time.Minute)
		a, ok := buckets[minute]
		if !ok {
			a = &acc{}
			buckets[minute] = a
		}
		a.n++
		a.hr += float64(s.HeartRate)
		a.spo2 += float64(s.SpO2)
		a.bp += float64(s.BloodPressure)
		a.temp += s.Temperature
	}

	minutes := make([]time.Time, 0, len(buckets))
	for m := range buckets {
		minutes = append(minutes, m)
	}
	sort.Slice(minutes, func(i, j int) bool { return minutes[i].Before(minutes[j]) })

	if limit > 0 && len(minutes) > limit {
		minutes = minutes[len(minutes)-limit:]
	}

	out := make([]models.MinuteAverage, 0, len(minutes))
	for _, m := range minutes {
		a := buckets[m]
		n := float64(a.n)
		out = append(out, models.MinuteAverage{
			Minute:        m,
			Samples:       a.n,
			HeartRate:     round2(a.hr / n),
			SpO2:          round2(a.spo2 / n),
			BloodPressure: round2(a.bp / n),
			Temperature:   round2(a.temp / n),
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
