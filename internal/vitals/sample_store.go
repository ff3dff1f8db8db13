// Package vitals 维护单个患者的生命体征滚动缓冲区
package vitals

import (
	"wisefido-vitals/internal/models"
)

const (
	// HistoryCapacity 完整历史保留条数
	HistoryCapacity = 300
	// RecentCapacity 最近窗口保留条数（用于报警评估）
	RecentCapacity = 10
)

// SampleStore 生命体征采样存储
// history 与 recent 由同一次 Append 分别写入、分别按 FIFO 截断。
// SampleStore 本身不加锁，由持有它的 PatientRecord 负责串行化。
type SampleStore struct {
	history []models.VitalSample
	recent  []models.VitalSample
}

// NewSampleStore 创建空的采样存储
func NewSampleStore() *SampleStore {
	return &SampleStore{
		history: make([]models.VitalSample, 0, HistoryCapacity+1),
		recent:  make([]models.VitalSample, 0, RecentCapacity+1),
	}
}

// Append 追加一条采样，超出容量时淘汰最旧的一条
func (s *SampleStore) Append(sample models.VitalSample) {
	s.history = append(s.history, sample)
	s.recent = append(s.recent, sample)

	if len(s.history) > HistoryCapacity {
		s.history = evictOldest(s.history)
	}
	if len(s.recent) > RecentCapacity {
		s.recent = evictOldest(s.recent)
	}
}

// RecentWindow 返回最近最多 10 条采样（旧 -> 新，副本）
func (s *SampleStore) RecentWindow() []models.VitalSample {
	return cloneSamples(s.recent)
}

// FullHistory 返回最多 300 条完整历史（旧 -> 新，副本）
func (s *SampleStore) FullHistory() []models.VitalSample {
	return cloneSamples(s.history)
}

// Latest 返回最新一条采样
func (s *SampleStore) Latest() (models.VitalSample, bool) {
	if len(s.history) == 0 {
		return models.VitalSample{}, false
	}
	return s.history[len(s.history)-1], true
}

// Len 返回完整历史条数
func (s *SampleStore) Len() int {
	return len(s.history)
}

// evictOldest 删除下标 0 的元素，复用底层数组避免无限增长
func evictOldest(buf []models.VitalSample) []models.VitalSample {
	copy(buf, buf[1:])
	return buf[:len(buf)-1]
}

func cloneSamples(src []models.VitalSample) []models.VitalSample {
	out := make([]models.VitalSample, len(src))
	copy(out, src)
	return out
}
