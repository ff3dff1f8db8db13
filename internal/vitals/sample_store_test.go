package vitals

import (
	"testing"
	"time"

	"wisefido-vitals/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)

func sampleN(i int) models.VitalSample {
	return models.VitalSample{
		Timestamp:     baseTime.Add(time.Duration(i) * time.Second),
		HeartRate:     i,
		SpO2:          95,
		BloodPressure: 120,
		Temperature:   36.6,
	}
}

func TestSampleStore_Empty(t *testing.T) {
	s := NewSampleStore()

	assert.Empty(t, s.RecentWindow())
	assert.Empty(t, s.FullHistory())
	_, ok := s.Latest()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestSampleStore_LengthLaws(t *testing.T) {
	s := NewSampleStore()

	for n := 1; n <= 320; n++ {
		s.Append(sampleN(n))

		assert.Len(t, s.RecentWindow(), min(n, RecentCapacity), "recent after %d appends", n)
		assert.Len(t, s.FullHistory(), min(n, HistoryCapacity), "history after %d appends", n)
	}
}

func TestSampleStore_RecentIsSuffixOfHistory(t *testing.T) {
	s := NewSampleStore()

	// 覆盖两个容量边界：10 和 300
	for n := 1; n <= 305; n++ {
		s.Append(sampleN(n))

		history := s.FullHistory()
		recent := s.RecentWindow()
		k := min(len(history), RecentCapacity)
		require.Equal(t, history[len(history)-k:], recent, "after %d appends", n)
	}
}

func TestSampleStore_EvictsOldestFirst(t *testing.T) {
	s := NewSampleStore()
	for n := 1; n <= 301; n++ {
		s.Append(sampleN(n))
	}

	history := s.FullHistory()
	require.Len(t, history, 300)
	assert.Equal(t, 2, history[0].HeartRate, "sample #1 should be evicted")
	assert.Equal(t, 301, history[len(history)-1].HeartRate)

	recent := s.RecentWindow()
	require.Len(t, recent, 10)
	assert.Equal(t, 292, recent[0].HeartRate)
	assert.Equal(t, 301, recent[9].HeartRate)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, 301, latest.HeartRate)
}

func TestSampleStore_ReturnsCopies(t *testing.T) {
	s := NewSampleStore()
	s.Append(sampleN(1))

	recent := s.RecentWindow()
	recent[0].HeartRate = 999
	history := s.FullHistory()
	history[0].HeartRate = 999

	assert.Equal(t, 1, s.RecentWindow()[0].HeartRate)
	assert.Equal(t, 1, s.FullHistory()[0].HeartRate)
}
