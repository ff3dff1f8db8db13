package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"wisefido-vitals/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patient(id string) models.PatientInfo {
	return models.PatientInfo{PatientID: id, Name: "Asha", Age: 42, Gender: models.GenderFemale}
}

func TestPatientRegistry_Add_Success(t *testing.T) {
	r := NewPatientRegistry()

	record, err := r.Add(patient("p-1"))

	require.NoError(t, err)
	assert.Equal(t, "p-1", record.ID())
	assert.Equal(t, "Asha", record.Info().Name)
	assert.Equal(t, 1, r.Len())
}

func TestPatientRegistry_Add_Rejects(t *testing.T) {
	r := NewPatientRegistry()
	_, err := r.Add(patient("p-1"))
	require.NoError(t, err)

	tests := []struct {
		name string
		info models.PatientInfo
		want error
	}{
		{"empty id", patient(""), ErrEmptyPatientID},
		{"duplicate id", patient("p-1"), ErrDuplicatePatient},
		{"age too high", models.PatientInfo{PatientID: "p-2", Age: 121, Gender: models.GenderMale}, ErrInvalidAge},
		{"negative age", models.PatientInfo{PatientID: "p-2", Age: -1, Gender: models.GenderMale}, ErrInvalidAge},
		{"unknown gender", models.PatientInfo{PatientID: "p-2", Age: 30, Gender: "X"}, ErrInvalidGender},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Add(tt.info)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 1, r.Len())
}

func TestPatientRegistry_Get_NotFound(t *testing.T) {
	r := NewPatientRegistry()

	_, err := r.Get("missing")

	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestPatientRegistry_List_SortedByID(t *testing.T) {
	r := NewPatientRegistry()
	for _, id := range []string{"p-3", "p-1", "p-2"} {
		_, err := r.Add(patient(id))
		require.NoError(t, err)
	}

	list := r.List()

	require.Len(t, list, 3)
	assert.Equal(t, "p-1", list[0].ID())
	assert.Equal(t, "p-2", list[1].ID())
	assert.Equal(t, "p-3", list[2].ID())
}

func TestPatientRecord_CommitLevel(t *testing.T) {
	r := NewPatientRegistry()
	record, err := r.Add(patient("p-1"))
	require.NoError(t, err)

	_, seq1 := record.Observe(models.VitalSample{Timestamp: time.Now()})
	_, seq2 := record.Observe(models.VitalSample{Timestamp: time.Now()})

	prev, changed := record.CommitLevel(seq2, models.AlertYellow)
	assert.Equal(t, models.AlertGreen, prev)
	assert.True(t, changed)

	// 乱序到达的旧结果被忽略
	prev, changed = record.CommitLevel(seq1, models.AlertRed)
	assert.Equal(t, models.AlertYellow, prev)
	assert.False(t, changed)
	assert.Equal(t, models.AlertYellow, record.Level())

	_, seq3 := record.Observe(models.VitalSample{Timestamp: time.Now()})
	_, changed = record.CommitLevel(seq3, models.AlertYellow)
	assert.False(t, changed)
}

func TestPatientRecord_ConcurrentObserve(t *testing.T) {
	r := NewPatientRegistry()
	var records []*PatientRecord
	for i := 0; i < 4; i++ {
		record, err := r.Add(patient(fmt.Sprintf("p-%d", i)))
		require.NoError(t, err)
		records = append(records, record)
	}

	var wg sync.WaitGroup
	for _, record := range records {
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func(rec *PatientRecord) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					window, _ := rec.Observe(models.VitalSample{HeartRate: i})
					assert.LessOrEqual(t, len(window), 10)
				}
			}(record)
		}
	}
	wg.Wait()

	for _, record := range records {
		assert.Equal(t, 300, record.SampleCount())
		assert.Len(t, record.RecentWindow(), 10)
	}
}
