package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertLevel_Ordering(t *testing.T) {
	assert.True(t, AlertGreen < AlertYellow)
	assert.True(t, AlertYellow < AlertRed)
}

func TestAlertLevel_Text(t *testing.T) {
	for _, level := range []AlertLevel{AlertGreen, AlertYellow, AlertRed} {
		assert.Equal(t, level, ParseAlertLevel(level.String()))
	}
	assert.Equal(t, AlertGreen, ParseAlertLevel("purple"))

	data, err := json.Marshal(RealtimeData{PatientID: "P001", Level: AlertRed})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"level":"RED"`)

	var decoded RealtimeData
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, AlertRed, decoded.Level)
}

func TestGender_Valid(t *testing.T) {
	assert.True(t, GenderMale.Valid())
	assert.True(t, GenderFemale.Valid())
	assert.True(t, GenderOther.Valid())
	assert.False(t, Gender("male").Valid())
	assert.False(t, Gender("").Valid())
}
