package guidance

import (
	"testing"

	"wisefido-vitals/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	red := For(models.AlertRed)
	assert.Equal(t, "CRITICAL CONDITION", red.Banner)
	assert.Contains(t, red.Instructions, "Call doctor immediately")

	yellow := For(models.AlertYellow)
	assert.Equal(t, []string{"Observe patient closely", "Recheck vitals"}, yellow.Instructions)

	green := For(models.AlertGreen)
	assert.Equal(t, "Patient Stable", green.Banner)
	assert.Equal(t, models.AlertGreen, green.Level)
}
