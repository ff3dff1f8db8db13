// Package guidance 报警级别到看护提示的映射（展示策略，与评估逻辑无关）
package guidance

import "wisefido-vitals/internal/models"

// Guidance 看护提示
type Guidance struct {
	Level        models.AlertLevel `json:"level"`
	Banner       string            `json:"banner"`
	Instructions []string          `json:"instructions"`
}

// For 返回级别对应的提示
func For(level models.AlertLevel) Guidance {
	switch level {
	case models.AlertRed:
		return Guidance{
			Level:  level,
			Banner: "CRITICAL CONDITION",
			Instructions: []string{
				"Keep patient upright",
				"Clear airway",
				"Loosen tight clothing",
				"Call doctor immediately",
			},
		}
	case models.AlertYellow:
		return Guidance{
			Level:  level,
			Banner: "Minor Fluctuation",
			Instructions: []string{
				"Observe patient closely",
				"Recheck vitals",
			},
		}
	default:
		return Guidance{
			Level:        models.AlertGreen,
			Banner:       "Patient Stable",
			Instructions: []string{"Patient stable, no action required"},
		}
	}
}
