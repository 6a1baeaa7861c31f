package grading

import "fmt"

// Score levels of the fixed four-level rubric scale.
const (
	MinLevel = 1
	MaxLevel = 4
)

// Thresholds maps an average similarity to a score level. A value equal to a
// bound falls into the higher bucket. Suggestion is the per key point bound
// below which a suggestion line is emitted.
type Thresholds struct {
	Excellent  float64 `mapstructure:"excellent"`
	Good       float64 `mapstructure:"good"`
	Fair       float64 `mapstructure:"fair"`
	Suggestion float64 `mapstructure:"suggestion"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Excellent:  0.90,
		Good:       0.70,
		Fair:       0.50,
		Suggestion: 0.60,
	}
}

func (t Thresholds) Validate() error {
	if !(t.Fair <= t.Good && t.Good <= t.Excellent) {
		return fmt.Errorf("thresholds must satisfy fair <= good <= excellent, got %.2f/%.2f/%.2f",
			t.Fair, t.Good, t.Excellent)
	}
	return nil
}

// Level returns the score level for avg, evaluated high to low.
func (t Thresholds) Level(avg float64) int {
	switch {
	case avg >= t.Excellent:
		return 4
	case avg >= t.Good:
		return 3
	case avg >= t.Fair:
		return 2
	default:
		return 1
	}
}
