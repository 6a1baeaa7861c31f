package grading

import (
	"fmt"

	"github.com/RubachokBoss/essay-grader/internal/models"
)

// NoDescription replaces a score level the criterion does not describe.
const NoDescription = "No description available."

// DescriptionFor resolves the text for level. Missing and empty
// descriptions both resolve to NoDescription.
func DescriptionFor(criterion models.Criterion, level int) string {
	text, ok := criterion.Scores.Lookup(level)
	if !ok || text == "" {
		return NoDescription
	}
	return text
}

func criterionLine(name, description string, avg float64) string {
	return fmt.Sprintf("  - %s: %s (Average Key Point Similarity: %.2f)", name, description, avg)
}

func suggestionLine(point string, sim float64) string {
	return fmt.Sprintf("    Suggestion: Elaborate more on key point \"%s\" (Similarity: %.2f)", point, sim)
}
