package models

// CriterionScore is the per-criterion entry keyed by criterion name.
type CriterionScore struct {
	Score         int     `json:"score"`
	AvgSimilarity float64 `json:"avg_similarity"`
}

type KeyPointSimilarity struct {
	Point      string  `json:"point"`
	Similarity float64 `json:"similarity"`
	Suggested  bool    `json:"suggested"`
}

// CriterionResult is the positional detail for one rubric criterion. Unlike
// PerCriterion it survives duplicate criterion names.
type CriterionResult struct {
	Name          string               `json:"name"`
	Weight        float64              `json:"weight"`
	Score         int                  `json:"score"`
	AvgSimilarity float64              `json:"avg_similarity"`
	Description   string               `json:"description"`
	KeyPoints     []KeyPointSimilarity `json:"key_points"`
}

type GradingResult struct {
	ReportID     string                    `json:"report_id,omitempty"`
	PerCriterion map[string]CriterionScore `json:"per_criterion"`
	Criteria     []CriterionResult         `json:"criteria"`
	TotalScore   float64                   `json:"total_score"`
	MaxScore     float64                   `json:"max_score"`
	Feedback     string                    `json:"feedback"`
}
