package service

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/RubachokBoss/essay-grader/internal/models"
)

const (
	DefaultTopic      = "Essay Topic"
	DefaultRubricName = "Default Rubric"
)

type ValidationConfig struct {
	MaxEssayLength          int // in runes, 0 means unlimited
	RejectDuplicateCriteria bool
}

// Validate normalises req in place and checks it. Blank key points are
// dropped and the rest are kept as sent. A missing topic or rubric name gets
// its default.
func Validate(req *models.GradeRequest, cfg ValidationConfig) error {
	if strings.TrimSpace(req.EssayText) == "" {
		return invalid("essay_text", "Essay text is required")
	}
	if cfg.MaxEssayLength > 0 {
		if n := utf8.RuneCountInString(req.EssayText); n > cfg.MaxEssayLength {
			return invalid("essay_text", "essay is %d characters long, the limit is %d", n, cfg.MaxEssayLength)
		}
	}

	points := make([]string, 0, len(req.KeyPoints.Points))
	for _, p := range req.KeyPoints.Points {
		if strings.TrimSpace(p) != "" {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return invalid("key_points", "Key points are required")
	}
	req.KeyPoints.Points = points

	if strings.TrimSpace(req.KeyPoints.Topic) == "" {
		req.KeyPoints.Topic = DefaultTopic
	}

	if len(req.Rubric.Criteria) == 0 {
		return invalid("rubric", "Rubric is required")
	}
	if strings.TrimSpace(req.Rubric.Name) == "" {
		req.Rubric.Name = DefaultRubricName
	}

	for i, c := range req.Rubric.Criteria {
		if strings.TrimSpace(c.Name) == "" {
			return invalid("rubric.criteria", "criterion %d has no name", i+1)
		}
		if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) || c.Weight < 0 {
			return invalid("rubric.criteria", "criterion %q has invalid weight %v", c.Name, c.Weight)
		}
	}

	if cfg.RejectDuplicateCriteria {
		if dups := req.Rubric.DuplicateCriteria(); len(dups) > 0 {
			return invalid("rubric.criteria", "duplicate criterion names: %s", strings.Join(dups, ", "))
		}
	}

	return nil
}
