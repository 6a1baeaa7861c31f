package service

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/essay-grader/internal/models"
)

func validRequest() models.GradeRequest {
	return models.GradeRequest{
		EssayText: "Solar and wind power reduce our reliance on fossil fuels.",
		KeyPoints: models.KeyPointSet{
			Topic:  "Energy",
			Points: []string{"Renewable energy reduces reliance on fossil fuels."},
		},
		Rubric: models.Rubric{
			Name: "Energy Rubric",
			Criteria: []models.Criterion{
				{Name: "Content", Weight: 0.6, Scores: models.ScoreDescriptions{1: "Poor.", 4: "Great."}},
				{Name: "Evidence", Weight: 0.4},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	strict := ValidationConfig{MaxEssayLength: 100, RejectDuplicateCriteria: true}

	tests := []struct {
		name   string
		mutate func(r *models.GradeRequest)
		cfg    ValidationConfig
		field  string
	}{
		{"blank essay", func(r *models.GradeRequest) { r.EssayText = "  \n\t" }, strict, "essay_text"},
		{"essay too long", func(r *models.GradeRequest) { r.EssayText = string(make([]rune, 101)) + "x" }, strict, "essay_text"},
		{"no key points", func(r *models.GradeRequest) { r.KeyPoints.Points = nil }, strict, "key_points"},
		{"only blank key points", func(r *models.GradeRequest) { r.KeyPoints.Points = []string{" ", ""} }, strict, "key_points"},
		{"no criteria", func(r *models.GradeRequest) { r.Rubric.Criteria = nil }, strict, "rubric"},
		{"unnamed criterion", func(r *models.GradeRequest) { r.Rubric.Criteria[1].Name = " " }, strict, "rubric.criteria"},
		{"negative weight", func(r *models.GradeRequest) { r.Rubric.Criteria[0].Weight = -0.1 }, strict, "rubric.criteria"},
		{"NaN weight", func(r *models.GradeRequest) { r.Rubric.Criteria[0].Weight = math.NaN() }, strict, "rubric.criteria"},
		{"infinite weight", func(r *models.GradeRequest) { r.Rubric.Criteria[0].Weight = math.Inf(1) }, strict, "rubric.criteria"},
		{"duplicate names", func(r *models.GradeRequest) { r.Rubric.Criteria[1].Name = "Content" }, strict, "rubric.criteria"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := Validate(&req, tt.cfg)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.True(t, IsPermanent(err))
		})
	}
}

func TestValidate_DuplicatesAllowedWhenConfigured(t *testing.T) {
	req := validRequest()
	req.Rubric.Criteria[1].Name = "Content"

	assert.NoError(t, Validate(&req, ValidationConfig{}))
}

func TestValidate_Normalises(t *testing.T) {
	req := validRequest()
	req.KeyPoints.Topic = ""
	req.KeyPoints.Points = []string{"  first ", "", "second"}
	req.Rubric.Name = ""

	require.NoError(t, Validate(&req, ValidationConfig{}))

	assert.Equal(t, DefaultTopic, req.KeyPoints.Topic)
	assert.Equal(t, DefaultRubricName, req.Rubric.Name)
	assert.Equal(t, []string{"  first ", "second"}, req.KeyPoints.Points)
}

func TestValidate_ZeroWeightAllowed(t *testing.T) {
	req := validRequest()
	req.Rubric.Criteria[0].Weight = 0

	assert.NoError(t, Validate(&req, ValidationConfig{RejectDuplicateCriteria: true}))
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "essay_text: Essay text is required", invalid("essay_text", "Essay text is required").Error())
	assert.Equal(t, "bad", (&ValidationError{Message: "bad"}).Error())
}
