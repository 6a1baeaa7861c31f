package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/essay-grader/internal/models"
)

type published struct {
	exchange, routingKey string
	body                 []byte
}

type recordingPublisher struct {
	sent []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, exchange, routingKey string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{exchange, routingKey, body})
	return nil
}

var routing = Routing{
	Exchange:    "grading_exchange",
	RequestKey:  "grading.requested",
	CompleteKey: "grading.completed",
}

func TestEventPublisher_RoundTrip(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewEventPublisher(rec, routing, zerolog.Nop())

	event := models.GradingRequestedEvent{
		ReportID: "r1",
		Request: models.GradeRequest{
			EssayText: "essay",
			KeyPoints: models.KeyPointSet{Topic: "T", Points: []string{"a", "b"}},
			Rubric: models.Rubric{Name: "R", Criteria: []models.Criterion{
				{Name: "C", Weight: 1, Scores: models.ScoreDescriptions{1: "low", 4: "high"}},
			}},
		},
		Timestamp: 1700000000,
	}
	require.NoError(t, p.PublishGradingRequested(context.Background(), event))

	require.Len(t, rec.sent, 1)
	assert.Equal(t, "grading_exchange", rec.sent[0].exchange)
	assert.Equal(t, "grading.requested", rec.sent[0].routingKey)

	decoded, err := DecodeGradingRequested(rec.sent[0].body)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestEventPublisher_Completed(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewEventPublisher(rec, routing, zerolog.Nop())

	require.NoError(t, p.PublishGradingCompleted(context.Background(), models.GradingCompletedEvent{
		ReportID: "r1", Status: "completed", TotalScore: 2.7, MaxScore: 4,
	}))

	require.Len(t, rec.sent, 1)
	assert.Equal(t, "grading.completed", rec.sent[0].routingKey)
	assert.Contains(t, string(rec.sent[0].body), `"total_score":2.7`)
}

func TestEventPublisher_Error(t *testing.T) {
	boom := errors.New("channel closed")
	p := NewEventPublisher(&recordingPublisher{err: boom}, routing, zerolog.Nop())

	err := p.PublishGradingCompleted(context.Background(), models.GradingCompletedEvent{ReportID: "r1"})
	assert.ErrorIs(t, err, boom)
}

func TestDecodeGradingRequested_Malformed(t *testing.T) {
	_, err := DecodeGradingRequested([]byte("{not json"))
	assert.Error(t, err)
}
