package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/essay-grader/internal/models"
)

type Routing struct {
	Exchange    string
	RequestKey  string
	CompleteKey string
}

// EventPublisher encodes grading events and routes them to the exchange.
type EventPublisher struct {
	publisher Publisher
	routing   Routing
	logger    zerolog.Logger
}

func NewEventPublisher(publisher Publisher, routing Routing, logger zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		publisher: publisher,
		routing:   routing,
		logger:    logger,
	}
}

func (p *EventPublisher) PublishGradingRequested(ctx context.Context, event models.GradingRequestedEvent) error {
	return p.publish(ctx, p.routing.RequestKey, event.ReportID, event)
}

func (p *EventPublisher) PublishGradingCompleted(ctx context.Context, event models.GradingCompletedEvent) error {
	return p.publish(ctx, p.routing.CompleteKey, event.ReportID, event)
}

func (p *EventPublisher) publish(ctx context.Context, routingKey, reportID string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.publisher.Publish(ctx, p.routing.Exchange, routingKey, body); err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	p.logger.Debug().
		Str("report_id", reportID).
		Str("routing_key", routingKey).
		Msg("Event published")

	return nil
}

// DecodeGradingRequested parses a job message body.
func DecodeGradingRequested(body []byte) (models.GradingRequestedEvent, error) {
	var event models.GradingRequestedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return models.GradingRequestedEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}
