package events

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/history"
)

// PublisherConfig holds configuration for the Pub/Sub publisher.
type PublisherConfig struct {
	ProjectID string
	TopicName string
	Logger    zerolog.Logger
}

// sendFunc publishes one payload and waits for the server ID.
type sendFunc func(ctx context.Context, data []byte, attrs map[string]string) (string, error)

// Publisher publishes job messages to a Pub/Sub topic.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topicName string
	send      sendFunc
	logger    zerolog.Logger
}

// NewPublisher creates a publisher for the configured topic.
func NewPublisher(ctx context.Context, cfg PublisherConfig) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	publisher := client.Publisher(cfg.TopicName)

	p := &Publisher{
		client:    client,
		publisher: publisher,
		topicName: cfg.TopicName,
		logger:    cfg.Logger,
	}
	p.send = func(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
		res := publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
		return res.Get(ctx)
	}
	return p, nil
}

// Publish sends a job message and waits for it to be accepted.
func (p *Publisher) Publish(ctx context.Context, m Message) error {
	data, err := Encode(m)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	id, err := p.send(ctx, data, map[string]string{"job_type": m.JobType})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", m.JobType, err)
	}

	p.logger.Debug().
		Str("topic", p.topicName).
		Str("job_type", m.JobType).
		Str("message_id", id).
		Msg("published job message")
	return nil
}

// PublishPlanCompleted publishes a plan history record for the worker to persist.
func (p *Publisher) PublishPlanCompleted(ctx context.Context, rec history.Record) error {
	return p.Publish(ctx, PlanCompleted(rec))
}

// Close flushes pending messages and closes the client.
func (p *Publisher) Close() error {
	if p.publisher != nil {
		p.publisher.Stop()
	}
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
