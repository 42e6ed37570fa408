package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/events"
)

// Receive defaults. Plan history writes are small, so a handful of
// outstanding messages keeps the database busy without piling up.
const (
	defaultMaxOutstanding = 10
	defaultMaxExtension   = 10 * time.Minute
)

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Processor        *Processor
	Logger           zerolog.Logger

	// MaxOutstanding bounds unacknowledged messages in flight. Default 10.
	MaxOutstanding int
	// MaxExtension bounds how long a message lease is extended. Default 10m.
	MaxExtension time.Duration
}

// PubSubStats counts message outcomes since start.
type PubSubStats struct {
	Acked       uint64 `json:"acked"`
	Redelivered uint64 `json:"redelivered"`
	Dropped     uint64 `json:"dropped"`
}

// outcome is what happens to a message after handling.
type outcome int

const (
	outcomeAck     outcome = iota // processed
	outcomeNack                   // transient failure, redeliver
	outcomeDiscard                // can never succeed, ack without processing
)

// PubSubHandler feeds job messages from a subscription into a Processor.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *Processor
	logger           zerolog.Logger

	acked, redelivered, dropped atomic.Uint64
}

// NewPubSubHandler connects to Pub/Sub and prepares the subscriber.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = defaultMaxOutstanding
	if cfg.MaxOutstanding > 0 {
		subscriber.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstanding
	}
	subscriber.ReceiveSettings.MaxExtension = defaultMaxExtension
	if cfg.MaxExtension > 0 {
		subscriber.ReceiveSettings.MaxExtension = cfg.MaxExtension
	}

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}, nil
}

// Start blocks receiving messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().Str("subscription", h.subscriptionName).Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		log := h.logger.With().
			Str("message_id", msg.ID).
			Time("publish_time", msg.PublishTime).
			Logger()
		if msg.DeliveryAttempt != nil {
			log = log.With().Int("delivery_attempt", *msg.DeliveryAttempt).Logger()
		}

		if h.handle(ctx, log, msg.Data) == outcomeNack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Stats returns the message outcome counters.
func (h *PubSubHandler) Stats() PubSubStats {
	return PubSubStats{
		Acked:       h.acked.Load(),
		Redelivered: h.redelivered.Load(),
		Dropped:     h.dropped.Load(),
	}
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// handle decodes and processes one payload.
func (h *PubSubHandler) handle(ctx context.Context, log zerolog.Logger, data []byte) outcome {
	start := time.Now()

	m, err := events.Decode(data)
	if err != nil {
		log.Error().Err(err).Msg("malformed job message, dropping")
		h.dropped.Add(1)
		return outcomeDiscard
	}
	log = log.With().Str("job_type", m.JobType).Logger()

	if err := h.processor.Process(ctx, m); err != nil {
		if errors.Is(err, ErrUnknownJob) {
			log.Warn().Msg("unknown job type, dropping")
			h.dropped.Add(1)
			return outcomeDiscard
		}
		log.Error().Err(err).Msg("job failed, requesting redelivery")
		h.redelivered.Add(1)
		return outcomeNack
	}

	log.Info().Dur("duration", time.Since(start)).Msg("job completed")
	h.acked.Add(1)
	return outcomeAck
}
