package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/swiftdrop/driver-backend/pkg/enums"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

const publishTimeout = 10 * time.Second

// Publisher wraps a Pub/Sub topic publisher with the envelope format the
// notification consumer expects.
type Publisher struct {
	pub  *pubsub.Publisher
	logg *logger.Logger
}

// NewPublisher builds a Publisher for the provided topic handle.
func NewPublisher(pub *pubsub.Publisher, logg *logger.Logger) *Publisher {
	return &Publisher{pub: pub, logg: logg}
}

// PublishEvent wraps data in a PayloadEnvelope and publishes it. The event ID
// is minted here and carried both in the envelope and as a message attribute
// so consumers can dedupe.
func (p *Publisher) PublishEvent(ctx context.Context, eventType enums.EventType, actor *ActorRef, data any) error {
	if p == nil || p.pub == nil {
		return fmt.Errorf("publisher not configured")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	envelope := PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Actor:      actor,
		Data:       raw,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := p.pub.Publish(publishCtx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_id":    envelope.EventID,
			"event_type":  string(eventType),
			"occurred_at": envelope.OccurredAt.Format(time.RFC3339Nano),
		},
	})
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// PublishEventAsync publishes on a detached context and logs failures instead
// of returning them. Used after a transaction commits, where the caller's
// request must not fail on a delivery hiccup.
func (p *Publisher) PublishEventAsync(ctx context.Context, eventType enums.EventType, actor *ActorRef, data any) {
	go func() {
		if err := p.PublishEvent(context.WithoutCancel(ctx), eventType, actor, data); err != nil && p.logg != nil {
			ctx = p.logg.WithField(ctx, "event_type", string(eventType))
			p.logg.Warn(ctx, "event publish failed: "+err.Error())
		}
	}()
}
