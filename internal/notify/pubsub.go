package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

// PubSubNotifier publishes alerts as JSON messages on a topic.
type PubSubNotifier struct {
	publisher publisher
}

// NewPubSubNotifier wraps a Pub/Sub v2 publisher.
func NewPubSubNotifier(p *gcppubsub.Publisher) (*PubSubNotifier, error) {
	if p == nil {
		return nil, fmt.Errorf("pubsub publisher required")
	}
	return &PubSubNotifier{publisher: gcpPublisher{p}}, nil
}

func (n *PubSubNotifier) SendAlert(ctx context.Context, alert Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": "listing.alert",
			"error_kind": string(alert.Kind),
			"listing_id": strconv.FormatInt(alert.ListingID, 10),
		},
	}
	if _, err := n.publisher.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
