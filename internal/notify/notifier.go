// Package notify delivers structured alerts raised by the workers.
package notify

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/resellsync/pkg/enums"
)

// Alert is a structured event; formatting is left to the receiving channel.
type Alert struct {
	Kind        enums.ErrorKind `json:"kind"`
	ListingID   int64           `json:"listing_id"`
	ProductName string          `json:"product_name,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	Size        string          `json:"size,omitempty"`
	Message     string          `json:"message"`
	Fields      map[string]any  `json:"fields,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Notifier delivers an alert to one channel.
type Notifier interface {
	SendAlert(ctx context.Context, alert Alert) error
}

// Multi fans an alert out to every channel and combines their errors.
type Multi []Notifier

// SendAlert attempts every channel even when an earlier one fails.
func (m Multi) SendAlert(ctx context.Context, alert Alert) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.SendAlert(ctx, alert))
	}
	return err
}
