package notify

import (
	"context"

	"github.com/angelmondragon/resellsync/pkg/logger"
)

// LogNotifier writes alerts to the structured log.
type LogNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier builds a log-backed notifier.
func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) SendAlert(ctx context.Context, alert Alert) error {
	if n == nil || n.logg == nil {
		return nil
	}
	fields := map[string]any{
		"alert_kind":   alert.Kind,
		"listing_id":   alert.ListingID,
		"sku":          alert.SKU,
		"size":         alert.Size,
		"product_name": alert.ProductName,
	}
	for k, v := range alert.Fields {
		fields["alert_"+k] = v
	}
	n.logg.Warn(n.logg.WithFields(ctx, fields), alert.Message)
	return nil
}
