package alert

import (
	"context"
	"log/slog"

	"github.com/pricetrack/pricetrack/internal/model"
)

// Dispatcher receives fired alert events. Implementations own delivery;
// the engine only hands events over and never retries a dispatch.
type Dispatcher interface {
	Dispatch(ctx context.Context, event model.AlertEvent)
}

// LogDispatcher writes each event to the structured log. It is the
// reference sink for local runs and tests.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a dispatcher backed by the given logger.
// A nil logger falls back to slog.Default().
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, event model.AlertEvent) {
	d.logger.InfoContext(ctx, "alert fired",
		"product_id", event.ProductID,
		"rule_id", event.RuleID,
		"kind", event.Kind,
		"price", event.Price.String(),
		"channels", event.Channels,
		"message", event.Message,
	)
}
