package notification

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fleetminder/fleetminder/internal/reminder"
)

const meterName = "github.com/fleetminder/fleetminder/internal/notification"

// Metrics holds the instruments recorded on every feed generation.
type Metrics struct {
	generated metric.Int64Counter
	feedSize  metric.Int64Histogram
	dismissed metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with initialized instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	generated, err := meter.Int64Counter(
		"fleet.notifications.generated",
		metric.WithDescription("Number of reminder notifications derived by the engine"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	feedSize, err := meter.Int64Histogram(
		"fleet.notifications.feed.size",
		metric.WithDescription("Number of notifications in a generated feed"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	dismissed, err := meter.Int64Counter(
		"fleet.notifications.dismissed",
		metric.WithDescription("Number of notifications dismissed by users"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		generated: generated,
		feedSize:  feedSize,
		dismissed: dismissed,
	}, nil
}

func (m *Metrics) recordFeed(ctx context.Context, feed []reminder.Notification) {
	if m == nil {
		return
	}

	type key struct {
		category reminder.Category
		expired  bool
	}
	counts := make(map[key]int64)
	for _, n := range feed {
		counts[key{n.Category, n.IsExpired}]++
	}

	for k, c := range counts {
		m.generated.Add(ctx, c, metric.WithAttributes(
			attribute.String("category", string(k.category)),
			attribute.Bool("expired", k.expired),
		))
	}
	m.feedSize.Record(ctx, int64(len(feed)))
}

func (m *Metrics) recordDismissal(ctx context.Context, category reminder.Category) {
	if m == nil {
		return
	}
	m.dismissed.Add(ctx, 1, metric.WithAttributes(attribute.String("category", string(category))))
}
