package rebuild

import (
	"context"
	"fmt"
	"time"

	"github.com/bikesim/drivetrain/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/bikesim/drivetrain/internal/rebuild"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	rebuilds  metric.Int64Counter
	duration  metric.Float64Histogram
	coalesced metric.Int64Counter
	links     metric.Int64ObservableGauge
}

func newMetrics(c *Controller) (*metrics, error) {
	m := meter()
	out := &metrics{}

	var err error
	out.rebuilds, err = m.Int64Counter(
		"chain.rebuilds",
		metric.WithDescription("Rebuild attempts by outcome and trigger"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rebuild counter: %w", err)
	}

	out.duration, err = m.Float64Histogram(
		"chain.rebuild.duration",
		metric.WithDescription("Time spent in one rebuild"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	out.coalesced, err = m.Int64Counter(
		"chain.triggers.coalesced",
		metric.WithDescription("Triggers folded into another trigger's rebuild"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating coalesced counter: %w", err)
	}

	out.links, err = m.Int64ObservableGauge(
		"chain.links",
		metric.WithDescription("Links in the current chain"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating links gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(out.links, int64(c.Status().Links))
			return nil
		},
		out.links,
	)
	if err != nil {
		return nil, fmt.Errorf("registering links callback: %w", err)
	}

	return out, nil
}

func (m *metrics) record(ctx context.Context, rec *core.RebuildRecord) {
	attrs := metric.WithAttributes(
		attribute.String("outcome", string(rec.Outcome)),
		attribute.String("trigger", rec.Trigger.String()),
	)
	m.rebuilds.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(rec.Duration)/float64(time.Millisecond), attrs)
}
