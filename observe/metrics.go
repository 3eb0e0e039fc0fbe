// Package observe records OpenTelemetry metrics for the dialogue engine.
//
// Instruments are fed from engine events through [Metrics.Attach], so the
// resolve path itself never touches OTel. Tests and the REPL read the
// numbers back through a [sdkmetric.ManualReader] (see [Recorder]).
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/nathoo/parley/engine/effects"
	"github.com/nathoo/parley/engine/events"
	"github.com/nathoo/parley/types"
)

// meterName is the instrumentation scope name used for all parley metrics.
const meterName = "github.com/nathoo/parley"

// Metric names.
const (
	nameTurns        = "parley.turns"
	nameTurnDuration = "parley.turn.duration"
	nameRedirects    = "parley.redirects"
	nameTopicChanges = "parley.topic_changes"
	nameReloads      = "parley.reloads"
	nameIndexSwaps   = "parley.index_swaps"
)

// Metrics holds the metric instruments. All fields are safe for
// concurrent use.
type Metrics struct {
	// Turns counts resolved and failed turns. Attribute "outcome" is the
	// event type: reply, no_response, no_branch or redirect_overflow.
	Turns metric.Int64Counter

	// TurnDuration tracks resolution latency for every turn.
	TurnDuration metric.Float64Histogram

	// Redirects counts {@ ...} redirects followed by successful turns.
	Redirects metric.Int64Counter

	// TopicChanges counts committed topic transitions. Attribute "topic"
	// is the new topic.
	TopicChanges metric.Int64Counter

	// Reloads counts corpus reload attempts. Attribute "status" is ok or
	// error.
	Reloads metric.Int64Counter

	// IndexSwaps counts indexes installed into the engine.
	IndexSwaps metric.Int64Counter
}

// latencyBuckets are histogram bucket boundaries in seconds. Turns are
// expected to resolve in well under a millisecond.
var latencyBuckets = []float64{
	0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Turns, err = m.Int64Counter(nameTurns,
		metric.WithDescription("Dialogue turns by outcome."),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram(nameTurnDuration,
		metric.WithDescription("Latency of turn resolution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Redirects, err = m.Int64Counter(nameRedirects,
		metric.WithDescription("Redirects followed while resolving turns."),
	); err != nil {
		return nil, err
	}
	if met.TopicChanges, err = m.Int64Counter(nameTopicChanges,
		metric.WithDescription("Committed topic transitions by new topic."),
	); err != nil {
		return nil, err
	}
	if met.Reloads, err = m.Int64Counter(nameReloads,
		metric.WithDescription("Corpus reload attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.IndexSwaps, err = m.Int64Counter(nameIndexSwaps,
		metric.WithDescription("Indexes installed into the engine."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// Subscriber is the part of *engine.Engine that Attach needs.
type Subscriber interface {
	Subscribe(eventType string, h events.Handler)
}

// Attach subscribes m to every event sub emits.
func (m *Metrics) Attach(sub Subscriber) {
	sub.Subscribe("", m.Observe)
}

// Observe records one engine event.
func (m *Metrics) Observe(ev types.Event) {
	ctx := context.Background()
	switch ev.Type {
	case events.Reply, events.NoResponse, events.NoBranch, events.RedirectOverflow:
		m.Turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", ev.Type)))
		if d, ok := ev.Data["elapsed"].(time.Duration); ok {
			m.TurnDuration.Record(ctx, d.Seconds())
		}
	case events.Redirect:
		m.Redirects.Add(ctx, 1)
	case effects.EventTopicChanged:
		topic, _ := ev.Data["to"].(string)
		m.TopicChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
	case events.IndexSwapped:
		m.IndexSwaps.Add(ctx, 1)
	}
}

// RecordReload counts one reload attempt.
func (m *Metrics) RecordReload(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Reloads.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}
