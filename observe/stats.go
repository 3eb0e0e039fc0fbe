package observe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Recorder is a Metrics instance backed by an in-process ManualReader so
// the numbers can be shown without an exporter.
type Recorder struct {
	*Metrics
	reader *sdkmetric.ManualReader
	mp     *sdkmetric.MeterProvider
}

// NewRecorder creates a Recorder with its own MeterProvider.
func NewRecorder() (*Recorder, error) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp)
	if err != nil {
		return nil, err
	}
	return &Recorder{Metrics: m, reader: reader, mp: mp}, nil
}

// Shutdown releases the MeterProvider.
func (r *Recorder) Shutdown(ctx context.Context) error {
	return r.mp.Shutdown(ctx)
}

// Snapshot is a point-in-time summary of the recorded metrics.
type Snapshot struct {
	Turns        map[string]int64 // by outcome
	Redirects    int64
	TopicChanges map[string]int64 // by new topic
	Reloads      map[string]int64 // by status
	IndexSwaps   int64
	TurnCount    uint64
	MeanLatency  time.Duration
}

// Snapshot collects the current values.
func (r *Recorder) Snapshot(ctx context.Context) (Snapshot, error) {
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(ctx, &rm); err != nil {
		return Snapshot{}, fmt.Errorf("collecting metrics: %w", err)
	}

	snap := Snapshot{
		Turns:        map[string]int64{},
		TopicChanges: map[string]int64{},
		Reloads:      map[string]int64{},
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case nameTurns:
				sumBy(m, "outcome", snap.Turns)
			case nameTopicChanges:
				sumBy(m, "topic", snap.TopicChanges)
			case nameReloads:
				sumBy(m, "status", snap.Reloads)
			case nameRedirects:
				snap.Redirects = total(m)
			case nameIndexSwaps:
				snap.IndexSwaps = total(m)
			case nameTurnDuration:
				hist, ok := m.Data.(metricdata.Histogram[float64])
				if !ok {
					continue
				}
				var sum float64
				for _, dp := range hist.DataPoints {
					snap.TurnCount += dp.Count
					sum += dp.Sum
				}
				if snap.TurnCount > 0 {
					snap.MeanLatency = time.Duration(sum / float64(snap.TurnCount) * float64(time.Second))
				}
			}
		}
	}
	return snap, nil
}

func sumBy(m metricdata.Metrics, key string, out map[string]int64) {
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return
	}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		out[v.AsString()] += dp.Value
	}
}

func total(m metricdata.Metrics) int64 {
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	var n int64
	for _, dp := range sum.DataPoints {
		n += dp.Value
	}
	return n
}

// String renders the snapshot for the REPL.
func (s Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "turns: %d (mean %s)\n", s.TurnCount, s.MeanLatency)
	writeCounts(&b, "  outcome", s.Turns)
	fmt.Fprintf(&b, "redirects: %d\n", s.Redirects)
	writeCounts(&b, "topic changes", s.TopicChanges)
	writeCounts(&b, "reloads", s.Reloads)
	fmt.Fprintf(&b, "index swaps: %d", s.IndexSwaps)
	return b.String()
}

func writeCounts(b *strings.Builder, label string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(parts, " "))
}
