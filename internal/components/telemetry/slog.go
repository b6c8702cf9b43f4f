package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("guapassist.telemetry")

// SlogAPI implements API using the log/slog package, counts are additionally
// recorded as otel gauges so they reach whatever meter provider is installed.
type SlogAPI struct {
	gauges *gaugeSet
}

func NewSlogAPI() SlogAPI {
	return SlogAPI{gauges: &gaugeSet{}}
}

type gaugeSet struct {
	mutex  sync.Mutex
	gauges map[string]metric.Int64Gauge
}

func (g *gaugeSet) record(id string, count int64) {
	if g == nil {
		return
	}
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.gauges == nil {
		g.gauges = map[string]metric.Int64Gauge{}
	}
	gauge, ok := g.gauges[id]
	if !ok {
		var err error
		gauge, err = meter.Int64Gauge("report_count")
		if err != nil {
			return
		}
		g.gauges[id] = gauge
	}
	gauge.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
}

func (SlogAPI) formatParams(out *[]any, params []any) {
	for i, p := range params {
		*out = append(
			*out,
			fmt.Sprintf("params.%d", i),
			p,
		)
	}
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	slog.Error("broken component", remainingPairs...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	slog.Warn("warning", remainingPairs...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	remainingPairs := []any{}
	s.formatParams(&remainingPairs, params)
	slog.Debug(message, remainingPairs...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
	s.gauges.record(id, count)
}
