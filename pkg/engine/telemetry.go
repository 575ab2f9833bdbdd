package engine

import (
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/lemonberrylabs/eggexpr/pkg/engine"

// instruments holds the engine's OpenTelemetry instruments.
type instruments struct {
	parses      metric.Int64Counter
	evaluations metric.Int64Counter
	duration    metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	parses, err := meter.Int64Counter("eggexpr.parse.count",
		metric.WithDescription("Number of parse requests, by cache outcome"),
	)
	if err != nil {
		return nil, err
	}

	evaluations, err := meter.Int64Counter("eggexpr.evaluate.count",
		metric.WithDescription("Number of evaluations, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("eggexpr.evaluate.duration",
		metric.WithDescription("Duration of expression evaluation in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &instruments{parses: parses, evaluations: evaluations, duration: duration}, nil
}
