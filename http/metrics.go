package http

import (
	"go.opentelemetry.io/otel/metric"
)

type dropReason string

const (
	reasonEmpty     dropReason = "empty"
	reasonRead      dropReason = "read_error"
	reasonMalformed dropReason = "malformed"
	reasonTooLarge  dropReason = "too_large"
	reasonWrite     dropReason = "write_error"
	reasonPanic     dropReason = "panic"
)

type metrics struct {
	accepted     metric.Int64Counter
	acceptErrors metric.Int64Counter
	responses    metric.Int64Counter
	dropped      metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(instrumentationName)

	var m metrics
	var err error

	m.accepted, err = meter.Int64Counter("hello.connections.accepted",
		metric.WithDescription("The number of accepted connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}

	m.acceptErrors, err = meter.Int64Counter("hello.accept.errors",
		metric.WithDescription("The number of failed accepts"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, err
	}

	m.responses, err = meter.Int64Counter("hello.responses",
		metric.WithDescription("The number of responses written"),
		metric.WithUnit("{response}"))
	if err != nil {
		return nil, err
	}

	m.dropped, err = meter.Int64Counter("hello.connections.dropped",
		metric.WithDescription("The number of connections closed without a response, by reason"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}

	return &m, nil
}
