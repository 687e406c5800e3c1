package observability

import (
	"context"
	"strconv"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"joinnow/internal/common/logger"
)

// Observability records HTTP request metrics through OpenTelemetry and
// exposes them via the Prometheus exporter. A nil *Observability is a no-op.
type Observability struct {
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	requestCounter  otelmetric.Int64Counter
	requestDuration otelmetric.Float64Histogram
	activeRequests  otelmetric.Int64UpDownCounter
}

// New registers the exporter with reg (the default registerer when nil).
// Exporter failures are logged and yield an instance that records nothing.
func New(serviceName string, reg promclient.Registerer, log logger.Logger) *Observability {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	var opts []prometheus.Option
	if reg != nil {
		opts = append(opts, prometheus.WithRegisterer(reg))
	}

	exporter, err := prometheus.New(opts...)
	if err != nil {
		log.Error("Failed to create Prometheus exporter", map[string]interface{}{
			"error": err,
		})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	requestCounter, _ := meter.Int64Counter(
		"http.server.requests",
		otelmetric.WithDescription("Number of HTTP requests served"),
	)

	requestDuration, _ := meter.Float64Histogram(
		"http.server.duration",
		otelmetric.WithDescription("HTTP request duration"),
		otelmetric.WithUnit("ms"),
	)

	activeRequests, _ := meter.Int64UpDownCounter(
		"http.server.active_requests",
		otelmetric.WithDescription("HTTP requests currently being served"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		requestCounter:  requestCounter,
		requestDuration: requestDuration,
		activeRequests:  activeRequests,
	}
}

func requestAttrs(method, route string, status int) otelmetric.MeasurementOption {
	return otelmetric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
}

// RecordRequest counts one finished request and its duration.
func (o *Observability) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if o == nil {
		return
	}
	if o.requestCounter != nil {
		o.requestCounter.Add(ctx, 1, requestAttrs(method, route, status))
	}
	if o.requestDuration != nil {
		o.requestDuration.Record(ctx, float64(duration.Milliseconds()), requestAttrs(method, route, status))
	}
}

// TrackActive adjusts the in-flight request gauge by delta.
func (o *Observability) TrackActive(ctx context.Context, delta int64) {
	if o == nil || o.activeRequests == nil {
		return
	}
	o.activeRequests.Add(ctx, delta)
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
