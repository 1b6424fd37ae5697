package infra

import (
	"context"
	"log"
	"time"

	"github.com/tnqbao/gau-media-offload/config"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TelemetryClient carries the OTLP trace and metric pipelines plus the
// instruments used on the transfer path.
type TelemetryClient struct {
	Tracer trace.Tracer

	UploadCounter  metric.Int64Counter
	UploadDuration metric.Float64Histogram

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

func InitTelemetryClient(cfg *config.EnvConfig) *TelemetryClient {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.Grafana.ServiceName),
		attribute.String("deployment.environment", cfg.Environment.Mode),
	)

	traceExporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(
		otlptracehttp.WithEndpoint(cfg.Grafana.OTLPEndpoint),
		otlptracehttp.WithURLPath("/otlp/v1/traces"),
	))
	if err != nil {
		log.Printf("OTLP trace exporter unavailable, traces disabled: %v", err)
		return &TelemetryClient{Tracer: otel.Tracer(cfg.Grafana.ServiceName)}
	}

	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.Grafana.OTLPEndpoint),
		otlpmetrichttp.WithURLPath("/otlp/v1/metrics"),
	)
	if err != nil {
		log.Printf("OTLP metric exporter unavailable, metrics disabled: %v", err)
		return &TelemetryClient{Tracer: otel.Tracer(cfg.Grafana.ServiceName)}
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMeterProvider(meterProvider)); err != nil {
		log.Printf("Failed to start runtime instrumentation: %v", err)
	}

	meter := meterProvider.Meter(cfg.Grafana.ServiceName)

	uploadCounter, err := meter.Int64Counter("offload.uploads",
		metric.WithDescription("Number of upload attempts by outcome"))
	if err != nil {
		log.Printf("Failed to create upload counter: %v", err)
	}

	uploadDuration, err := meter.Float64Histogram("offload.upload.duration",
		metric.WithDescription("Upload duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		log.Printf("Failed to create upload duration histogram: %v", err)
	}

	return &TelemetryClient{
		Tracer:         tracerProvider.Tracer(cfg.Grafana.ServiceName),
		UploadCounter:  uploadCounter,
		UploadDuration: uploadDuration,
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
	}
}

// RecordUpload records one classified upload attempt.
func (t *TelemetryClient) RecordUpload(ctx context.Context, outcome string, duration time.Duration) {
	if t.UploadCounter != nil {
		t.UploadCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if t.UploadDuration != nil {
		t.UploadDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func (t *TelemetryClient) Shutdown(ctx context.Context) {
	if t.tracerProvider != nil {
		_ = t.tracerProvider.Shutdown(ctx)
	}
	if t.meterProvider != nil {
		_ = t.meterProvider.Shutdown(ctx)
	}
}
