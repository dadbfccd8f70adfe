package telemetry

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestApplyDefaultsKeepsExistingValues(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")
	// register the others for restore after the test
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "")
	os.Unsetenv("OTEL_EXPORTER_OTLP_PROTOCOL")
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "")
	os.Unsetenv("OTEL_RESOURCE_ATTRIBUTES")

	ApplyDefaults()

	assert.Equal(t, "http://collector:4317", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	assert.Equal(t, "grpc", os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"))
	assert.Equal(t, Defaults["OTEL_RESOURCE_ATTRIBUTES"], os.Getenv("OTEL_RESOURCE_ATTRIBUTES"))
}

func TestSetupInstallsGlobalProviders(t *testing.T) {
	// Exporters dial lazily, nothing has to listen here.
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://127.0.0.1:1")

	shutdown, err := Setup(context.Background(), "hello-test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())
	assert.IsType(t, &sdkmetric.MeterProvider{}, otel.GetMeterProvider())
	assert.IsType(t, &sdklog.LoggerProvider{}, global.GetLoggerProvider())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// The final metric export cannot reach the collector, only make sure
	// shutdown returns.
	_ = shutdown(ctx)
}
