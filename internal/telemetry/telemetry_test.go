package telemetry

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/aryan-manish-vaidya/Aurora/internal/config"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func TestSetupServesPrometheusMetrics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := Setup(ctx, config.TelemetryConfig{}, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, providers.Shutdown(context.Background())) }()

	counter, err := otel.Meter("telemetry-test").Int64Counter("aurora.test.events")
	require.NoError(t, err)
	counter.Add(ctx, 3, metric.WithAttributes())

	addr, err := providers.Serve(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "aurora_test_events")
}

func TestServeWithoutBindIsNoop(t *testing.T) {
	providers, err := Setup(context.Background(), config.TelemetryConfig{}, nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	addr, err := providers.Serve(context.Background(), " ")
	require.NoError(t, err)
	require.Empty(t, addr)
}

func TestSetupWritesTracesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "aurora.jsonl")
	providers, err := Setup(context.Background(), config.TelemetryConfig{TracesFile: path}, nil)
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "test span")
	span.End()
	require.NoError(t, providers.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "test span")
}

func TestShutdownNilProviders(t *testing.T) {
	var providers *Providers
	require.NoError(t, providers.Shutdown(context.Background()))
}
