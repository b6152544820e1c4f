package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aryan-manish-vaidya/Aurora/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoggerMirrorsRecordsToLogsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otel", "logs.jsonl")
	providers, err := Setup(context.Background(), config.TelemetryConfig{LogsFile: path}, nil)
	require.NoError(t, err)

	var local bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&local, nil))
	logger := providers.Logger(base).With("component", "capture")
	logger.Info("capture started", "attempt", 3)
	logger.Debug("filtered locally")

	require.NoError(t, providers.Shutdown(context.Background()))

	require.Contains(t, local.String(), `"msg":"capture started"`)
	require.Contains(t, local.String(), `"component":"capture"`)
	require.NotContains(t, local.String(), "filtered locally")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "capture started")
	require.Contains(t, string(data), "component")
}

func TestLoggerWithoutLogProviderReturnsBase(t *testing.T) {
	providers, err := Setup(context.Background(), config.TelemetryConfig{}, nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	require.Same(t, base, providers.Logger(base))

	var nilProviders *Providers
	require.Same(t, base, nilProviders.Logger(base))
}

func TestFanoutRespectsEachHandlerLevel(t *testing.T) {
	var debug, warn bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
	require.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(h).WithGroup("turn").With("id", "t1")
	logger.Debug("pending")
	logger.Warn("apology")

	require.Contains(t, debug.String(), "pending")
	require.Contains(t, debug.String(), "turn.id=t1")
	require.Contains(t, debug.String(), "apology")
	require.NotContains(t, warn.String(), "pending")
	require.Contains(t, warn.String(), "apology")
}
