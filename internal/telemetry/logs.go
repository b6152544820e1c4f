package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aryan-manish-vaidya/Aurora/internal/config"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// initLogs builds a log provider with the same exporter choice as traces:
// OTLP when an endpoint is set, else LogsFile when set, else none.
func initLogs(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource) (*sdklog.LoggerProvider, func(context.Context) error, error) {
	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(endpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts,
				otlploggrpc.WithInsecure(),
				otlploggrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			)
		}
		exporter, err := otlploggrpc.New(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create otlp log exporter: %w", err)
		}
		lp := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
			sdklog.WithResource(res),
		)
		return lp, lp.Shutdown, nil
	}

	if path := strings.TrimSpace(cfg.LogsFile); path != "" {
		w, err := openTelemetryFile(path, "logs")
		if err != nil {
			return nil, nil, err
		}
		exporter, err := stdoutlog.New(stdoutlog.WithWriter(w))
		if err != nil {
			_ = w.Close()
			return nil, nil, fmt.Errorf("create file log exporter: %w", err)
		}
		lp := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
			sdklog.WithResource(res),
		)
		return lp, func(ctx context.Context) error {
			return errors.Join(lp.Shutdown(ctx), w.Close())
		}, nil
	}

	return nil, nil, nil
}

// Logger returns base extended to also emit every record to the installed
// OpenTelemetry log provider. Without one, base is returned unchanged.
func (p *Providers) Logger(base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if p == nil || p.logProvider == nil {
		return base
	}
	bridge := otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(p.logProvider))
	return slog.New(fanout{base.Handler(), bridge})
}

// fanout delivers each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
