// Package telemetry installs OpenTelemetry trace and metric providers for the assistant.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/aryan-manish-vaidya/Aurora/internal/config"
	"github.com/aryan-manish-vaidya/Aurora/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const serviceName = "aurora"

// Providers owns the installed providers and the optional metrics endpoint.
type Providers struct {
	MetricsHandler http.Handler

	shutdown    []func(context.Context) error
	server      *http.Server
	logger      *slog.Logger
	logProvider *sdklog.LoggerProvider
}

// Setup installs global trace, log and meter providers for cfg.
//
// Traces go to OTLP when an endpoint is set, else to TracesFile when set, else nowhere.
// Logs follow the same rule with LogsFile.
// Metrics are always collected into a private Prometheus registry.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) (*Providers, error) {
	if logger == nil {
		logger = slog.Default()
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version.Version),
			attribute.String("host.arch", runtime.GOARCH),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	p := &Providers{logger: logger}

	traceProvider, traceShutdown, err := initTracer(ctx, cfg, res, logger)
	if err != nil {
		return nil, err
	}
	if traceProvider != nil {
		otel.SetTracerProvider(traceProvider)
		p.shutdown = append(p.shutdown, traceShutdown)
	}

	logProvider, logShutdown, err := initLogs(ctx, cfg, res)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	if logProvider != nil {
		global.SetLoggerProvider(logProvider)
		p.logProvider = logProvider
		p.shutdown = append(p.shutdown, logShutdown)
	}

	meterProvider, handler, err := initMetrics(res)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	otel.SetMeterProvider(meterProvider)
	p.shutdown = append(p.shutdown, meterProvider.Shutdown)
	p.MetricsHandler = handler

	return p, nil
}

func initTracer(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource, logger *slog.Logger) (*sdktrace.TracerProvider, func(context.Context) error, error) {
	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts,
				otlptracegrpc.WithInsecure(),
				otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			)
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create otlp trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
		logger.Info("telemetry initialized", slog.String("exporter", "otlp"), slog.String("endpoint", endpoint))
		return tp, tp.Shutdown, nil
	}

	if path := strings.TrimSpace(cfg.TracesFile); path != "" {
		w, err := openTelemetryFile(path, "traces")
		if err != nil {
			return nil, nil, err
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			_ = w.Close()
			return nil, nil, fmt.Errorf("create file trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
		logger.Info("telemetry initialized", slog.String("exporter", "file"), slog.String("path", path))
		return tp, func(ctx context.Context) error {
			return errors.Join(tp.Shutdown(ctx), w.Close())
		}, nil
	}

	return nil, nil, nil
}

func openTelemetryFile(path string, kind string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create %s dir: %w", kind, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open %s file: %w", kind, err)
	}
	return f, nil
}

func initMetrics(res *resource.Resource) (*sdkmetric.MeterProvider, http.Handler, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	return provider, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// Serve exposes /metrics on bind until ctx is cancelled. An empty bind is a no-op.
func (p *Providers) Serve(ctx context.Context, bind string) (string, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" || p.MetricsHandler == nil {
		return "", nil
	}

	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return "", fmt.Errorf("listen metrics %s: %w", bind, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", p.MetricsHandler)
	p.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := p.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Warn("metrics server stopped", "error", err.Error())
		}
	}()

	addr := listener.Addr().String()
	p.logger.Info("metrics endpoint listening", "addr", addr)
	return addr, nil
}

// Shutdown flushes and stops every provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	for i := len(p.shutdown) - 1; i >= 0; i-- {
		if err := p.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdown = nil
	return errors.Join(errs...)
}
