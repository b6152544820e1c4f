package capture

import "go.opentelemetry.io/otel"

const scopeName = "github.com/aryan-manish-vaidya/Aurora/internal/capture"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
)
