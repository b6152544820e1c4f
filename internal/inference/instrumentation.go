package inference

import "go.opentelemetry.io/otel"

const scopeName = "github.com/aryan-manish-vaidya/Aurora/internal/inference"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
)
