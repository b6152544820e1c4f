package playback

import "go.opentelemetry.io/otel"

const scopeName = "github.com/aryan-manish-vaidya/Aurora/internal/playback"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
)
