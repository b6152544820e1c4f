// Package config resolves, parses, validates, and defaults aurora configuration.
package config

// Config is the fully materialized runtime configuration used by aurora.
type Config struct {
	LogLevel  string
	Inference InferenceConfig
	Deepgram  DeepgramConfig
	Capture   CaptureConfig
	Playback  PlaybackConfig
	Indicator IndicatorConfig
	Events    EventsConfig
	Telemetry TelemetryConfig
}

// InferenceConfig controls the remote language-model client.
type InferenceConfig struct {
	Endpoint        string
	Model           string
	APIKey          string
	TimeoutMS       int
	MaxHistoryTurns int
	Persona         string
}

// DeepgramConfig carries credentials shared by the Deepgram capture and playback backends.
type DeepgramConfig struct {
	APIKey string
}

// CaptureConfig controls speech-to-text backend selection and input-source preferences.
type CaptureConfig struct {
	Backend           string
	Locale            string
	Input             string
	Fallback          string
	NoSpeechTimeoutMS int
	Deepgram          DeepgramListenConfig
	Exec              ExecCaptureConfig
}

// DeepgramListenConfig tunes the Deepgram listen stream.
type DeepgramListenConfig struct {
	Model          string
	EndpointingMS  int
	UtteranceEndMS int
}

// ExecCaptureConfig controls the command-driven recognizer backend.
type ExecCaptureConfig struct {
	Command  CommandConfig
	WindowMS int
}

// PlaybackConfig controls speech synthesis backend and voice preferences.
type PlaybackConfig struct {
	Backend  string
	Voices   []string
	Pitch    float64
	Rate     float64
	Command  CommandConfig
	Deepgram DeepgramSpeakConfig
}

// DeepgramSpeakConfig tunes Deepgram Aura synthesis output.
type DeepgramSpeakConfig struct {
	SampleRate int
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	ErrorTimeoutMS int
}

// EventsConfig controls the optional NATS presentation bridge.
type EventsConfig struct {
	NATSURL string
	Subject string
}

// TelemetryConfig controls trace, log and metric export.
type TelemetryConfig struct {
	TracesFile   string
	LogsFile     string
	OTLPEndpoint string
	OTLPInsecure bool
	MetricsBind  string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
