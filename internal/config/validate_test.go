package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "deepgram.api_key")
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "log_level"},
		{name: "empty endpoint", mutate: func(c *Config) { c.Inference.Endpoint = "" }, wantErr: "inference.endpoint"},
		{name: "non http endpoint", mutate: func(c *Config) { c.Inference.Endpoint = "ftp://example.com" }, wantErr: "http(s) URL"},
		{name: "empty model", mutate: func(c *Config) { c.Inference.Model = " " }, wantErr: "inference.model"},
		{name: "zero timeout", mutate: func(c *Config) { c.Inference.TimeoutMS = 0 }, wantErr: "inference.timeout_ms"},
		{name: "negative history", mutate: func(c *Config) { c.Inference.MaxHistoryTurns = -1 }, wantErr: "max_history_turns"},
		{name: "unknown capture backend", mutate: func(c *Config) { c.Capture.Backend = "vosk" }, wantErr: "capture.backend"},
		{name: "empty locale", mutate: func(c *Config) { c.Capture.Locale = "" }, wantErr: "capture.locale"},
		{name: "zero no speech timeout", mutate: func(c *Config) { c.Capture.NoSpeechTimeoutMS = 0 }, wantErr: "no_speech_timeout_ms"},
		{name: "short utterance end", mutate: func(c *Config) { c.Capture.Deepgram.UtteranceEndMS = 500 }, wantErr: "utterance_end_ms"},
		{name: "exec without command", mutate: func(c *Config) {
			c.Capture.Backend = "exec"
			c.Capture.Exec.Command = CommandConfig{}
		}, wantErr: "capture.exec.command"},
		{name: "exec without window", mutate: func(c *Config) {
			c.Capture.Backend = "exec"
			c.Capture.Exec.WindowMS = 0
		}, wantErr: "window_ms"},
		{name: "unknown playback backend", mutate: func(c *Config) { c.Playback.Backend = "say" }, wantErr: "playback.backend"},
		{name: "pitch out of range", mutate: func(c *Config) { c.Playback.Pitch = 3 }, wantErr: "playback.pitch"},
		{name: "zero rate", mutate: func(c *Config) { c.Playback.Rate = 0 }, wantErr: "playback.rate"},
		{name: "espeak without command", mutate: func(c *Config) {
			c.Playback.Backend = "espeak"
			c.Playback.Command = CommandConfig{}
		}, wantErr: "playback.command"},
		{name: "odd sample rate", mutate: func(c *Config) { c.Playback.Deepgram.SampleRate = 22050 }, wantErr: "sample_rate"},
		{name: "unknown indicator backend", mutate: func(c *Config) { c.Indicator.Backend = "tray" }, wantErr: "indicator.backend"},
		{name: "desktop without app name", mutate: func(c *Config) { c.Indicator.DesktopAppName = "" }, wantErr: "desktop_app_name"},
		{name: "negative error timeout", mutate: func(c *Config) { c.Indicator.ErrorTimeoutMS = -1 }, wantErr: "error_timeout"},
		{name: "nats without subject", mutate: func(c *Config) {
			c.Events.NATSURL = "nats://127.0.0.1:4222"
			c.Events.Subject = ""
		}, wantErr: "events.subject"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := Default()
	cfg.Deepgram.APIKey = "dg"
	cfg.Inference.Persona = ""
	cfg.Telemetry.OTLPInsecure = true

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0].Message, "persona")
	require.Contains(t, warnings[1].Message, "otlp_insecure")
}

func TestValidateSkipsDeepgramWarningForLocalBackends(t *testing.T) {
	cfg := Default()
	cfg.Capture.Backend = "exec"
	cfg.Playback.Backend = "espeak"

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Empty(t, warnings)
}
