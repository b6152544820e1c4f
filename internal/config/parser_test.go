package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmptyContentReturnsBase(t *testing.T) {
	cfg, _, err := Parse("  \n", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestParseSelectsYAMLForNonObjectContent(t *testing.T) {
	input := `
# aurora config
log_level: debug
inference:
  model: gemini-2.0-flash
  max_history_turns: 0
playback:
  backend: espeak
  voices:
    - en-us
    - en
  pitch: 1.2
events:
  nats_url: nats://127.0.0.1:4222
`
	cfg, _, err := Parse(input, Default())
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "gemini-2.0-flash", cfg.Inference.Model)
	require.Zero(t, cfg.Inference.MaxHistoryTurns)
	require.Equal(t, "espeak", cfg.Playback.Backend)
	require.Equal(t, []string{"en-us", "en"}, cfg.Playback.Voices)
	require.Equal(t, 1.2, cfg.Playback.Pitch)
	require.Equal(t, "nats://127.0.0.1:4222", cfg.Events.NATSURL)
	require.Equal(t, "aurora.session", cfg.Events.Subject)
}

func TestParseYAMLAcceptsCommaDelimitedVoices(t *testing.T) {
	cfg, _, err := Parse("playback:\n  voices: en-gb, en\n", Default())
	require.NoError(t, err)
	require.Equal(t, []string{"en-gb", "en"}, cfg.Playback.Voices)
}

func TestParseYAMLRejectsUnknownKey(t *testing.T) {
	_, _, err := Parse("inference:\n  temperature: 0.2\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "temperature")
}

func TestParseYAMLCommentsOnlyReturnsBase(t *testing.T) {
	cfg, _, err := Parse("# nothing yet\n", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestParseYAMLRejectsMultipleDocuments(t *testing.T) {
	_, _, err := Parse("log_level: info\n---\nlog_level: debug\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple documents")
}

func TestSchemaDescribesFileShape(t *testing.T) {
	raw, err := Schema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	require.Equal(t, "aurora config", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"log_level", "inference", "deepgram", "capture", "playback", "indicator", "events", "telemetry"} {
		require.Contains(t, props, key)
	}

	inference := props["inference"].(map[string]any)
	inferenceProps := inference["properties"].(map[string]any)
	require.Contains(t, inferenceProps, "max_history_turns")
}

func TestDefaultVoicesFollowBackend(t *testing.T) {
	require.Equal(t, DefaultVoices("deepgram"), Default().Playback.Voices)

	cfg, _, err := Parse("playback:\n  backend: espeak\n", Default())
	require.NoError(t, err)
	require.Equal(t, []string{"en-us", "english_rp", "en"}, cfg.Playback.Voices)

	cfg, _, err = Parse("playback:\n  backend: espeak\n  voices: [en-gb]\n", Default())
	require.NoError(t, err)
	require.Equal(t, []string{"en-gb"}, cfg.Playback.Voices)

	cfg, _, err = Parse("playback:\n  pitch: 1.1\n", Default())
	require.NoError(t, err)
	require.Equal(t, DefaultVoices("deepgram"), cfg.Playback.Voices)

	require.Nil(t, DefaultVoices("unknown"))
}
