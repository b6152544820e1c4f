package config

import "strings"

const (
	DefaultPersona = "You are Aurora, a high-end, polite, and sophisticated intelligent concierge. " +
		"Keep your answers concise (under 3 sentences) but helpful. " +
		"Just provide the direct answer or assistance naturally."
	DefaultInferenceEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultInferenceModel    = "gemini-2.5-flash-preview-09-2025"
)

// DefaultVoices is the voice preference order for a playback backend: a
// named high-quality voice, then any natural-sounding one, then a known-good
// fallback. The synthesizer default follows when none of them match.
func DefaultVoices(backend string) []string {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "deepgram":
		return []string{"aura-2-andromeda-en", "natural", "aura-asteria-en"}
	case "espeak":
		return []string{"en-us", "english_rp", "en"}
	default:
		return nil
	}
}

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	recognizer := "aurora-stt"
	synthesizer := "espeak-ng"

	return Config{
		LogLevel: "info",
		Inference: InferenceConfig{
			Endpoint:        DefaultInferenceEndpoint,
			Model:           DefaultInferenceModel,
			TimeoutMS:       30000,
			MaxHistoryTurns: 40,
			Persona:         DefaultPersona,
		},
		Capture: CaptureConfig{
			Backend:           "deepgram",
			Locale:            "en-US",
			Input:             "default",
			Fallback:          "default",
			NoSpeechTimeoutMS: 8000,
			Deepgram: DeepgramListenConfig{
				Model:          "nova-3",
				EndpointingMS:  300,
				UtteranceEndMS: 1000,
			},
			Exec: ExecCaptureConfig{
				Command:  CommandConfig{Raw: recognizer, Argv: mustParseArgv(recognizer)},
				WindowMS: 5000,
			},
		},
		Playback: PlaybackConfig{
			Backend: "deepgram",
			Voices:  DefaultVoices("deepgram"),
			Pitch:   1.0,
			Rate:    0.9,
			Command: CommandConfig{Raw: synthesizer, Argv: mustParseArgv(synthesizer)},
			Deepgram: DeepgramSpeakConfig{
				SampleRate: 24000,
			},
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "desktop",
			DesktopAppName: "aurora",
			SoundEnable:    true,
			ErrorTimeoutMS: 2400,
		},
		Events: EventsConfig{
			Subject: "aurora.session",
		},
	}
}
