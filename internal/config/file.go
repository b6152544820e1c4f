package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape shared by the JSONC and YAML formats.
// Pointer fields distinguish "unset" from zero values so partial files overlay defaults.
type fileConfig struct {
	LogLevel  *string        `json:"log_level,omitempty" yaml:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Inference *fileInference `json:"inference,omitempty" yaml:"inference"`
	Deepgram  *fileDeepgram  `json:"deepgram,omitempty" yaml:"deepgram"`
	Capture   *fileCapture   `json:"capture,omitempty" yaml:"capture"`
	Playback  *filePlayback  `json:"playback,omitempty" yaml:"playback"`
	Indicator *fileIndicator `json:"indicator,omitempty" yaml:"indicator"`
	Events    *fileEvents    `json:"events,omitempty" yaml:"events"`
	Telemetry *fileTelemetry `json:"telemetry,omitempty" yaml:"telemetry"`
}

type fileInference struct {
	Endpoint        *string `json:"endpoint,omitempty" yaml:"endpoint" jsonschema:"description=Base URL of the generative language API"`
	Model           *string `json:"model,omitempty" yaml:"model"`
	APIKey          *string `json:"api_key,omitempty" yaml:"api_key" jsonschema:"description=Overridden by GEMINI_API_KEY when set"`
	TimeoutMS       *int    `json:"timeout_ms,omitempty" yaml:"timeout_ms" jsonschema:"minimum=1"`
	MaxHistoryTurns *int    `json:"max_history_turns,omitempty" yaml:"max_history_turns" jsonschema:"minimum=0,description=0 sends the whole transcript"`
	Persona         *string `json:"persona,omitempty" yaml:"persona"`
}

type fileDeepgram struct {
	APIKey *string `json:"api_key,omitempty" yaml:"api_key" jsonschema:"description=Overridden by DEEPGRAM_API_KEY when set"`
}

type fileCapture struct {
	Backend           *string             `json:"backend,omitempty" yaml:"backend" jsonschema:"enum=deepgram,enum=exec"`
	Locale            *string             `json:"locale,omitempty" yaml:"locale"`
	Input             *string             `json:"input,omitempty" yaml:"input"`
	Fallback          *string             `json:"fallback,omitempty" yaml:"fallback"`
	NoSpeechTimeoutMS *int                `json:"no_speech_timeout_ms,omitempty" yaml:"no_speech_timeout_ms" jsonschema:"minimum=1"`
	Deepgram          *fileDeepgramListen `json:"deepgram,omitempty" yaml:"deepgram"`
	Exec              *fileExecCapture    `json:"exec,omitempty" yaml:"exec"`
}

type fileDeepgramListen struct {
	Model          *string `json:"model,omitempty" yaml:"model"`
	EndpointingMS  *int    `json:"endpointing_ms,omitempty" yaml:"endpointing_ms" jsonschema:"minimum=0"`
	UtteranceEndMS *int    `json:"utterance_end_ms,omitempty" yaml:"utterance_end_ms" jsonschema:"minimum=0"`
}

type fileExecCapture struct {
	Command  *string `json:"command,omitempty" yaml:"command"`
	WindowMS *int    `json:"window_ms,omitempty" yaml:"window_ms" jsonschema:"minimum=1"`
}

type filePlayback struct {
	Backend  *string            `json:"backend,omitempty" yaml:"backend" jsonschema:"enum=deepgram,enum=espeak"`
	Voices   *stringList        `json:"voices,omitempty" yaml:"voices"`
	Pitch    *float64           `json:"pitch,omitempty" yaml:"pitch"`
	Rate     *float64           `json:"rate,omitempty" yaml:"rate"`
	Command  *string            `json:"command,omitempty" yaml:"command"`
	Deepgram *fileDeepgramSpeak `json:"deepgram,omitempty" yaml:"deepgram"`
}

type fileDeepgramSpeak struct {
	SampleRate *int `json:"sample_rate,omitempty" yaml:"sample_rate"`
}

type fileIndicator struct {
	Enable         *bool   `json:"enable,omitempty" yaml:"enable"`
	Backend        *string `json:"backend,omitempty" yaml:"backend" jsonschema:"enum=hypr,enum=desktop"`
	DesktopAppName *string `json:"desktop_app_name,omitempty" yaml:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable,omitempty" yaml:"sound_enable"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms,omitempty" yaml:"error_timeout_ms" jsonschema:"minimum=0"`
}

type fileEvents struct {
	NATSURL *string `json:"nats_url,omitempty" yaml:"nats_url"`
	Subject *string `json:"subject,omitempty" yaml:"subject"`
}

type fileTelemetry struct {
	TracesFile   *string `json:"traces_file,omitempty" yaml:"traces_file"`
	LogsFile     *string `json:"logs_file,omitempty" yaml:"logs_file"`
	OTLPEndpoint *string `json:"otlp_endpoint,omitempty" yaml:"otlp_endpoint"`
	OTLPInsecure *bool   `json:"otlp_insecure,omitempty" yaml:"otlp_insecure"`
	MetricsBind  *string `json:"metrics_bind,omitempty" yaml:"metrics_bind"`
}

// stringList accepts either a string array or a comma-delimited string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = splitCommaList(single)
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	case yaml.ScalarNode:
		*l = splitCommaList(node.Value)
		return nil
	default:
		return fmt.Errorf("line %d: expected string list or comma-delimited string", node.Line)
	}
}

func splitCommaList(single string) []string {
	parts := strings.Split(single, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// finish overlays payload onto base and validates the result.
func finish(payload fileConfig, base Config) (Config, []Warning, error) {
	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	setString(&cfg.LogLevel, payload.LogLevel)

	if in := payload.Inference; in != nil {
		setString(&cfg.Inference.Endpoint, in.Endpoint)
		setString(&cfg.Inference.Model, in.Model)
		setString(&cfg.Inference.APIKey, in.APIKey)
		setInt(&cfg.Inference.TimeoutMS, in.TimeoutMS)
		setInt(&cfg.Inference.MaxHistoryTurns, in.MaxHistoryTurns)
		if in.Persona != nil {
			cfg.Inference.Persona = *in.Persona
		}
	}

	if payload.Deepgram != nil {
		setString(&cfg.Deepgram.APIKey, payload.Deepgram.APIKey)
	}

	if c := payload.Capture; c != nil {
		setString(&cfg.Capture.Backend, c.Backend)
		setString(&cfg.Capture.Locale, c.Locale)
		setString(&cfg.Capture.Input, c.Input)
		setString(&cfg.Capture.Fallback, c.Fallback)
		setInt(&cfg.Capture.NoSpeechTimeoutMS, c.NoSpeechTimeoutMS)
		if dg := c.Deepgram; dg != nil {
			setString(&cfg.Capture.Deepgram.Model, dg.Model)
			setInt(&cfg.Capture.Deepgram.EndpointingMS, dg.EndpointingMS)
			setInt(&cfg.Capture.Deepgram.UtteranceEndMS, dg.UtteranceEndMS)
		}
		if ex := c.Exec; ex != nil {
			if ex.Command != nil {
				command, err := parseCommand("capture.exec.command", *ex.Command)
				if err != nil {
					return nil, err
				}
				cfg.Capture.Exec.Command = command
			}
			setInt(&cfg.Capture.Exec.WindowMS, ex.WindowMS)
		}
	}

	if p := payload.Playback; p != nil {
		backend := cfg.Playback.Backend
		setString(&cfg.Playback.Backend, p.Backend)
		switch {
		case p.Voices != nil:
			cfg.Playback.Voices = append([]string(nil), (*p.Voices)...)
		case cfg.Playback.Backend != backend:
			cfg.Playback.Voices = DefaultVoices(cfg.Playback.Backend)
		}
		if p.Pitch != nil {
			cfg.Playback.Pitch = *p.Pitch
		}
		if p.Rate != nil {
			cfg.Playback.Rate = *p.Rate
		}
		if p.Command != nil {
			command, err := parseCommand("playback.command", *p.Command)
			if err != nil {
				return nil, err
			}
			cfg.Playback.Command = command
		}
		if p.Deepgram != nil {
			setInt(&cfg.Playback.Deepgram.SampleRate, p.Deepgram.SampleRate)
		}
	}

	if ind := payload.Indicator; ind != nil {
		setBool(&cfg.Indicator.Enable, ind.Enable)
		setString(&cfg.Indicator.Backend, ind.Backend)
		setString(&cfg.Indicator.DesktopAppName, ind.DesktopAppName)
		setBool(&cfg.Indicator.SoundEnable, ind.SoundEnable)
		setInt(&cfg.Indicator.ErrorTimeoutMS, ind.ErrorTimeoutMS)
	}

	if ev := payload.Events; ev != nil {
		setString(&cfg.Events.NATSURL, ev.NATSURL)
		setString(&cfg.Events.Subject, ev.Subject)
	}

	if tel := payload.Telemetry; tel != nil {
		setString(&cfg.Telemetry.TracesFile, tel.TracesFile)
		setString(&cfg.Telemetry.LogsFile, tel.LogsFile)
		setString(&cfg.Telemetry.OTLPEndpoint, tel.OTLPEndpoint)
		setBool(&cfg.Telemetry.OTLPInsecure, tel.OTLPInsecure)
		setString(&cfg.Telemetry.MetricsBind, tel.MetricsBind)
	}

	return warnings, nil
}

func parseCommand(key string, raw string) (CommandConfig, error) {
	argv, err := parseArgv(raw)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
