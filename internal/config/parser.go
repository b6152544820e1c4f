package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse reads configuration content as JSONC (preferred) or YAML.
//
// JSONC is selected when the first non-whitespace character is `{`.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	if strings.HasPrefix(trimmed, "{") {
		return parseJSONC(content, base)
	}
	return parseYAML(content, base)
}

func parseYAML(content string, base Config) (Config, []Warning, error) {
	decoder := yaml.NewDecoder(strings.NewReader(content))
	decoder.KnownFields(true)

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return finish(payload, base)
		}
		return Config{}, nil, fmt.Errorf("yaml: %w", err)
	}

	var extra yaml.Node
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return Config{}, nil, fmt.Errorf("yaml: %w", err)
		}
		return Config{}, nil, fmt.Errorf("yaml: multiple documents are not allowed")
	}

	return finish(payload, base)
}
