package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
//
// When no explicit path is given and config.jsonc is absent, a sibling config.yaml is used.
// GEMINI_API_KEY and DEEPGRAM_API_KEY override the file credentials.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	base := Default()
	applyEnv(&base)
	content, err := os.ReadFile(resolvedPath)
	if err != nil && errors.Is(err, os.ErrNotExist) && strings.TrimSpace(explicitPath) == "" {
		yamlPath := filepath.Join(filepath.Dir(resolvedPath), yamlFileName)
		if yamlContent, yamlErr := os.ReadFile(yamlPath); yamlErr == nil {
			resolvedPath, content, err = yamlPath, yamlContent, nil
		}
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{
				Path:   resolvedPath,
				Config: base,
				Warnings: []Warning{{
					Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
				}},
				Exists: false,
			}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg, warnings, err := Parse(string(content), base)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}
	applyEnv(&cfg)

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}, nil
}

func applyEnv(cfg *Config) {
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		cfg.Inference.APIKey = key
	}
	if key := strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")); key != "" {
		cfg.Deepgram.APIKey = key
	}
}
