package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if FANSCORE_CONFIG is set
//  3. env (prefix FANSCORE_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("FANSCORE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: FANSCORE_VIDEO_ID, FANSCORE_QUEUE_SIZE, ...
	// Map env keys like FANSCORE_QUEUE_SIZE -> queue_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("FANSCORE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "fanscore_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Comma-separated api_keys from the environment arrive as one string.
	if len(cfg.APIKeys) == 1 && strings.Contains(cfg.APIKeys[0], ",") {
		cfg.APIKeys = splitKeys(cfg.APIKeys[0])
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	if cfg.VideoID == "" {
		return fmt.Errorf("%w: video_id is required", ErrInvalidConfig)
	}
	if cfg.Effectiveness <= 0 || cfg.Effectiveness > 1 {
		return fmt.Errorf("%w: effectiveness must be in (0, 1]", ErrInvalidConfig)
	}
	return nil
}

func splitKeys(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
