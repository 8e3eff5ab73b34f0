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
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if EVENTFEEDS_CONFIG is set
//  3. env (prefix EVENTFEEDS_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("EVENTFEEDS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: EVENTFEEDS_TIMEZONE, EVENTFEEDS_HORIZON_DAYS, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("EVENTFEEDS_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "eventfeeds_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Timezone == "" {
		return fmt.Errorf("%w: timezone must not be empty", ErrInvalidConfig)
	}
	if c.PolitenessMinSec < 0 || c.PolitenessMaxSec < c.PolitenessMinSec {
		return fmt.Errorf("%w: politeness window [%d,%d] is not ordered",
			ErrInvalidConfig, c.PolitenessMinSec, c.PolitenessMaxSec)
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("%w: fetch_concurrency must be positive", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for _, s := range c.Sources {
		if s.Name == "" || s.Kind == "" {
			return fmt.Errorf("%w: source entries need name and kind", ErrInvalidConfig)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: duplicate source name %q", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}
