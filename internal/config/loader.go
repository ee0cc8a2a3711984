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
//  2. file (YAML) if MUSTER_CONFIG is set
//  3. env (prefix MUSTER_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("MUSTER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: MUSTER_ADDR, MUSTER_QUEUE_SIZE, ...
	// Map env keys like MUSTER_QUEUE_SIZE -> queue_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("MUSTER_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "muster_")
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

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the service cannot run with.
func validate(cfg *Config) error {
	switch {
	case cfg.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case cfg.RecomputeQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case cfg.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case cfg.MaxBoardLimit <= 0:
		return fmt.Errorf("%w: max_board_limit must be positive", ErrInvalidConfig)
	case cfg.CheckInOpenBeforeMin < 0 || cfg.CheckInCloseAfterMin < 0:
		return fmt.Errorf("%w: check-in window bounds must not be negative", ErrInvalidConfig)
	case cfg.GeofenceRadiusM <= 0:
		return fmt.Errorf("%w: geofence_radius_m must be positive", ErrInvalidConfig)
	case cfg.LateWeight < 0 || cfg.LateWeight > 1:
		return fmt.Errorf("%w: late_weight must be within [0, 1]", ErrInvalidConfig)
	case cfg.LatenessWarnRatio < 0 || cfg.LatenessWarnRatio > 1:
		return fmt.Errorf("%w: lateness_warn_ratio must be within [0, 1]", ErrInvalidConfig)
	}
	return nil
}
