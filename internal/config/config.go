// Package config loads the Kestrel configuration: defaults, an optional YAML
// file, then KESTREL_* environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// Load builds the effective configuration. path may be empty, in which case
// only defaults and the environment apply. A missing file at an explicit path
// is an error; unreadable YAML is an error.
func Load(path string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *domain.Config) {
	if v := os.Getenv("KESTREL_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("KESTREL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Providers.OpenRouterAPIKey = v
	}
	if v := os.Getenv("HF_API_TOKEN"); v != "" {
		cfg.Providers.HFAPIToken = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers.AnthropicAPIKey = v
	}
	if v := os.Getenv("KESTREL_REDIS_ADDR"); v != "" {
		cfg.Cache.Type = "redis"
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("KESTREL_NATS_URL"); v != "" {
		cfg.EventBus.Type = "nats"
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("KESTREL_DB_PATH"); v != "" {
		cfg.Retrieval.SQLitePath = v
	}
	if v := os.Getenv("KESTREL_POSTGRES_DSN"); v != "" {
		cfg.Retrieval.Driver = "postgres"
		cfg.Retrieval.PostgresDSN = v
	}
	if v := os.Getenv("KESTREL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func validate(cfg *domain.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("invalid maxRetries %d", cfg.Retry.MaxRetries)
	}
	for _, s := range domain.Sectors {
		sc, ok := cfg.Sectors[s]
		if !ok {
			return fmt.Errorf("sector %s has no model configuration", s)
		}
		if sc.TwoStage {
			if sc.Stage1.Model == "" || sc.Stage2.Model == "" {
				return fmt.Errorf("sector %s: two-stage requires stage1 and stage2 models", s)
			}
		} else if len(sc.Candidates()) == 0 {
			return fmt.Errorf("sector %s has no model candidates", s)
		}
	}
	for _, r := range cfg.OverlayRules {
		if r.Expression == "" {
			return fmt.Errorf("overlay rule %s has empty expression", r.ID)
		}
		if r.Weight < 0 {
			return fmt.Errorf("overlay rule %s has negative weight", r.ID)
		}
	}
	return nil
}
