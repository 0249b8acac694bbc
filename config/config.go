package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/chpcoupling/core/metrics"
	"github.com/kilianp07/chpcoupling/core/model"
)

// EnvPrefix marks environment overrides, e.g. CHP_AUDIT__TOLERANCE=1e-3.
const EnvPrefix = "CHP_"

type Config struct {
	Pairs    []PairConfig   `json:"pairs"`
	Audit    AuditConfig    `json:"audit"`
	Scenario ScenarioConfig `json:"scenario"`
	Metrics  metrics.Config `json:"metrics"`
	Logging  LoggingConfig  `json:"logging"`
	Sentry   SentryConfig   `json:"sentry"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	prefix := strings.ToLower(EnvPrefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), prefix)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Audit.SetDefaults()
	c.Scenario.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section. Pair errors are *model.ParameterError.
func (c Config) Validate() error {
	if len(c.Pairs) == 0 {
		return errors.New("config: no pairs defined")
	}
	seen := make(map[string]bool, len(c.Pairs))
	for i, p := range c.Pairs {
		if p.Name == "" {
			return fmt.Errorf("config: pairs[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("config: duplicate pair %s", p.Name)
		}
		seen[p.Name] = true
		if _, err := p.Pair(); err != nil {
			return fmt.Errorf("config: pairs[%d]: %w", i, err)
		}
	}
	if err := c.Audit.Validate(); err != nil {
		return err
	}
	if err := c.Scenario.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.Sentry.Validate()
}

// ModelPairs converts every configured pair.
func (c Config) ModelPairs() ([]model.Pair, error) {
	out := make([]model.Pair, 0, len(c.Pairs))
	for _, pc := range c.Pairs {
		p, err := pc.Pair()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// FindPair returns the configured pair with the given name, or the first
// one when name is empty.
func (c Config) FindPair(name string) (model.Pair, error) {
	for _, pc := range c.Pairs {
		if name == "" || pc.Name == name {
			return pc.Pair()
		}
	}
	return model.Pair{}, fmt.Errorf("config: no pair named %q", name)
}
