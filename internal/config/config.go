package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tabula-lab/tabula/internal/core/fold"
)

// Config is the top-level CLI configuration.
type Config struct {
	Input  InputConfig  `koanf:"input"`
	Schema SchemaConfig `koanf:"schema"`
	Fold   FoldConfig   `koanf:"fold"`
	Filter FilterConfig `koanf:"filter"`
}

type InputConfig struct {
	Path string `koanf:"path"` // empty reads csv from stdin
}

type SchemaConfig struct {
	Path string `koanf:"path"`
}

type FoldConfig struct {
	Operator string `koanf:"operator"` // count, sum, avg
	Field    string `koanf:"field"`    // required for sum / avg
	Workers  int    `koanf:"workers"`  // >1 folds groups in parallel
}

// FilterConfig is an optional single-attribute comparison applied before the
// fold: keep records whose attribute compares to value with the given op.
type FilterConfig struct {
	Enabled bool   `koanf:"enabled"`
	Attr    string `koanf:"attr"`
	Op      string `koanf:"op"` // "<", "=", ">"
	Value   string `koanf:"value"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Schema.Path) == "" {
		return fmt.Errorf("schema.path is required")
	}
	if !fold.ValidOperator(c.Fold.Operator) {
		return fmt.Errorf("unsupported fold.operator %q (count, sum, avg)", c.Fold.Operator)
	}
	if c.Fold.Operator != fold.OpCount && strings.TrimSpace(c.Fold.Field) == "" {
		return fmt.Errorf("fold.field is required for operator %q", c.Fold.Operator)
	}
	if c.Fold.Workers < 1 {
		return fmt.Errorf("fold.workers must be >= 1")
	}
	if c.Filter.Enabled {
		if strings.TrimSpace(c.Filter.Attr) == "" {
			return fmt.Errorf("filter.attr is required when filter.enabled")
		}
		switch c.Filter.Op {
		case "<", "=", ">":
		default:
			return fmt.Errorf("invalid filter.op %q (must be <, = or >)", c.Filter.Op)
		}
	}
	return nil
}

// Load parses config from defaults + file + env, then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"input.path":     "",
		"schema.path":    "./schema.yaml",
		"fold.operator":  "count",
		"fold.field":     "",
		"fold.workers":   1,
		"filter.enabled": false,
		"filter.attr":    "",
		"filter.op":      "=",
		"filter.value":   "",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("TABULA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "TABULA_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
